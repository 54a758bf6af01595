// Package bootstrap assembles the resilience layer from a config.Config and
// runs it.
//
// NewApp builds one instance of every part (error manager, retry engine,
// offline store, degradation coordinator, bridge, telemetry) and wires them
// together, so nothing in failsafe is a process-wide singleton:
//
//	cfg, _ := config.Load()
//	app, err := bootstrap.NewApp(ctx, cfg)
//	_ = app.Bridge.Register("mail-send", sendHandler)
//	return app.Run(ctx)
//
// Queued operations are replayed through the bridge channel named by the
// operation once the coordinator reports connectivity restored.
package bootstrap
