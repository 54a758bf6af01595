package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kbukum/failsafe/bridge"
	"github.com/kbukum/failsafe/clock"
	"github.com/kbukum/failsafe/config"
	"github.com/kbukum/failsafe/logger"
	"github.com/kbukum/failsafe/offline"
	"github.com/kbukum/failsafe/version"
)

// cli holds what every command needs to open the store.
type cli struct {
	fs      afero.Fs
	environ func() []string

	configFile string
	envFile    string
	verbose    bool
	asJSON     bool
}

func (c *cli) load() (*config.Config, error) {
	return config.Load(
		config.WithFs(c.fs),
		config.WithConfigFile(c.configFile),
		config.WithEnvFile(c.envFile),
		config.WithEnviron(c.environ),
	)
}

func (c *cli) open(cmd *cobra.Command) (*offline.Offline, *config.Config, error) {
	cfg, err := c.load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.Nop()
	if c.verbose {
		log = logger.NewWithWriter(&cfg.Logging, cmd.ErrOrStderr(), "failsafectl")
	}
	off, err := offline.New(cfg.Offline, c.fs, clock.New(), nil, log)
	if err != nil {
		return nil, nil, err
	}
	return off, cfg, nil
}

func (c *cli) print(w io.Writer, v any, text func(io.Writer) error) error {
	if c.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(w)
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "failsafectl",
		Short:         "Inspect the offline queue, cache and replay lock",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "config file (default: search failsafe.yml)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", "", ".env file with FAILSAFE_* overrides")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log store operations to stderr")
	root.PersistentFlags().BoolVar(&c.asJSON, "json", false, "print JSON instead of text")

	root.AddCommand(newQueueCmd(c), newCacheCmd(c), newLockCmd(c), newVersionCmd(c))
	return root
}

func newQueueCmd(c *cli) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage operations queued while offline",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List queued operations, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			off, _, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = off.Close(cmd.Context()) }()
			ops, err := off.Queue.List(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), ops, func(w io.Writer) error {
				if len(ops) == 0 {
					_, err := fmt.Fprintln(w, "queue is empty")
					return err
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSERVICE\tOPERATION\tSTATUS\tQUEUED")
				for _, op := range ops {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", op.ID, op.Service, op.Name, op.Status, op.QueuedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear [id]",
		Short: "Remove one queued operation, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			off, _, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = off.Close(cmd.Context()) }()
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			if err := off.Queue.Remove(cmd.Context(), id); err != nil {
				return err
			}
			if id == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "queue cleared")
			} else {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", id)
			}
			return err
		},
	}

	var url string
	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Send queued operations to a running host bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			off, cfg, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = off.Close(cmd.Context()) }()
			if url == "" && cfg.Listen != "" {
				url = "http://" + cfg.Listen
			}
			if url == "" {
				return fmt.Errorf("no bridge address: pass --url or set listen in the config")
			}
			client := bridge.NewClient(url, nil, nil)
			res, err := off.Queue.Process(cmd.Context(), func(ctx context.Context, op offline.Operation) error {
				args, err := op.Args()
				if err != nil {
					return err
				}
				_, err = client.Invoke(ctx, op.Name, args...)
				return err
			})
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "processed %d, failed %d\n", res.Processed, res.Failed)
				return err
			})
		},
	}
	replayCmd.Flags().StringVar(&url, "url", "", "bridge base URL, e.g. http://127.0.0.1:7420")

	queueCmd.AddCommand(listCmd, clearCmd, replayCmd)
	return queueCmd
}

func newCacheCmd(c *cli) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect cached reads",
	}
	showCmd := &cobra.Command{
		Use:   "show <service>",
		Short: "Print the cached data for a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			off, _, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = off.Close(cmd.Context()) }()
			res := off.Cache.Fallback(cmd.Context(), args[0])
			return c.print(cmd.OutOrStdout(), res, func(w io.Writer) error {
				if !res.Found {
					_, err := fmt.Fprintln(w, res.Message)
					return err
				}
				fmt.Fprintf(w, "cached at %s\n", res.Timestamp.Format(time.RFC3339))
				_, err := fmt.Fprintln(w, string(res.Data))
				return err
			})
		},
	}
	cacheCmd.AddCommand(showCmd)
	return cacheCmd
}

func newLockCmd(c *cli) *cobra.Command {
	lockCmd := &cobra.Command{
		Use:   "lock",
		Short: "Inspect the replay lock",
	}
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show who holds the replay lock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			lc := cfg.Offline.Lock
			lock := offline.NewFileLock(c.fs, filepath.Join(cfg.Offline.Dir, lc.File), "", lc, clock.New())
			st, err := lock.Status()
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), st, func(w io.Writer) error {
				var err error
				switch {
				case !st.Held:
					_, err = fmt.Fprintf(w, "%s: free\n", lock.Path())
				case st.Stale:
					_, err = fmt.Fprintf(w, "%s: stale, held by %s (pid %d) for %s\n", lock.Path(), st.Info.Owner, st.Info.PID, st.Age.Round(time.Second))
				default:
					_, err = fmt.Fprintf(w, "%s: held by %s (pid %d) for %s\n", lock.Path(), st.Info.Owner, st.Info.PID, st.Age.Round(time.Second))
				}
				return err
			})
		},
	}
	lockCmd.AddCommand(statusCmd)
	return lockCmd
}

func newVersionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			return c.print(cmd.OutOrStdout(), info, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, info.String())
				return err
			})
		},
	}
}
