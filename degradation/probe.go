package degradation

import (
	"context"
	"fmt"

	"github.com/kbukum/failsafe/resilience"
)

// ProbeResult is the health of one capability.
type ProbeResult struct {
	Available bool
	// Degraded marks a capability that answers but is impaired.
	Degraded bool
	Err      error
}

// Probe checks one capability. Implementations are supplied by the host;
// this package only aggregates their answers.
type Probe interface {
	Check(ctx context.Context, c Capability) ProbeResult
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context, c Capability) ProbeResult

// Check calls f.
func (f ProbeFunc) Check(ctx context.Context, c Capability) ProbeResult { return f(ctx, c) }

// AlwaysAvailable reports every capability as up.
var AlwaysAvailable = ProbeFunc(func(context.Context, Capability) ProbeResult {
	return ProbeResult{Available: true}
})

// BreakerProbe reads the circuit breaker named after each capability. An
// open breaker that is still cooling down means unavailable; one that would
// admit a trial call, or is half-open, means degraded. Capabilities with no
// breaker yet are available.
func BreakerProbe(reg *resilience.Registry) Probe {
	return ProbeFunc(func(_ context.Context, c Capability) ProbeResult {
		snap, ok := reg.States()[c.Name]
		if !ok {
			return ProbeResult{Available: true}
		}
		switch {
		case !snap.Admits:
			return ProbeResult{Err: fmt.Errorf("circuit open for %s after %d failures", c.Name, snap.Failures)}
		case snap.State != resilience.StateClosed.String():
			return ProbeResult{Available: true, Degraded: true}
		default:
			return ProbeResult{Available: true}
		}
	})
}

// All combines probes: a capability is unavailable as soon as one probe
// says so, and degraded if any probe reports it degraded.
func All(probes ...Probe) Probe {
	return ProbeFunc(func(ctx context.Context, c Capability) ProbeResult {
		var out ProbeResult
		out.Available = true
		for _, p := range probes {
			r := p.Check(ctx, c)
			if !r.Available {
				return r
			}
			out.Degraded = out.Degraded || r.Degraded
		}
		return out
	})
}
