package degradation

import "github.com/kbukum/failsafe/offline"

// Event is the closed set of events the coordinator publishes.
type Event interface {
	Name() string
	degradationEvent()
}

// ChangeEvent is published when an assessment moves the level.
type ChangeEvent struct {
	Previous Level
	Current  Level
	State    State
}

// ReplayCompleted is published after the offline queue was replayed on
// restoration.
type ReplayCompleted struct {
	Result offline.ProcessResult
	Err    error
}

func (ChangeEvent) Name() string     { return "degradation_changed" }
func (ReplayCompleted) Name() string { return "queue_replayed" }

func (ChangeEvent) degradationEvent()     {}
func (ReplayCompleted) degradationEvent() {}
