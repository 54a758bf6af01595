package degradation

import (
	"encoding/json"
	"time"
)

// Level is the aggregate health of the client.
type Level int

// Levels, in increasing severity.
const (
	LevelNone Level = iota
	LevelPartial
	LevelOffline
	LevelCritical
)

var levelNames = [...]string{"NONE", "PARTIAL", "OFFLINE", "CRITICAL"}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// MarshalJSON encodes the level by name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// ServiceStatus is the latest probe outcome for one capability.
type ServiceStatus struct {
	Available      bool      `json:"available"`
	Degraded       bool      `json:"degraded"`
	FallbackActive bool      `json:"fallbackActive"`
	LastError      string    `json:"lastError,omitempty"`
	LastCheck      time.Time `json:"lastCheck"`
}

// State is one health assessment.
type State struct {
	Level    Level                    `json:"level"`
	Services map[string]ServiceStatus `json:"services"`
	// Capabilities lists what still works, live or through a fallback.
	Capabilities []string  `json:"capabilities"`
	Limitations  []string  `json:"limitations"`
	Timestamp    time.Time `json:"timestamp"`
}

// ComputeLevel applies the level precedence: any essential capability
// down is CRITICAL; nothing down is NONE; more than half down is OFFLINE;
// anything else is PARTIAL.
func ComputeLevel(caps []Capability, services map[string]ServiceStatus) Level {
	down := 0
	for _, c := range caps {
		if services[c.Name].Available {
			continue
		}
		if c.Essential {
			return LevelCritical
		}
		down++
	}
	switch {
	case down == 0:
		return LevelNone
	case down*2 > len(caps):
		return LevelOffline
	default:
		return LevelPartial
	}
}

func buildState(caps []Capability, services map[string]ServiceStatus, now time.Time) State {
	st := State{
		Level:        ComputeLevel(caps, services),
		Services:     services,
		Capabilities: []string{},
		Limitations:  []string{},
		Timestamp:    now,
	}
	for _, c := range caps {
		s := services[c.Name]
		if s.Available || s.FallbackActive {
			st.Capabilities = append(st.Capabilities, c.Name)
		}
		if !s.Available {
			st.Limitations = append(st.Limitations, limitation(c))
		}
	}
	return st
}

func (s State) clone() State {
	out := s
	out.Services = make(map[string]ServiceStatus, len(s.Services))
	for k, v := range s.Services {
		out.Services[k] = v
	}
	out.Capabilities = append([]string(nil), s.Capabilities...)
	out.Limitations = append([]string(nil), s.Limitations...)
	return out
}
