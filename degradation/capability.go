package degradation

import (
	"fmt"
	"strings"
)

// FallbackMode names how a capability keeps working while it is down.
type FallbackMode string

// Fallback modes.
const (
	FallbackNone       FallbackMode = "none"
	FallbackCache      FallbackMode = "cache"
	FallbackQueue      FallbackMode = "queue"
	FallbackCacheQueue FallbackMode = "cache+queue"
)

// UsesCache reports whether reads are served from the offline cache.
func (m FallbackMode) UsesCache() bool {
	return m == FallbackCache || m == FallbackCacheQueue
}

// UsesQueue reports whether writes are queued for later replay.
func (m FallbackMode) UsesQueue() bool {
	return m == FallbackQueue || m == FallbackCacheQueue
}

// Capability is one entry of the static capability table.
type Capability struct {
	Name string `mapstructure:"name" validate:"required"`
	// Essential capabilities being down makes the whole client CRITICAL.
	Essential bool         `mapstructure:"essential"`
	Fallback  FallbackMode `mapstructure:"fallback" validate:"omitempty,oneof=none cache queue cache+queue"`
	// Dependencies is informational only.
	Dependencies []string `mapstructure:"dependencies"`
}

// DefaultCapabilities is the table used when none is configured.
func DefaultCapabilities() []Capability {
	return []Capability{
		{Name: "native-engine", Essential: true, Fallback: FallbackNone},
		{Name: "mail-send", Essential: true, Fallback: FallbackQueue, Dependencies: []string{"native-engine"}},
		{Name: "mail-sync", Fallback: FallbackCache, Dependencies: []string{"native-engine"}},
		{Name: "calendar-sync", Fallback: FallbackCache, Dependencies: []string{"native-engine"}},
		{Name: "calendar-write", Fallback: FallbackQueue, Dependencies: []string{"calendar-sync"}},
		{Name: "contacts", Fallback: FallbackCache, Dependencies: []string{"native-engine"}},
		{Name: "search", Fallback: FallbackNone, Dependencies: []string{"native-engine"}},
		{Name: "workspace-services", Fallback: FallbackCacheQueue},
	}
}

func limitation(c Capability) string {
	switch c.Fallback {
	case FallbackCache:
		return fmt.Sprintf("%s is offline; showing cached data", c.Name)
	case FallbackQueue:
		return fmt.Sprintf("%s is offline; changes will be sent when it returns", c.Name)
	case FallbackCacheQueue:
		return fmt.Sprintf("%s is offline; showing cached data and queueing changes", c.Name)
	default:
		return fmt.Sprintf("%s is unavailable", strings.ReplaceAll(c.Name, "-", " "))
	}
}
