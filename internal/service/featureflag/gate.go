// internal/service/featureflag/gate.go
package featureflag

import (
	"context"
	"sync"
)

// Notifications is the feature that gates every notification entry point.
const Notifications = "notifications"

// Gate answers whether a named feature is switched on.
type Gate interface {
	IsEnabled(feature string) bool
}

// Setter is implemented by gates that can be toggled at runtime.
type Setter interface {
	SetEnabled(ctx context.Context, feature string, enabled bool) error
}

// Toggle is a gate whose flags can be read and written.
type Toggle interface {
	Gate
	Setter
}

// StaticGate keeps flags in process memory.
type StaticGate struct {
	mu    sync.RWMutex
	flags map[string]bool
}

// NewStaticGate returns a gate with the given features enabled.
func NewStaticGate(enabled ...string) *StaticGate {
	g := &StaticGate{flags: make(map[string]bool, len(enabled))}
	for _, f := range enabled {
		g.flags[f] = true
	}
	return g
}

func (g *StaticGate) IsEnabled(feature string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.flags[feature]
}

func (g *StaticGate) SetEnabled(_ context.Context, feature string, enabled bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.flags[feature] = enabled
	return nil
}
