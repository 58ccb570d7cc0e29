// Package visibility defines the contract between the countdown engine and
// the host surface that knows whether it is currently visible to the user.
package visibility

//go:generate go tool mockgen -source=visibility.go -destination=../internal/testutil/visibilitymock/mock.go -package=visibilitymock

import (
	"sync"

	"github.com/tickdown/tickdown/internal/types"
)

// Provider exposes the current visibility of the host surface and
// a change-notification mechanism.
type Provider interface {
	// Visible reports whether the host surface is currently visible.
	Visible() bool
	// OnChange registers a callback invoked on every visibility change.
	// The returned function removes the callback; subscribers must call it
	// on teardown to avoid leaking the handler.
	OnChange(fn func(visible bool)) (remove func())
}

// Always is a [Provider] for hosts without a visibility signal: it reports
// permanently visible and never notifies. Consumers degrade to pure
// scheduled wake-up timing.
var Always Provider = alwaysVisible{}

type alwaysVisible struct{}

func (alwaysVisible) Visible() bool { return true }

func (alwaysVisible) OnChange(func(visible bool)) (remove func()) { return func() {} }

// ManualProvider is a [Provider] driven by explicit [ManualProvider.Set]
// calls. Embedders translate their host's visibility events into Set calls;
// tests use it to script visibility changes.
type ManualProvider struct {
	mu      sync.Mutex
	hidden  bool
	onChang types.CallbackManager[func(visible bool)]
}

// NewManualProvider creates a manual provider that starts visible.
func NewManualProvider() *ManualProvider { return &ManualProvider{} }

// Visible reports the last value passed to [ManualProvider.Set].
func (p *ManualProvider) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.hidden
}

// OnChange registers a callback invoked on every visibility change.
func (p *ManualProvider) OnChange(fn func(visible bool)) (remove func()) {
	return p.onChang.Add(fn)
}

// Set updates the visibility value, notifying subscribers when it changed.
func (p *ManualProvider) Set(visible bool) {
	p.mu.Lock()
	changed := p.hidden == visible
	p.hidden = !visible
	p.mu.Unlock()

	if !changed {
		return
	}
	for fn := range p.onChang.All() {
		fn(visible)
	}
}
