// Package bootstrap runs the ordered client startup sequence: local
// snapshot first so the UI can paint, then the session check, then the
// server preferences. Later stages are allowed to fail; startup still
// completes exactly once with whatever the earlier stages produced.
package bootstrap

import (
	"context"
	"log"
	"sync"

	enginesync "github.com/prodhub/productivity-hub/internal/client/sync"
)

// Result reports what the startup sequence ended up with.
type Result struct {
	// Authenticated is true when the stored token was accepted by the
	// server.
	Authenticated bool
	// ServerSynced is true when the account's preferences were loaded
	// from the server rather than the local fallback.
	ServerSynced bool
}

// Bootstrapper runs the sequence once for the process lifetime.
type Bootstrapper struct {
	Engine *enginesync.Engine

	once   sync.Once
	result Result
}

func New(engine *enginesync.Engine) *Bootstrapper {
	return &Bootstrapper{Engine: engine}
}

// Run executes the startup stages in order. Repeated calls return the
// first run's result without re-running anything.
func (b *Bootstrapper) Run(ctx context.Context) Result {
	b.once.Do(func() {
		b.result = b.run(ctx)
	})
	return b.result
}

func (b *Bootstrapper) run(ctx context.Context) Result {
	var res Result

	// Stage 1: local snapshot, no network. This is the only stage whose
	// failure matters, and even then the engine's in-memory defaults
	// keep the app usable.
	if err := b.Engine.LoadLocal(ctx); err != nil {
		log.Printf("bootstrap: local snapshot failed, using defaults: %v", err)
	}

	// Stage 2: validate the stored session, if any.
	authed, err := b.Engine.CheckSession(ctx)
	if err != nil {
		log.Printf("bootstrap: session check failed: %v", err)
	}
	res.Authenticated = authed
	if !authed {
		return res
	}

	// Stage 3: pull the account's preferences. On failure the engine has
	// already fallen back to the stage 1 snapshot.
	if err := b.Engine.LoadPreferences(ctx); err != nil {
		log.Printf("bootstrap: server preferences unavailable, using local snapshot: %v", err)
		return res
	}
	res.ServerSynced = true
	return res
}
