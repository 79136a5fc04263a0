package snapshot

import (
	"context"
	"errors"
	"sync"
	"time"

	"echocircle/internal/observability"
	"echocircle/internal/state"
)

// Phase is the gate's lifecycle position. Loading is entered exactly once at
// startup; Ready is terminal for the process lifetime.
type Phase string

const (
	// PhaseUninitialized means Run has not been called yet.
	PhaseUninitialized Phase = "uninitialized"
	// PhaseLoading means the snapshot load is in flight; the view layer
	// shows its placeholder and must not mount routes.
	PhaseLoading Phase = "loading"
	// PhaseReady means hydration finished (restored or defaulted) and the
	// view layer may mount.
	PhaseReady Phase = "ready"
)

// ErrAlreadyRun is returned when Run is called more than once.
var ErrAlreadyRun = errors.New("snapshot: gate already run")

// Gate restores a previously saved snapshot into the store before the view
// layer is allowed to read state. Load failures, version mismatches and
// timeouts all fall back to the code-default initial state; the gate always
// reaches Ready.
type Gate struct {
	src      Store
	appState *state.Store
	version  int
	timeout  time.Duration
	logger   *observability.StoreLogger

	mu    sync.Mutex
	phase Phase
	ready chan struct{}
}

// NewGate creates a gate restoring from src into appState, accepting only
// snapshots with the given schema version, bounded by timeout.
func NewGate(src Store, appState *state.Store, version int, timeout time.Duration) *Gate {
	return &Gate{
		src:      src,
		appState: appState,
		version:  version,
		timeout:  timeout,
		logger:   observability.NewStoreLogger("gate"),
		phase:    PhaseUninitialized,
		ready:    make(chan struct{}),
	}
}

// Phase returns the current gate phase.
func (g *Gate) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// Ready returns a channel closed once hydration completes.
func (g *Gate) Ready() <-chan struct{} {
	return g.ready
}

// Wait blocks until the gate is ready or the context is done.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run performs the one-time startup hydration. It may be called once per
// process; the second call returns ErrAlreadyRun without touching state.
func (g *Gate) Run(ctx context.Context) error {
	g.mu.Lock()
	if g.phase != PhaseUninitialized {
		g.mu.Unlock()
		return ErrAlreadyRun
	}
	g.phase = PhaseLoading
	g.mu.Unlock()

	start := time.Now()
	outcome := g.hydrate(ctx)
	observability.HydrationDuration.Observe(time.Since(start).Seconds())
	observability.HydrationOutcome.WithLabelValues(outcome).Inc()

	g.appState.Dispatch(state.HydrateDone())

	g.mu.Lock()
	g.phase = PhaseReady
	g.mu.Unlock()
	close(g.ready)
	return nil
}

func (g *Gate) hydrate(ctx context.Context) (outcome string) {
	loadCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	span, loadCtx := observability.NewSpan(loadCtx, "snapshot.load")
	defer span.End()

	type result struct {
		snap *Snapshot
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		snap, err := g.src.Load(loadCtx)
		ch <- result{snap, err}
	}()

	var snap *Snapshot
	select {
	case <-loadCtx.Done():
		// A hung storage backend must not strand the UI on the loading
		// placeholder; proceed with defaults.
		span.RecordError(loadCtx.Err())
		g.logger.LogError(loadCtx, "snapshot load", loadCtx.Err())
		return "timeout"
	case r := <-ch:
		if r.err != nil {
			span.RecordError(r.err)
			g.logger.LogError(loadCtx, "snapshot load", r.err)
			return "error"
		}
		snap = r.snap
	}

	if snap == nil {
		g.logger.LogSnapshot(loadCtx, "cold start", nil)
		return "cold"
	}

	if snap.Version != g.version {
		// No field-level migration: a mismatched snapshot is discarded
		// wholesale and the code defaults stand.
		g.logger.LogSnapshot(loadCtx, "discarded", map[string]interface{}{
			"found_version":    snap.Version,
			"expected_version": g.version,
		})
		return "discarded"
	}

	g.appState.Dispatch(state.Hydrate(state.HydratePayload{
		User:  snap.User,
		Token: snap.Token,
		Posts: snap.Posts,
	}))
	g.logger.LogSnapshot(loadCtx, "restored", map[string]interface{}{
		"saved_at": snap.SavedAt,
		"posts":    len(snap.Posts),
	})
	return "restored"
}
