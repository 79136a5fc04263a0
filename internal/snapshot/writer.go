package snapshot

import (
	"context"
	"sync"
	"time"

	"echocircle/internal/observability"
	"echocircle/internal/state"
)

const saveTimeout = 10 * time.Second

// Writer watches the store and persists the whitelisted state subset after
// every change. Writes are best-effort and fire-and-forget relative to
// dispatch: bursts are debounced, failures are logged and counted, and the
// dispatching caller is never blocked or failed.
type Writer struct {
	dest     Store
	appState *state.Store
	version  int
	debounce time.Duration

	metrics *observability.SnapshotMetrics
	logger  *observability.StoreLogger

	kick        chan bool // true = write immediately, skip debounce
	done        chan struct{}
	unsubscribe func()

	mu        sync.Mutex
	lastSaved time.Time
	started   bool
}

// NewWriter creates a writer persisting appState to dest with the given
// schema version and debounce window.
func NewWriter(dest Store, appState *state.Store, version int, debounce time.Duration, backendName string) *Writer {
	return &Writer{
		dest:     dest,
		appState: appState,
		version:  version,
		debounce: debounce,
		metrics:  observability.NewSnapshotMetrics(backendName),
		logger:   observability.NewStoreLogger("snapshot-writer"),
		kick:     make(chan bool, 1),
		done:     make(chan struct{}),
	}
}

// Start subscribes to the store and launches the background write loop.
func (w *Writer) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	w.unsubscribe = w.appState.Subscribe(func(a state.Action, _ state.State) {
		if a.Scope == state.ScopeLifecycle && a.Type != state.ActionFlush {
			// Hydration bookkeeping must not trigger a save of the state it
			// just restored.
			return
		}
		w.signal(a.Type == state.ActionFlush)
	})

	go w.loop()
}

// signal requests a write without ever blocking the dispatcher. A pending
// immediate request is never downgraded by a later debounced one.
func (w *Writer) signal(immediate bool) {
	select {
	case w.kick <- immediate:
	default:
		if immediate {
			select {
			case <-w.kick:
			default:
			}
			select {
			case w.kick <- true:
			default:
			}
		}
	}
}

func (w *Writer) loop() {
	for {
		select {
		case <-w.done:
			return
		case immediate := <-w.kick:
			if !immediate && w.debounce > 0 {
				timer := time.NewTimer(w.debounce)
			drain:
				for {
					select {
					case <-w.done:
						timer.Stop()
						return
					case more := <-w.kick:
						if more {
							timer.Stop()
							break drain
						}
					case <-timer.C:
						break drain
					}
				}
			}
			w.write()
		}
	}
}

func (w *Writer) write() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	span, ctx := observability.NewSpan(ctx, "snapshot.save")
	defer span.End()

	stop := w.metrics.TrackSave()
	snap := Capture(w.appState.GetState(), w.version)
	err := w.dest.Save(ctx, snap)
	stop()

	if err != nil {
		// Best-effort persistence: in-memory state stays authoritative.
		span.RecordError(err)
		w.metrics.RecordFailure()
		w.logger.LogError(ctx, "snapshot save", err)
		return
	}

	w.mu.Lock()
	w.lastSaved = snap.SavedAt
	w.mu.Unlock()
}

// LastSaved returns the SavedAt of the most recent successful write, or the
// zero time when nothing was written yet.
func (w *Writer) LastSaved() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSaved
}

// Stop unsubscribes from the store, performs one final synchronous write and
// shuts the loop down.
func (w *Writer) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = false
	w.mu.Unlock()

	if w.unsubscribe != nil {
		w.unsubscribe()
	}
	close(w.done)

	snap := Capture(w.appState.GetState(), w.version)
	if err := w.dest.Save(ctx, snap); err != nil {
		w.metrics.RecordFailure()
		w.logger.LogError(ctx, "final snapshot save", err)
		return err
	}
	w.mu.Lock()
	w.lastSaved = snap.SavedAt
	w.mu.Unlock()
	return nil
}
