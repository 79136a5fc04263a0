package state

import (
	"context"
	"encoding/json"
	"sync"

	"echocircle/internal/observability"
)

// Subscriber receives every dispatched action together with the state tree
// that resulted from it. The state is a deep copy; subscribers may keep it.
type Subscriber func(Action, State)

// Store owns the application state tree. It is constructed once at startup
// and injected into consumers; all mutation goes through Dispatch, which
// applies actions strictly in dispatch order.
type Store struct {
	dispatchMu sync.Mutex   // serializes dispatch + notification order
	mu         sync.RWMutex // guards state for concurrent readers

	state State

	subMu   sync.Mutex
	subs    map[int]Subscriber
	nextSub int

	logger *observability.StoreLogger
}

// NewStore creates a store holding the code-default initial state.
func NewStore() *Store {
	return &Store{
		state:  NewState(),
		subs:   make(map[int]Subscriber),
		logger: observability.NewStoreLogger("store"),
	}
}

// GetState returns a deep copy of the current state tree.
func (st *Store) GetState() State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.state.Clone()
}

// Subscribe registers fn for every dispatched action and returns an
// unsubscribe function. Subscribers are notified in dispatch order and must
// not call Dispatch from within the callback.
func (st *Store) Subscribe(fn Subscriber) func() {
	st.subMu.Lock()
	defer st.subMu.Unlock()
	id := st.nextSub
	st.nextSub++
	st.subs[id] = fn
	return func() {
		st.subMu.Lock()
		defer st.subMu.Unlock()
		delete(st.subs, id)
	}
}

// Dispatch applies the action's reducers and notifies subscribers. It never
// returns an error: reducers are pure and treat malformed payloads as no-ops.
func (st *Store) Dispatch(a Action) {
	if a.Scope == "" {
		a.Scope = ScopeDomain
	}

	observability.ActionsDispatched.WithLabelValues(string(a.Type), string(a.Scope)).Inc()
	st.checkSerializable(a)

	st.dispatchMu.Lock()
	defer st.dispatchMu.Unlock()

	st.mu.Lock()
	st.state = State{
		Session: reduceSession(st.state.Session, a),
		Feed:    reduceFeed(st.state.Feed, a),
	}
	snapshot := st.state.Clone()
	st.mu.Unlock()

	st.logger.LogDispatch(context.Background(), string(a.Type), string(a.Scope))

	for _, fn := range st.subscribers() {
		fn(a, snapshot)
	}
}

// checkSerializable verifies that domain action payloads survive JSON
// marshaling, since they may end up in a persisted snapshot. Lifecycle
// actions are exempt: they carry internal markers that are never persisted.
// Violations are logged and counted, never fatal.
func (st *Store) checkSerializable(a Action) {
	if a.Scope == ScopeLifecycle || a.Payload == nil {
		return
	}
	if _, err := json.Marshal(a.Payload); err != nil {
		observability.SerializabilityViolations.WithLabelValues(string(a.Type)).Inc()
		st.logger.LogError(context.Background(), "serializability check for "+string(a.Type), err)
	}
}

func (st *Store) subscribers() []Subscriber {
	st.subMu.Lock()
	defer st.subMu.Unlock()
	out := make([]Subscriber, 0, len(st.subs))
	for id := 0; id < st.nextSub; id++ {
		if fn, ok := st.subs[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}
