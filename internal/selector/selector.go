// Package selector evaluates read-only expression projections over a state
// snapshot. It backs the devtools query endpoint and gives the embedding view
// layer a selector-style read path without handing out mutable state.
package selector

import (
	"encoding/json"
	"fmt"
	"sync"

	"echocircle/internal/state"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// Engine compiles and caches selector expressions. Expressions see the JSON
// shape of the state tree (maps and slices), so field names match the wire
// format, e.g. `session.user.firstName` or `len(feed.posts)`.
type Engine struct {
	mu    sync.RWMutex
	cache map[string]*exprvm.Program
}

// NewEngine returns an engine with an empty program cache.
func NewEngine() *Engine {
	return &Engine{cache: make(map[string]*exprvm.Program)}
}

// Eval evaluates expression against the given state snapshot.
func (e *Engine) Eval(s state.State, expression string) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("selector: expression must not be empty")
	}

	env, err := environment(s)
	if err != nil {
		return nil, err
	}

	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, fmt.Errorf("selector: compile %q: %w", expression, err)
	}

	result, err := exprlang.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("selector: evaluate %q: %w", expression, err)
	}
	return result, nil
}

func (e *Engine) loadOrCompile(expression string) (*exprvm.Program, error) {
	e.mu.RLock()
	program, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := exprlang.Compile(expression, exprlang.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expression] = program
	e.mu.Unlock()
	return program, nil
}

// environment projects the state tree into the generic map shape the
// expressions evaluate against.
func environment(s state.State) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("selector: marshal state: %w", err)
	}
	var env map[string]any
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("selector: project state: %w", err)
	}
	return env, nil
}
