// Package graph executes a declared directed graph of named stages over an
// immutable state bag. Stages return partial updates that the engine merges
// into the shared state using per-field reducers. Routers may fan a single
// stage out into many concurrently executing branches, and deferred stages
// join those branches back together once every branch has finished.
package graph

import (
	"maps"
	"slices"
)

// Update is the partial state produced by a single stage invocation.
type Update map[string]any

// State is an immutable key/value bag threaded through a graph run.
// Set returns a new State and never mutates the receiver, so snapshots
// handed to concurrently running stages stay stable.
type State struct {
	data map[string]any
}

// NewState creates a State holding a copy of values.
func NewState(values map[string]any) State {
	data := make(map[string]any, len(values))
	maps.Copy(data, values)
	return State{data: data}
}

// Get returns the value stored under key.
func (s State) Get(key string) (any, bool) {
	v, ok := s.data[key]
	return v, ok
}

// Set returns a copy of the state with key bound to value.
func (s State) Set(key string, value any) State {
	data := make(map[string]any, len(s.data)+1)
	maps.Copy(data, s.data)
	data[key] = value
	return State{data: data}
}

// Pick returns a narrowed copy containing only the given keys.
// Keys absent from the receiver are skipped.
func (s State) Pick(keys ...string) State {
	data := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := s.data[k]; ok {
			data[k] = v
		}
	}
	return State{data: data}
}

// Keys returns the bound keys in sorted order.
func (s State) Keys() []string {
	return slices.Sorted(maps.Keys(s.data))
}

// Len reports the number of bound keys.
func (s State) Len() int {
	return len(s.data)
}

// IsZero reports whether the state was never initialized.
// A zero State in a Send means "inherit the sender's view".
func (s State) IsZero() bool {
	return s.data == nil
}

func (s State) overlay(u Update) State {
	data := make(map[string]any, len(s.data)+len(u))
	maps.Copy(data, s.data)
	maps.Copy(data, u)
	return State{data: data}
}

// Value returns the value under key asserted to T.
// The boolean is false when the key is missing or holds another type.
func Value[T any](s State, key string) (T, bool) {
	var zero T
	v, ok := s.data[key]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
