// Package fetcher provides polling and one-shot fetch primitives that expose
// a {data, loading, error} state to the views.
package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrStale is returned when a response arrived for a superseded request and was discarded.
var ErrStale = errors.New("stale response discarded")

// FetchFunc loads the resource value.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// KeyedFetchFunc loads the resource value for a credential.
type KeyedFetchFunc[T any] func(ctx context.Context, key string) (T, error)

// State is a point-in-time view of a resource.
type State[T any] struct {
	Data      T
	Loading   bool
	Err       error
	UpdatedAt time.Time
}

// Resource holds the last fetched value of T together with its loading and error flags.
type Resource[T any] struct {
	name  string
	fetch FetchFunc[T]
	keyed func() string

	mu        sync.RWMutex
	state     State[T]
	inflight  int
	observers []func(State[T])
	now       func() time.Time
}

// New creates an unkeyed resource.
func New[T any](name string, fetch FetchFunc[T]) *Resource[T] {
	return &Resource[T]{
		name:  name,
		fetch: fetch,
		now:   time.Now,
	}
}

// NewKeyed creates a resource whose fetch needs a credential. While key returns
// an empty string refreshes are skipped and the state is left untouched.
func NewKeyed[T any](name string, fetch KeyedFetchFunc[T], key func() string) *Resource[T] {
	r := &Resource[T]{name: name, now: time.Now}
	r.fetch = func(ctx context.Context) (T, error) {
		return fetch(ctx, key())
	}
	r.keyed = key
	return r
}

// State returns the current state.
func (r *Resource[T]) State() State[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// OnChange registers fn to be called after every state transition.
func (r *Resource[T]) OnChange(fn func(State[T])) {
	r.mu.Lock()
	r.observers = append(r.observers, fn)
	r.mu.Unlock()
}

// Refresh fetches the resource and replaces its data. On failure the previous data is kept.
func (r *Resource[T]) Refresh(ctx context.Context) error {
	if r.keyed != nil && r.keyed() == "" {
		return nil
	}
	return r.RefreshGuarded(ctx, r.fetch, nil)
}

// RefreshGuarded fetches with fetch and applies the result only while current
// reports true. current is evaluated under the state lock, so no newer state
// can be applied between the check and the write. A nil current always applies.
// Loading stays set while any fetch is in flight.
func (r *Resource[T]) RefreshGuarded(ctx context.Context, fetch FetchFunc[T], current func() bool) error {
	r.update(func(s *State[T]) {
		r.inflight++
		s.Loading = true
	})

	data, err := fetch(ctx)

	stale := false
	r.update(func(s *State[T]) {
		r.inflight--
		s.Loading = r.inflight > 0
		if current != nil && !current() {
			stale = true
			return
		}
		s.Err = err
		if err == nil {
			s.Data = data
			s.UpdatedAt = r.now()
		}
	})

	if stale {
		return ErrStale
	}
	if err != nil {
		return errors.Wrapf(err, "refresh %s", r.name)
	}
	return nil
}

// Set replaces the data without fetching.
func (r *Resource[T]) Set(data T) {
	r.update(func(s *State[T]) {
		s.Data = data
		s.Err = nil
		s.UpdatedAt = r.now()
	})
}

// Poll refreshes immediately and then every interval until ctx is done.
// A non-positive interval fetches once.
func (r *Resource[T]) Poll(ctx context.Context, interval time.Duration, onError func(error)) {
	Every(ctx, interval, r.Refresh, onError)
}

func (r *Resource[T]) update(fn func(*State[T])) {
	r.mu.Lock()
	fn(&r.state)
	state := r.state
	observers := append([]func(State[T]){}, r.observers...)
	r.mu.Unlock()

	for _, observer := range observers {
		observer(state)
	}
}

// Every runs fn immediately and then on every tick until ctx is done.
// Errors go to onError; they never stop the loop.
func Every(ctx context.Context, interval time.Duration, fn func(ctx context.Context) error, onError func(error)) {
	run := func() {
		if err := fn(ctx); err != nil && onError != nil && !errors.Is(err, ErrStale) && ctx.Err() == nil {
			onError(err)
		}
	}

	run()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
