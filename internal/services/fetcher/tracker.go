package fetcher

import (
	"context"
	"sync"
)

// Tracker issues cancellable request tokens keyed by a parameter such as the
// active pair. Beginning a new request supersedes and cancels all earlier ones.
type Tracker struct {
	mu     sync.Mutex
	key    string
	gen    uint64
	cancel context.CancelFunc
}

// Token identifies one request started by a Tracker.
type Token struct {
	tracker *Tracker
	key     string
	gen     uint64
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Begin starts a request for key derived from parent.
func (t *Tracker) Begin(parent context.Context, key string) *Token {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.gen++
	t.key = key
	t.cancel = cancel
	gen := t.gen
	t.mu.Unlock()

	return &Token{tracker: t, key: key, gen: gen, ctx: ctx, cancel: cancel}
}

// Invalidate supersedes every outstanding token without starting a new request.
func (t *Tracker) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.gen++
}

// Context is cancelled as soon as the token is superseded.
func (tok *Token) Context() context.Context {
	return tok.ctx
}

// Key returns the parameter the request was started for.
func (tok *Token) Key() string {
	return tok.key
}

// Done releases the token's context. It does not supersede the token.
func (tok *Token) Done() {
	tok.tracker.mu.Lock()
	if tok.gen == tok.tracker.gen {
		tok.tracker.cancel = nil
	}
	tok.tracker.mu.Unlock()
	tok.cancel()
}

// Current reports whether no newer request has been started since this one.
func (tok *Token) Current() bool {
	tok.tracker.mu.Lock()
	defer tok.tracker.mu.Unlock()
	return tok.gen == tok.tracker.gen && tok.key == tok.tracker.key
}
