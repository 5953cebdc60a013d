package forms

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotRequested = errors.New("forms: delete was not requested for this post")

// DefaultDeleteTTL is how long a confirmation page stays answerable.
const DefaultDeleteTTL = 15 * time.Minute

// maxPendingDeletes caps live tokens; past it the oldest pages must be reopened.
const maxPendingDeletes = 4096

type PostDeleter interface {
	DeleteByID(ctx context.Context, id string) (bool, error)
}

type pendingDelete struct {
	id string
	at time.Time
}

// DeleteFlow holds delete requests between the confirmation page and its
// answer. Each confirmation page gets its own token; a token is spent by the
// first answer, yes or no. Safe for concurrent use.
type DeleteFlow struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	pending map[string]pendingDelete
}

func NewDeleteFlow(ttl time.Duration, now func() time.Time) *DeleteFlow {
	if ttl <= 0 {
		ttl = DefaultDeleteTTL
	}
	if now == nil {
		now = time.Now
	}
	return &DeleteFlow{ttl: ttl, now: now, pending: map[string]pendingDelete{}}
}

// Request records that id awaits confirmation and returns the token the
// confirmation form must send back.
func (d *DeleteFlow) Request(id string) string {
	token := uuid.NewString()
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()
	for t, p := range d.pending {
		if now.Sub(p.at) > d.ttl {
			delete(d.pending, t)
		}
	}
	if len(d.pending) >= maxPendingDeletes {
		d.pending = map[string]pendingDelete{}
	}
	d.pending[token] = pendingDelete{id: id, at: now}
	return token
}

// Pending returns the post a live token is waiting on.
func (d *DeleteFlow) Pending(token string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pending[token]
	if !ok || d.now().Sub(p.at) > d.ttl {
		return "", false
	}
	return p.id, true
}

// Confirm answers the request behind token. Unknown, expired or mismatched
// tokens return ErrNotRequested. Declining spends the token without touching
// the store.
func (d *DeleteFlow) Confirm(ctx context.Context, token, id string, yes bool, deleter PostDeleter) (bool, error) {
	d.mu.Lock()
	p, ok := d.pending[token]
	if ok && (p.id != id || d.now().Sub(p.at) > d.ttl) {
		ok = false
	}
	if ok {
		delete(d.pending, token)
	}
	d.mu.Unlock()

	if !ok {
		return false, ErrNotRequested
	}
	if !yes {
		return false, nil
	}
	return deleter.DeleteByID(ctx, id)
}
