// Package submission tracks the lifecycle of mutating requests so that a
// client can poll the outcome of a form it submitted.
package submission

import (
	"time"

	"github.com/patrickmn/go-cache"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// State is what a client sees when polling a submission.
type State struct {
	ID         string    `json:"id"`
	Status     Status    `json:"status"`
	HTTPStatus int       `json:"http_status,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Tracker keeps submission states for ttl after their last transition.
type Tracker struct {
	store *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Tracker{
		store: cache.New(ttl, 2*ttl),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Request ids are chosen by clients, so states are stored per owner: the
// same id submitted by two users names two submissions.
func key(owner, id string) string {
	return owner + "/" + id
}

// Start marks owner's submission id as submitting.
func (t *Tracker) Start(owner, id string) {
	t.store.Set(key(owner, id), State{ID: id, Status: StatusSubmitting, UpdatedAt: t.now()}, t.ttl)
}

// Finish records the outcome of owner's submission id; statuses below 400
// count as success.
func (t *Tracker) Finish(owner, id string, httpStatus int) {
	st := StatusSuccess
	if httpStatus >= 400 {
		st = StatusFailed
	}
	t.store.Set(key(owner, id), State{ID: id, Status: st, HTTPStatus: httpStatus, UpdatedAt: t.now()}, t.ttl)
}

// Get returns the state of owner's submission id, Idle when unknown or
// expired.
func (t *Tracker) Get(owner, id string) State {
	if v, ok := t.store.Get(key(owner, id)); ok {
		return v.(State)
	}
	return State{ID: id, Status: StatusIdle}
}
