// Package approval gates side-effecting actions behind an explicit
// user-approval checkpoint. Every fetch, file write, or script execution
// raises an ApprovalRequest that must be resolved before the action runs.
//
// State machine per request:
//
//	pending -> approved | rejected | expired (terminal)
//
// Expiry is lazy: there is no background timer. A pending request whose
// timeout has elapsed is moved to expired on the next access, which is
// sufficient because runs are short-lived batches with a single consumer.
package approval

import (
	"sync"
	"time"

	"driftwatch/internal/logging"

	"github.com/google/uuid"
)

// ActionKind is the class of gated side effect.
type ActionKind string

const (
	ActionFetch   ActionKind = "fetch"
	ActionWrite   ActionKind = "write"
	ActionExecute ActionKind = "execute"
)

// Status is the lifecycle state of an approval request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusExpired
}

// Request is one approval checkpoint for a gated action.
// Once resolved, a request is immutable.
type Request struct {
	ID          string
	Kind        ActionKind
	Description string
	Payload     interface{}
	Status      Status
	RequestedAt time.Time
	ResolvedAt  *time.Time
	Resolver    string
	Timeout     time.Duration
}

// Gate tracks approval requests for one orchestrator instance.
// It is an explicit collaborator, not a process-global singleton, so two
// independent runs never share approval state unless the caller shares
// the same Gate.
type Gate struct {
	mu       sync.Mutex
	requests map[string]*Request
	order    []string // insertion order of request IDs

	now func() time.Time // test seam
}

// NewGate creates an empty approval gate.
func NewGate() *Gate {
	return &Gate{
		requests: make(map[string]*Request),
		now:      time.Now,
	}
}

// Request registers a new pending approval request. It always succeeds.
// A timeout of zero or less means the request never expires.
func (g *Gate) Request(kind ActionKind, description string, payload interface{}, timeout time.Duration) Request {
	g.mu.Lock()
	defer g.mu.Unlock()

	req := &Request{
		ID:          uuid.NewString(),
		Kind:        kind,
		Description: description,
		Payload:     payload,
		Status:      StatusPending,
		RequestedAt: g.now(),
		Timeout:     timeout,
	}
	g.requests[req.ID] = req
	g.order = append(g.order, req.ID)

	logging.Approval("Approval requested: id=%s kind=%s desc=%q timeout=%v", req.ID, kind, description, timeout)
	return *req
}

// Resolve transitions a pending request to approved or rejected, recording
// the resolver identity and timestamp. Returns false without mutation if
// the request is unknown, already terminal, or the outcome is not a valid
// resolution.
func (g *Gate) Resolve(id string, outcome Status, resolver string) bool {
	if outcome != StatusApproved && outcome != StatusRejected {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	req, ok := g.requests[id]
	if !ok {
		return false
	}
	g.expireLocked(req)
	if req.Status != StatusPending {
		logging.ApprovalDebug("Resolve refused: id=%s already %s", id, req.Status)
		return false
	}

	resolvedAt := g.now()
	req.Status = outcome
	req.ResolvedAt = &resolvedAt
	req.Resolver = resolver

	logging.Approval("Approval resolved: id=%s outcome=%s resolver=%s", id, outcome, resolver)
	return true
}

// NextPending sweeps expired requests out of the pending set, then returns
// the oldest remaining pending request, if any.
func (g *Gate) NextPending() (Request, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range g.order {
		req := g.requests[id]
		g.expireLocked(req)
		if req.Status == StatusPending {
			return *req, true
		}
	}
	return Request{}, false
}

// Get returns a copy of the request with expiry already folded into the
// status field, so callers never observe a stale pending state.
func (g *Gate) Get(id string) (Request, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	req, ok := g.requests[id]
	if !ok {
		return Request{}, false
	}
	g.expireLocked(req)
	return *req, true
}

// List returns copies of all requests in the given status, in insertion
// order. Expiry is swept before bucketing.
func (g *Gate) List(status Status) []Request {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []Request
	for _, id := range g.order {
		req := g.requests[id]
		g.expireLocked(req)
		if req.Status == status {
			out = append(out, *req)
		}
	}
	return out
}

// Counts returns the number of requests per status after an expiry sweep.
func (g *Gate) Counts() map[Status]int {
	g.mu.Lock()
	defer g.mu.Unlock()

	counts := make(map[Status]int)
	for _, id := range g.order {
		req := g.requests[id]
		g.expireLocked(req)
		counts[req.Status]++
	}
	return counts
}

// expireLocked moves a pending request past its timeout into the expired
// terminal state. Caller must hold g.mu.
func (g *Gate) expireLocked(req *Request) {
	if req.Status != StatusPending || req.Timeout <= 0 {
		return
	}
	if g.now().Sub(req.RequestedAt) <= req.Timeout {
		return
	}
	expiredAt := g.now()
	req.Status = StatusExpired
	req.ResolvedAt = &expiredAt
	logging.ApprovalDebug("Approval expired: id=%s after %v", req.ID, req.Timeout)
}
