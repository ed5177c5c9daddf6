// Package coordinator applies lifecycle mutations optimistically to a surface's
// view and reconciles them with the store. A failed mutation always leaves the
// view exactly as it was before the call.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"marketplace_backend/internal/events"
	"marketplace_backend/internal/pipeline/access"
	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/internal/pipeline/errmap"
	"marketplace_backend/internal/pipeline/livesync"
	"marketplace_backend/internal/pipeline/repository"
	"marketplace_backend/platform/apperr"
	"marketplace_backend/platform/logger"
	"marketplace_backend/platform/metrics"

	"github.com/google/uuid"
)

const defaultTimeout = 10 * time.Second

const (
	opUpdateStatus = "update_status"
	opUpdateField  = "update_field"
	opMarkRead     = "mark_read"
	opPostReply    = "post_reply"
	opDelete       = "delete"
)

// Store is the part of the entity store the coordinator writes through.
type Store interface {
	repository.LeadReader
	repository.LeadWriter
	repository.InquiryReader
	repository.InquiryWriter
	repository.ReplyStore
}

// Policy decides visibility and permissions.
type Policy interface {
	VisibilityFilter(id domain.Identity) domain.Scope
	Authorize(id domain.Identity, op access.Operation, brandID string) error
}

// Publisher receives reconciled changes for other surfaces.
type Publisher interface {
	Publish(ev livesync.Event)
}

// Deps are the collaborators of a Coordinator. Hub, Bus, Metrics and Log are optional.
type Deps struct {
	Store   Store
	Policy  Policy
	View    *livesync.View
	Hub     Publisher
	Bus     events.Bus
	Metrics *metrics.Metrics
	Log     *logger.Logger
	Timeout time.Duration
	Now     func() time.Time
}

// Coordinator serializes mutations per ref and runs each one as
// snapshot, optimistic apply, authorize, persist, then reconcile or restore.
type Coordinator struct {
	store   Store
	policy  Policy
	view    *livesync.View
	hub     Publisher
	bus     events.Bus
	metrics *metrics.Metrics
	log     *logger.Logger
	timeout time.Duration
	now     func() time.Time

	mu       sync.Mutex
	inflight map[domain.Ref]struct{}
}

// New creates a coordinator.
func New(deps Deps) *Coordinator {
	c := &Coordinator{
		store:    deps.Store,
		policy:   deps.Policy,
		view:     deps.View,
		hub:      deps.Hub,
		bus:      deps.Bus,
		metrics:  deps.Metrics,
		log:      deps.Log,
		timeout:  deps.Timeout,
		now:      deps.Now,
		inflight: make(map[domain.Ref]struct{}),
	}
	if c.view == nil {
		c.view = livesync.NewView()
	}
	if c.log == nil {
		c.log = logger.Discard()
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// View returns the view the coordinator mutates.
func (c *Coordinator) View() *livesync.View {
	return c.view
}

// InFlight reports whether a mutation on ref is pending.
func (c *Coordinator) InFlight(ref domain.Ref) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[ref]
	return ok
}

func (c *Coordinator) acquire(ref domain.Ref) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[ref]; busy {
		return false
	}
	c.inflight[ref] = struct{}{}
	return true
}

func (c *Coordinator) release(ref domain.Ref) {
	c.mu.Lock()
	delete(c.inflight, ref)
	c.mu.Unlock()
}

// mutation describes one coordinated change. apply computes the optimistic
// record from the current one; save persists it against the current version.
// With skipUnchanged, a plan that keeps the version is answered without a write.
type mutation struct {
	op            string
	perm          access.Operation
	apply         func(current domain.Record, now time.Time) (domain.Record, error)
	save          func(ctx context.Context, next domain.Record, expected time.Time) (domain.Record, error)
	skipUnchanged bool
}

// UpdateStatus moves the record at ref to target.
func (c *Coordinator) UpdateStatus(ctx context.Context, caller domain.Identity, ref domain.Ref, target string) (domain.Record, error) {
	return c.mutate(ctx, caller, ref, mutation{
		op:   opUpdateStatus,
		perm: access.OpUpdate,
		apply: func(current domain.Record, now time.Time) (domain.Record, error) {
			switch rec := current.(type) {
			case domain.Lead:
				return domain.TransitionLead(rec, domain.LeadStatus(target), now)
			case domain.Inquiry:
				return domain.TransitionInquiry(rec, domain.InquiryStatus(target), now)
			default:
				return nil, unsupported(current)
			}
		},
		save: c.saveRecord,
	})
}

// UpdateField sets one editable field on the record at ref.
func (c *Coordinator) UpdateField(ctx context.Context, caller domain.Identity, ref domain.Ref, field string, value any) (domain.Record, error) {
	return c.mutate(ctx, caller, ref, mutation{
		op:   opUpdateField,
		perm: access.OpUpdate,
		apply: func(current domain.Record, now time.Time) (domain.Record, error) {
			switch rec := current.(type) {
			case domain.Lead:
				return domain.ApplyLeadField(rec, field, value, now)
			case domain.Inquiry:
				return domain.ApplyInquiryField(rec, field, value, now)
			default:
				return nil, unsupported(current)
			}
		},
		save: c.saveRecord,
	})
}

// MarkRead moves an unread inquiry to read. Any other status is returned
// unchanged without touching the store.
func (c *Coordinator) MarkRead(ctx context.Context, caller domain.Identity, inquiryID uuid.UUID) (domain.Inquiry, error) {
	rec, err := c.mutate(ctx, caller, domain.InquiryRef(inquiryID), mutation{
		op:   opMarkRead,
		perm: access.OpUpdate,
		apply: func(current domain.Record, now time.Time) (domain.Record, error) {
			q, ok := current.(domain.Inquiry)
			if !ok {
				return nil, unsupported(current)
			}
			next, _ := domain.MarkInquiryRead(q, now)
			return next, nil
		},
		save:          c.saveRecord,
		skipUnchanged: true,
	})
	if err != nil {
		return domain.Inquiry{}, err
	}
	return rec.(domain.Inquiry), nil
}

// PostReply stores a reply on an inquiry. A customer-facing reply moves the
// inquiry to replied; an internal note leaves it unchanged.
func (c *Coordinator) PostReply(ctx context.Context, caller domain.Identity, inquiryID uuid.UUID, message string, internal bool) (domain.Reply, domain.Inquiry, error) {
	var stored domain.Reply

	rec, err := c.mutate(ctx, caller, domain.InquiryRef(inquiryID), mutation{
		op:   opPostReply,
		perm: access.OpReply,
		apply: func(current domain.Record, now time.Time) (domain.Record, error) {
			q, ok := current.(domain.Inquiry)
			if !ok {
				return nil, unsupported(current)
			}
			reply, err := domain.NewReply(q.ID, caller.UserID, message, internal, now)
			if err != nil {
				return nil, err
			}
			stored = reply
			return domain.ApplyReply(q, reply, now), nil
		},
		save: func(ctx context.Context, next domain.Record, expected time.Time) (domain.Record, error) {
			reply, q, err := c.store.AddReply(ctx, stored, next.(domain.Inquiry), expected)
			if err != nil {
				return nil, err
			}
			stored = reply
			return q, nil
		},
	})
	if err != nil {
		return domain.Reply{}, domain.Inquiry{}, err
	}

	inquiry := rec.(domain.Inquiry)
	if !stored.IsInternalNote {
		c.emitReply(ctx, inquiry, stored)
	}
	return stored, inquiry, nil
}

// Delete removes the record at ref. Only admins and super admins may delete.
func (c *Coordinator) Delete(ctx context.Context, caller domain.Identity, ref domain.Ref) error {
	started := c.now()

	if !c.acquire(ref) {
		return c.reject(ref, opDelete, started)
	}
	defer c.release(ref)

	snap := c.view.Snapshot(ref)

	current, err := c.load(ctx, caller, ref)
	if err != nil {
		return c.fail(snap, opDelete, started, err)
	}

	c.view.OptimisticRemove(ref)

	if err := c.policy.Authorize(caller, access.OpDelete, current.Brand()); err != nil {
		return c.fail(snap, opDelete, started, err)
	}

	_, err = c.persist(ctx, func(ctx context.Context) (domain.Record, error) {
		switch ref.Type {
		case domain.EntityLead:
			return nil, c.store.DeleteLead(ctx, ref.ID)
		default:
			return nil, c.store.DeleteInquiry(ctx, ref.ID)
		}
	})
	if err != nil {
		return c.fail(snap, opDelete, started, err)
	}

	c.view.Remove(ref)
	deletedAt := domain.Stamp(c.now())
	if !deletedAt.After(current.Version()) {
		deletedAt = current.Version().Add(time.Microsecond)
	}
	c.publish(livesync.Deleted(ref, current.Brand(), deletedAt, livesync.OriginMutation))
	c.emitDeleted(ctx, caller, current)
	c.succeed(ref, opDelete, started)
	return nil
}

func (c *Coordinator) mutate(ctx context.Context, caller domain.Identity, ref domain.Ref, m mutation) (domain.Record, error) {
	op := m.op
	started := c.now()

	if !c.acquire(ref) {
		return nil, c.reject(ref, op, started)
	}
	defer c.release(ref)

	snap := c.view.Snapshot(ref)

	current, err := c.load(ctx, caller, ref)
	if err != nil {
		return nil, c.fail(snap, op, started, err)
	}

	next, err := m.apply(current, c.now())
	if err != nil {
		return nil, c.fail(snap, op, started, err)
	}

	c.view.Optimistic(next)

	if err := c.policy.Authorize(caller, m.perm, current.Brand()); err != nil {
		return nil, c.fail(snap, op, started, err)
	}

	if m.skipUnchanged && next.Version().Equal(current.Version()) {
		c.view.Reconcile(current)
		c.succeed(ref, op, started)
		return current, nil
	}

	persisted, err := c.persist(ctx, func(ctx context.Context) (domain.Record, error) {
		return m.save(ctx, next, current.Version())
	})
	if err != nil {
		return nil, c.fail(snap, op, started, err)
	}

	c.view.Reconcile(persisted)
	if persisted.Version().After(current.Version()) {
		c.publish(livesync.Updated(persisted, livesync.OriginMutation))
	}
	c.emitChange(ctx, caller, current, persisted)
	c.succeed(ref, op, started)
	return persisted, nil
}

// load returns the current state of ref, from the view when present and from
// the store otherwise. Records outside the caller's scope are reported as missing.
func (c *Coordinator) load(ctx context.Context, caller domain.Identity, ref domain.Ref) (domain.Record, error) {
	rec, ok := c.view.Get(ref)
	if !ok {
		var err error
		rec, err = c.persist(ctx, func(ctx context.Context) (domain.Record, error) {
			switch ref.Type {
			case domain.EntityLead:
				return c.store.GetLead(ctx, ref.ID)
			case domain.EntityInquiry:
				return c.store.GetInquiry(ctx, ref.ID)
			default:
				return nil, fmt.Errorf("%w: unknown entity type %q", domain.ErrValidation, ref.Type)
			}
		})
		if err != nil {
			return nil, err
		}
	}

	if !c.policy.VisibilityFilter(caller).Match(rec.Brand()) {
		return nil, access.ErrNotVisible
	}
	return rec, nil
}

// persist runs fn with the mutation timeout. A timeout is final: a late
// success from the store is discarded.
func (c *Coordinator) persist(ctx context.Context, fn func(ctx context.Context) (domain.Record, error)) (domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		rec domain.Record
		err error
	}
	done := make(chan result, 1)

	go func() {
		rec, err := fn(ctx)
		done <- result{rec: rec, err: err}
	}()

	select {
	case res := <-done:
		return res.rec, res.err
	case <-ctx.Done():
		return nil, apperr.Unavailable("the store did not answer in time", ctx.Err())
	}
}

func (c *Coordinator) saveRecord(ctx context.Context, next domain.Record, expected time.Time) (domain.Record, error) {
	switch rec := next.(type) {
	case domain.Lead:
		return c.store.UpdateLead(ctx, rec, expected)
	case domain.Inquiry:
		return c.store.UpdateInquiry(ctx, rec, expected)
	default:
		return nil, unsupported(next)
	}
}

func (c *Coordinator) publish(ev livesync.Event) {
	if c.hub != nil {
		c.hub.Publish(ev)
	}
}

func (c *Coordinator) reject(ref domain.Ref, op string, started time.Time) error {
	err := apperr.Conflict("mutation already in progress").WithOp(op)
	c.metrics.ObserveMutation(string(ref.Type), op, err.Kind.String(), c.now().Sub(started))
	return err
}

func (c *Coordinator) fail(snap livesync.Snapshot, op string, started time.Time, cause error) error {
	c.view.Restore(snap)
	err := errmap.Op(op, cause)
	kind := apperr.GetKind(err)
	c.metrics.ObserveMutation(string(snap.Ref.Type), op, kind.String(), c.now().Sub(started))
	c.log.MutationRolledBack(op, snap.Ref.String(), kind.String(), err)
	return err
}

func (c *Coordinator) succeed(ref domain.Ref, op string, started time.Time) {
	elapsed := c.now().Sub(started)
	c.metrics.ObserveMutation(string(ref.Type), op, "applied", elapsed)
	c.log.MutationApplied(op, ref.String(), float64(elapsed.Microseconds())/1000)
}

func unsupported(rec domain.Record) error {
	return fmt.Errorf("%w: unsupported record %T", domain.ErrValidation, rec)
}
