package livesync

import (
	"reflect"
	"sync"

	"marketplace_backend/internal/pipeline/domain"
)

// Snapshot is the state of one ref captured before an optimistic change.
type Snapshot struct {
	Ref     domain.Ref
	Record  domain.Record
	Present bool
}

// View is a surface's local copy of the records it displays. Refs with an
// optimistic change in flight ignore incoming events until they are
// reconciled or restored.
type View struct {
	mu      sync.RWMutex
	records map[domain.Ref]domain.Record
	pending map[domain.Ref]struct{}
}

// NewView creates an empty view.
func NewView() *View {
	return &View{
		records: make(map[domain.Ref]domain.Record),
		pending: make(map[domain.Ref]struct{}),
	}
}

// Get returns a copy of the record stored for ref.
func (v *View) Get(ref domain.Ref) (domain.Record, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	rec, ok := v.records[ref]
	if !ok {
		return nil, false
	}
	return rec.CloneRecord(), true
}

// Snapshot captures ref for a later Restore.
func (v *View) Snapshot(ref domain.Ref) Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	rec, ok := v.records[ref]
	if !ok {
		return Snapshot{Ref: ref}
	}
	return Snapshot{Ref: ref, Record: rec.CloneRecord(), Present: true}
}

// Put stores an authoritative record, for example on initial load.
func (v *View) Put(rec domain.Record) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.records[rec.Ref()] = rec.CloneRecord()
}

// Optimistic stores an unconfirmed record and marks its ref pending.
func (v *View) Optimistic(rec domain.Record) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ref := rec.Ref()
	v.records[ref] = rec.CloneRecord()
	v.pending[ref] = struct{}{}
}

// OptimisticRemove hides ref pending an unconfirmed delete.
func (v *View) OptimisticRemove(ref domain.Ref) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.records, ref)
	v.pending[ref] = struct{}{}
}

// Reconcile replaces the optimistic record with the store's answer.
func (v *View) Reconcile(rec domain.Record) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ref := rec.Ref()
	v.records[ref] = rec.CloneRecord()
	delete(v.pending, ref)
}

// Restore puts back exactly what s captured and clears the pending mark.
func (v *View) Restore(s Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s.Present {
		v.records[s.Ref] = s.Record.CloneRecord()
	} else {
		delete(v.records, s.Ref)
	}
	delete(v.pending, s.Ref)
}

// Remove drops ref and clears any pending mark.
func (v *View) Remove(ref domain.Ref) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.records, ref)
	delete(v.pending, ref)
}

// Pending reports whether ref has an unconfirmed change.
func (v *View) Pending(ref domain.Ref) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.pending[ref]
	return ok
}

// Apply folds an event into the view and reports whether anything changed.
// Events for pending refs and events older than the stored record are ignored.
func (v *View) Apply(ev Event) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, busy := v.pending[ev.Ref]; busy {
		return false
	}

	current, ok := v.records[ev.Ref]
	switch ev.Type {
	case EventDeleted:
		if !ok {
			return false
		}
		delete(v.records, ev.Ref)
		return true
	case EventUpdated:
		if ev.Record == nil {
			return false
		}
		if ok {
			if ev.UpdatedAt.Before(current.Version()) {
				return false
			}
			if reflect.DeepEqual(current, ev.Record) {
				return false
			}
		}
		v.records[ev.Ref] = ev.Record.CloneRecord()
		return true
	default:
		return false
	}
}

// Records returns copies of every stored record, in no particular order.
func (v *View) Records() []domain.Record {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]domain.Record, 0, len(v.records))
	for _, rec := range v.records {
		out = append(out, rec.CloneRecord())
	}
	return out
}

// Len returns the number of stored records.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.records)
}
