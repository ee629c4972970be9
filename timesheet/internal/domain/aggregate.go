package domain

import "github.com/google/uuid"

const (
	AggregateTypeWorkLog  = "worklog_entry"
	AggregateTypeAbsence  = "absence"
	AggregateTypeApproval = "monthly_approval"
)

// Aggregate is what the repository needs to rebuild and persist an
// event-sourced entity. State is always a pure fold of apply over the
// ordered event history; there is no other mutation path.
type Aggregate interface {
	ID() uuid.UUID
	AggregateType() string
	Version() int
	Uncommitted() []Event
	MarkCommitted(n int)
	Replay(ev Event) error
	SnapshotState() ([]byte, error)
	RestoreSnapshot(id uuid.UUID, version int, state []byte) error
}

// Root carries the identity, version counter and uncommitted-event buffer
// shared by every aggregate. Version stays at the last persisted value while
// commands raise events; it only advances on Replay or MarkCommitted.
type Root struct {
	id          uuid.UUID
	version     int
	uncommitted []Event
}

func (r *Root) ID() uuid.UUID { return r.id }

func (r *Root) Version() int { return r.version }

func (r *Root) Uncommitted() []Event { return r.uncommitted }

// MarkCommitted advances the version past n freshly persisted events and
// drops the buffer. Called by the repository after a successful append.
func (r *Root) MarkCommitted(n int) {
	r.version += n
	r.uncommitted = nil
}

func (r *Root) setID(id uuid.UUID) { r.id = id }

func (r *Root) setVersion(v int) { r.version = v }

func (r *Root) bump() { r.version++ }

func (r *Root) buffer(ev Event) {
	if r.id == uuid.Nil {
		r.id = ev.AggregateID()
	}
	r.uncommitted = append(r.uncommitted, ev)
}
