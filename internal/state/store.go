// Package state holds the session store, its upload registry substate and the
// feature gates derived from it.
//
// A Store is owned by one control goroutine (the TUI update loop or a CLI
// command). Every mutation notifies observers synchronously, before the
// mutating call returns.
package state

import (
	"errors"
	"fmt"

	"tekshila/internal/model"
)

// Field names a mutable part of the session.
type Field int

const (
	FieldView Field = iota
	FieldPurpose
	FieldConnection
	FieldUploads
	FieldQualityFile
	FieldArtifact
	FieldReport
	FieldLastChange
)

func (f Field) String() string {
	switch f {
	case FieldView:
		return "view"
	case FieldPurpose:
		return "purpose"
	case FieldConnection:
		return "connection"
	case FieldUploads:
		return "uploads"
	case FieldQualityFile:
		return "quality_file"
	case FieldArtifact:
		return "artifact"
	case FieldReport:
		return "report"
	case FieldLastChange:
		return "last_change"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// Change is delivered to observers after a field is replaced.
// Value holds a copy of the new field value (nil pointers for cleared fields).
type Change struct {
	Field Field
	Value any
}

// Observer receives store changes.
type Observer interface {
	StoreChanged(Change)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Change)

func (f ObserverFunc) StoreChanged(c Change) { f(c) }

// ErrReentrantSet is the panic value raised when an observer writes the field
// it is currently being notified about.
var ErrReentrantSet = errors.New("state: re-entrant set of field under notification")

type subscription struct {
	id  int
	obs Observer
}

// Store holds the session and notifies observers of every change.
type Store struct {
	session   model.Session
	observers []subscription
	nextID    int
	notifying map[Field]int
}

// NewStore returns a store seeded with initial.
func NewStore(initial model.Session) *Store {
	return &Store{
		session:   initial.Clone(),
		notifying: make(map[Field]int),
	}
}

// Get returns an immutable snapshot of the session.
func (s *Store) Get() model.Session {
	return s.session.Clone()
}

// Subscribe registers obs and returns a function that unregisters it.
func (s *Store) Subscribe(obs Observer) (unsubscribe func()) {
	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, subscription{id: id, obs: obs})
	return func() {
		for i, sub := range s.observers {
			if sub.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// SetView switches the active tab.
func (s *Store) SetView(v model.View) {
	s.set(FieldView, func(ss *model.Session) { ss.View = v })
}

// SetPurpose selects README or commented-code generation.
func (s *Store) SetPurpose(p model.Purpose) {
	s.set(FieldPurpose, func(ss *model.Session) { ss.Purpose = p })
}

// SetConnection installs an authenticated connection. Incomplete connections
// are rejected so the session never holds a token without an identity.
func (s *Store) SetConnection(c model.Connection) error {
	if !c.Valid() {
		return errors.New("state: refusing incomplete connection")
	}
	s.set(FieldConnection, func(ss *model.Session) { ss.Connection = &c })
	return nil
}

// ClearConnection drops the connection.
func (s *Store) ClearConnection() {
	s.set(FieldConnection, func(ss *model.Session) { ss.Connection = nil })
}

// SetArtifact replaces the generated artifact. The store keeps its own copy.
func (s *Store) SetArtifact(a model.Artifact) {
	own := model.Session{Artifact: &a}.Clone().Artifact
	s.set(FieldArtifact, func(ss *model.Session) { ss.Artifact = own })
}

// SetReport replaces the latest quality report. The store keeps its own copy.
func (s *Store) SetReport(r model.QualityReport) {
	own := model.Session{Report: &r}.Clone().Report
	s.set(FieldReport, func(ss *model.Session) { ss.Report = own })
}

// SetLastChange records the most recently created change request.
func (s *Store) SetLastChange(ref model.ChangeRequestRef) {
	s.set(FieldLastChange, func(ss *model.Session) { ss.LastChange = &ref })
}

// set applies mutate and notifies observers. Each observer receives its own
// copy of the new field value, so nothing an observer does to it reaches the
// store. Observers that write the same field during their own notification
// trip ErrReentrantSet.
func (s *Store) set(field Field, mutate func(*model.Session)) {
	if s.notifying[field] > 0 {
		panic(fmt.Errorf("%w: %s", ErrReentrantSet, field))
	}
	mutate(&s.session)

	s.notifying[field]++
	defer func() { s.notifying[field]-- }()

	// Snapshot the list so observers may unsubscribe while being notified.
	subs := append([]subscription(nil), s.observers...)
	for _, sub := range subs {
		sub.obs.StoreChanged(Change{Field: field, Value: s.value(field)})
	}
}

// value returns a copy of one session field, typed as documented on Change.
func (s *Store) value(field Field) any {
	ss := s.session
	switch field {
	case FieldView:
		return ss.View
	case FieldPurpose:
		return ss.Purpose
	case FieldConnection:
		return model.Session{Connection: ss.Connection}.Clone().Connection
	case FieldUploads:
		return model.Session{Uploads: ss.Uploads}.Clone().Uploads
	case FieldQualityFile:
		return model.Session{QualityFile: ss.QualityFile}.Clone().QualityFile
	case FieldArtifact:
		return model.Session{Artifact: ss.Artifact}.Clone().Artifact
	case FieldReport:
		return model.Session{Report: ss.Report}.Clone().Report
	default:
		return model.Session{LastChange: ss.LastChange}.Clone().LastChange
	}
}
