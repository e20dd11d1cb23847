package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// State is a step of the booking flow.
type State string

const (
	StateInit            State = "INIT"
	StateAwaitingName    State = "AWAITING_NAME"
	StateAwaitingService State = "AWAITING_SERVICE"
)

// Known reports whether s is one of the defined states.
func (s State) Known() bool {
	switch s {
	case StateInit, StateAwaitingName, StateAwaitingService:
		return true
	}
	return false
}

// UserSession is the per-user conversation state keyed by canonical id.
type UserSession struct {
	UserID       string    `json:"user_id" dynamodbav:"userId"`
	State        State     `json:"state" dynamodbav:"state"`
	CapturedName string    `json:"captured_name" dynamodbav:"capturedName"`
	UpdatedAt    time.Time `json:"updated_at" dynamodbav:"updatedAt"`
}

// NewSession returns the default session created on first contact.
func NewSession(userID string) UserSession {
	return UserSession{UserID: userID, State: StateInit}
}

// Validate checks the name-before-service invariant.
func (s UserSession) Validate() error {
	if !s.State.Known() {
		return fmt.Errorf("conversation: unknown state %q", s.State)
	}
	if s.State == StateAwaitingService && s.CapturedName == "" {
		return errors.New("conversation: awaiting service without a captured name")
	}
	return nil
}

// Repaired returns s unchanged when valid, otherwise a reset INIT session.
func (s UserSession) Repaired() UserSession {
	if s.Validate() == nil {
		return s
	}
	return UserSession{UserID: s.UserID, State: StateInit, UpdatedAt: s.UpdatedAt}
}

// sameState compares the fields the engine owns.
func sameState(a, b UserSession) bool {
	return a.State == b.State && a.CapturedName == b.CapturedName
}

// EventKind distinguishes typed text from a button tap.
type EventKind string

const (
	KindText        EventKind = "TEXT"
	KindButtonReply EventKind = "BUTTON_REPLY"
)

// InboundEvent is the normalized form of one webhook delivery.
type InboundEvent struct {
	SenderID    string
	Kind        EventKind
	Payload     string
	MessageID   string
	ProfileName string
	Timestamp   time.Time
}

// SessionStore persists sessions keyed by canonical user id.
type SessionStore interface {
	// Find returns the stored session or ErrSessionNotFound. It never writes.
	Find(ctx context.Context, userID string) (UserSession, error)
	// GetOrCreate returns the stored session, persisting a fresh INIT one on first access.
	GetOrCreate(ctx context.Context, userID string) (UserSession, error)
	// Update overwrites the stored session.
	Update(ctx context.Context, session UserSession) error
}

// ErrSessionNotFound is returned by Find for a user with no stored session.
var ErrSessionNotFound = errors.New("conversation: session not found")

// StoreError wraps a persistence failure.
type StoreError struct {
	Op     string
	UserID string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("conversation: session store %s for %s: %v", e.Op, e.UserID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op, userID string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, UserID: userID, Err: err}
}
