package ralphflow

import (
	"errors"
	"fmt"
)

// Lifecycle errors. Every precondition failure is surfaced synchronously as
// one of these, with no partial state mutation behind it.
var (
	// ErrSessionNotFound indicates an unknown session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists indicates a session already exists for the
	// (project, feature) pair.
	ErrSessionExists = errors.New("session already exists")

	// ErrVersionConflict indicates a stale DataVersion on an edit.
	ErrVersionConflict = errors.New("session version conflict")

	// ErrInvalidTransition indicates the requested stage or action is not
	// legal from the session's current status.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrPlanNotApproved indicates stage 3 was requested without an
	// approved plan.
	ErrPlanNotApproved = errors.New("plan not approved")

	// ErrPRMissing indicates a review outcome was requested before the
	// pr_creation stage produced a pull request.
	ErrPRMissing = errors.New("pull request artifact missing")

	// ErrFeedbackRequired indicates a review outcome that demands
	// feedback text was submitted without any.
	ErrFeedbackRequired = errors.New("feedback text required")

	// ErrNotPaused indicates resume was called on a session that is not
	// paused.
	ErrNotPaused = errors.New("session not paused")

	// ErrTerminalSession indicates an operation on a completed or failed
	// session.
	ErrTerminalSession = errors.New("session is terminal")

	// ErrLockHeld indicates an assistant invocation is already in flight
	// for the session. The admission lock fails fast; it never queues.
	ErrLockHeld = errors.New("assistant invocation already in flight")
)

// LifecycleError wraps a lifecycle failure with the session and action that
// produced it.
type LifecycleError struct {
	SessionID string
	Action    string
	Err       error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("session %s: %s: %v", e.SessionID, e.Action, e.Err)
}

func (e *LifecycleError) Unwrap() error { return e.Err }

// lifecycleErr builds a LifecycleError around a sentinel.
func lifecycleErr(sessionID, action string, err error) error {
	return &LifecycleError{SessionID: sessionID, Action: action, Err: err}
}

// IsConflict reports whether err is a concurrency conflict (stale version or
// held lock), the class a caller may retry after re-reading.
func IsConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrLockHeld)
}

// IsPrecondition reports whether err is a rejected precondition rather than
// an infrastructure failure.
func IsPrecondition(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidTransition, ErrPlanNotApproved, ErrPRMissing,
		ErrFeedbackRequired, ErrNotPaused, ErrTerminalSession,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
