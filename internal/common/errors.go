package common

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every typed error below matches exactly one of them with
// errors.Is, so callers can branch on the category without errors.As.
var (
	ErrValidation     = errors.New("validation failed")
	ErrAuth           = errors.New("authentication failed")
	ErrUpload         = errors.New("attachment upload failed")
	ErrNotFound       = errors.New("not found")
	ErrTransport      = errors.New("transport failure")
	ErrSessionExpired = errors.New("session expired")

	// Preview handle errors.
	ErrHandleReleased = errors.New("preview handle released")
	ErrNotImage       = errors.New("attachment is not an image")
	ErrScopeClosed    = errors.New("preview scope closed")
)

// ValidationError reports a missing or malformed input. It is always raised
// before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// AuthError reports rejected credentials or an expired session. Status is the
// HTTP status returned by the backend, zero when the failure was detected locally.
type AuthError struct {
	Status  int
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		return ErrAuth.Error()
	}
	return fmt.Sprintf("%s: %s", ErrAuth, msg)
}

func (e *AuthError) Is(target error) bool { return target == ErrAuth }

func (e *AuthError) Unwrap() error { return e.Err }

// UploadError reports that the note text was saved but the attachment phase
// failed. The note identified by NoteID exists on the server.
type UploadError struct {
	NoteID string
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("note %s saved, %s: %v", e.NoteID, ErrUpload, e.Err)
}

func (e *UploadError) Is(target error) bool { return target == ErrUpload }

func (e *UploadError) Unwrap() error { return e.Err }

// NotFoundError reports a stale identifier.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Resource, e.ID, ErrNotFound)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// TransportError reports a network, status or decoding failure. Message holds
// the backend's own message when one was available.
type TransportError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	default:
		return fmt.Sprintf("%s: %s", e.Op, ErrTransport)
	}
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Unwrap() error { return e.Err }
