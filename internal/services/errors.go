package services

import (
	"errors"
	"fmt"
)

// Kind classifies service errors for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindForbidden
	KindPartialFailure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindPartialFailure:
		return "partial_failure"
	default:
		return "internal"
	}
}

// Error is the error type returned by every service operation.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches service errors by code, so wrapped copies of a sentinel still
// satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code != "" && t.Code == e.Code
}

// Sentinels, compared with errors.Is.
var (
	ErrHandleInvalid      = &Error{Kind: KindValidation, Code: "handle_invalid", Message: "handle must be 3-20 letters, digits or underscores"}
	ErrWeakCredential     = &Error{Kind: KindValidation, Code: "weak_credential", Message: "password does not meet the policy"}
	ErrEmptyPost          = &Error{Kind: KindValidation, Code: "empty_post", Message: "post needs a body or an image"}
	ErrPostTooLong        = &Error{Kind: KindValidation, Code: "post_too_long", Message: "post body is too long"}
	ErrInvalidReason      = &Error{Kind: KindValidation, Code: "invalid_reason", Message: "unknown report reason or details too long"}
	ErrInvalidRole        = &Error{Kind: KindValidation, Code: "invalid_role", Message: "unknown role"}
	ErrInvalidUpload      = &Error{Kind: KindValidation, Code: "invalid_upload", Message: "image upload rejected"}
	ErrHandleTaken        = &Error{Kind: KindConflict, Code: "handle_taken", Message: "handle is already taken"}
	ErrEmailTaken         = &Error{Kind: KindConflict, Code: "email_taken", Message: "email is already registered"}
	ErrSelfFollow         = &Error{Kind: KindConflict, Code: "self_follow", Message: "an account cannot follow itself"}
	ErrReportNotPending   = &Error{Kind: KindConflict, Code: "report_not_pending", Message: "report has already been handled"}
	ErrCannotRepostRepost = &Error{Kind: KindConflict, Code: "cannot_repost_repost", Message: "a repost cannot be reposted"}
	ErrBlocked            = &Error{Kind: KindForbidden, Code: "blocked_account", Message: "account is blocked"}
	ErrNotAdmin           = &Error{Kind: KindForbidden, Code: "not_admin", Message: "admin role required"}
	ErrNotOwner           = &Error{Kind: KindForbidden, Code: "not_owner", Message: "only the author may do this"}
	ErrNotFound           = &Error{Kind: KindNotFound, Code: "not_found", Message: "not found"}
	ErrPartialFailure     = &Error{Kind: KindPartialFailure, Code: "partial_failure", Message: "operation partially applied"}
)

// New copies a sentinel with a more specific message.
func New(base *Error, message string) *Error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: message}
}

// Wrap copies a sentinel around a cause.
func Wrap(base *Error, message string, err error) *Error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: message, Err: err}
}

// Internal wraps an unexpected store or provider failure.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal", Message: message, Err: err}
}

// Partial reports that step failed after earlier steps committed.
func Partial(step string, err error) *Error {
	return Wrap(ErrPartialFailure, step+" failed after earlier writes committed", err)
}

// KindOf returns the kind of a service error, KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
