// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// decision pipeline and handlers to distinguish between failure
// scenarios without inspecting SQL errors. For example the pipeline
// maps ErrQuotaExhausted to a rejected outcome while ErrShowUnavailable
// covers both a missing and an inactive show.
package repository

import "errors"

// ErrMemberNotFound is returned when no member matches the given email.
var ErrMemberNotFound = errors.New("member not found")

// ErrShowNotFound is returned when a show id or code has no row.
var ErrShowNotFound = errors.New("show not found")

// ErrShowUnavailable is returned by the reserve primitive when the
// referenced show does not exist or is no longer active.
var ErrShowUnavailable = errors.New("show unavailable")

// ErrQuotaExhausted is returned by the reserve primitive when every
// discount slot of the show is already taken by an active queue item.
var ErrQuotaExhausted = errors.New("quota exhausted")

// ErrItemNotFound is returned when a supervision queue item does not exist.
var ErrItemNotFound = errors.New("queue item not found")

// ErrInvalidTransition is returned when a supervisor action does not
// apply to the item's current status, e.g. markSent on a still-pending
// item or an edit after the email went out. The item is left untouched.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrTemplateNotFound is returned when a named email template has no
// row. Callers fall back to the built-in template set.
var ErrTemplateNotFound = errors.New("template not found")

// ErrSupervisorNotFound is returned when a supervisor login email is unknown.
var ErrSupervisorNotFound = errors.New("supervisor not found")

// ErrDuplicateEmail is returned when an insert collides with the
// unique email constraint on members or supervisors.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrDuplicateCode is returned when a show insert collides with the
// unique code constraint.
var ErrDuplicateCode = errors.New("show code already registered")
