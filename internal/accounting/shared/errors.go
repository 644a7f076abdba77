// Package shared holds the error taxonomy common to the accounting packages.
package shared

import "errors"

var (
	// ErrValidationFailed indicates a malformed posting request, rejected before any write.
	ErrValidationFailed = errors.New("accounting: validation failed")
	// ErrUnbalanced indicates debit != credit beyond tolerance.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("accounting: journal requires at least two lines")
	// ErrNotFound indicates a tenant-scoped resource is missing.
	ErrNotFound = errors.New("accounting: not found")
	// ErrConflict indicates a uniqueness violation (account number, source link).
	ErrConflict = errors.New("accounting: conflict")
	// ErrForbidden indicates a system-account protection was hit.
	ErrForbidden = errors.New("accounting: forbidden")
	// ErrAlreadyPosted indicates the entry is already posted.
	ErrAlreadyPosted = errors.New("accounting: journal already posted")
	// ErrInvalidTransition indicates the lifecycle transition is not allowed.
	ErrInvalidTransition = errors.New("accounting: invalid status transition")
	// ErrImmutable indicates mutation of a posted entry.
	ErrImmutable = errors.New("accounting: posted journal is immutable")
	// ErrSelfParent indicates an account referencing itself as parent.
	ErrSelfParent = errors.New("accounting: account cannot be its own parent")
	// ErrHierarchyCycle indicates a re-parent that would close a cycle.
	ErrHierarchyCycle = errors.New("accounting: account hierarchy cycle")
	// ErrAccountNotConfigured indicates a required well-known account is missing for the tenant.
	ErrAccountNotConfigured = errors.New("accounting: account not configured")
	// ErrPostingFailed indicates a mid-protocol failure after the header write.
	ErrPostingFailed = errors.New("accounting: posting failed")
	// ErrSourceAlreadyLinked indicates an idempotency conflict on the source link.
	ErrSourceAlreadyLinked = errors.New("accounting: source already linked")
)
