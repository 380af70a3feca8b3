package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the dispatch and reconciliation paths.
// Callers classify with errors.Is; concrete errors wrap one of these.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrRejectedByPolicy    = errors.New("rejected by policy")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInvalidInput        = errors.New("invalid input")
)

var (
	// ErrInvalidReason is returned for an end reason outside the known set.
	ErrInvalidReason = fmt.Errorf("%w: unknown end reason", ErrInvalidInput)

	// ErrQuotaExhausted is returned when a live mapping has no click quota left.
	ErrQuotaExhausted = fmt.Errorf("%w: quota exhausted", ErrConflict)

	// ErrAlreadyFinalized is returned when a completion arrives for a record
	// that is no longer active.
	ErrAlreadyFinalized = fmt.Errorf("%w: dispatch already finalized", ErrConflict)
)

// ErrIdentifierTaken is returned by the ledger when a freshly minted hash
// identifier collides with an existing record.
var ErrIdentifierTaken = fmt.Errorf("%w: hash identifier already issued", ErrConflict)

// ErrSTIDTaken is returned when a mapping token already belongs to another
// project or supplier. Tokens are never moved between mappings.
var ErrSTIDTaken = fmt.Errorf("%w: supplier mapping token already in use", ErrConflict)
