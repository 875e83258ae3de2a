package auction

import "errors"

// Validator rejections. These are user-correctable and are reported to the
// originating session only; they never mutate state and never broadcast.
var (
	ErrMalformedAmount  = errors.New("bid amount must be a positive number with at most one decimal digit")
	ErrInvalidIncrement = errors.New("bid must raise the current bid by 0.5, 1, or a larger half-unit increment")
	ErrBudgetExceeded   = errors.New("bid exceeds remaining budget")
)

// Structural rejections. Synchronous, typed, and never partially applied.
var (
	ErrUnauthorized     = errors.New("operation requires a privileged identity")
	ErrWrongPhase       = errors.New("operation not permitted in the current auction phase")
	ErrCatalogExhausted = errors.New("no unauctioned players remain")
)

// ErrLedgerInconsistency marks a debit failure at resolution time. Validation
// should make this unreachable; when it happens the engine refuses all further
// mutation rather than clamping or masking the drift.
var ErrLedgerInconsistency = errors.New("ledger inconsistency: debit failed at resolution")
