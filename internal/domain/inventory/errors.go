package inventory

import "github.com/erp/stockledger/internal/domain/shared"

// Ledger errors. All of them are reported to the caller that triggered the movement.
var (
	ErrNoActivePeriod       = shared.NewDomainError("NO_ACTIVE_PERIOD", "No running period")
	ErrPeriodClosed         = shared.NewDomainError("PERIOD_CLOSED", "Period is closed")
	ErrAlreadyPosted        = shared.NewDomainError("ALREADY_POSTED", "Movement has already been posted")
	ErrInvalidMovement      = shared.NewDomainError("INVALID_MOVEMENT", "Invalid stock movement")
	ErrPeriodNotFound       = shared.NewDomainError("PERIOD_NOT_FOUND", "Period not found")
	ErrPeriodAlreadyRunning = shared.NewDomainError("PERIOD_ALREADY_RUNNING", "Another period is already running")
	ErrAccountNotOpen       = shared.NewDomainError("ACCOUNT_NOT_OPEN", "No open stock card for product in period")
	ErrProjectionDrift      = shared.NewDomainError("PROJECTION_DRIFT", "Current stock does not match the stock card")
)
