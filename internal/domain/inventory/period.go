package inventory

import (
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
)

// PeriodKey identifies an accounting month
type PeriodKey struct {
	Month int
	Year  int
}

// NewPeriodKey validates and creates a PeriodKey
func NewPeriodKey(month, year int) (PeriodKey, error) {
	if month < 1 || month > 12 {
		return PeriodKey{}, shared.NewDomainError("INVALID_PERIOD", fmt.Sprintf("Month must be between 1 and 12, got %d", month))
	}
	if year < 1900 || year > 9999 {
		return PeriodKey{}, shared.NewDomainError("INVALID_PERIOD", fmt.Sprintf("Year %d is out of range", year))
	}
	return PeriodKey{Month: month, Year: year}, nil
}

// PeriodKeyOf returns the month a timestamp falls in
func PeriodKeyOf(t time.Time) PeriodKey {
	return PeriodKey{Month: int(t.Month()), Year: t.Year()}
}

// Next returns the following month, wrapping December into January of the next year
func (k PeriodKey) Next() PeriodKey {
	if k.Month >= 12 {
		return PeriodKey{Month: 1, Year: k.Year + 1}
	}
	return PeriodKey{Month: k.Month + 1, Year: k.Year}
}

// Previous returns the preceding month
func (k PeriodKey) Previous() PeriodKey {
	if k.Month <= 1 {
		return PeriodKey{Month: 12, Year: k.Year - 1}
	}
	return PeriodKey{Month: k.Month - 1, Year: k.Year}
}

// Before reports whether k is an earlier month than other
func (k PeriodKey) Before(other PeriodKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// String formats the key as YYYY-MM
func (k PeriodKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// PeriodStatus represents the lifecycle state of a period
type PeriodStatus string

const (
	PeriodStatusOpen    PeriodStatus = "OPEN"
	PeriodStatusRunning PeriodStatus = "RUNNING"
	PeriodStatusClosed  PeriodStatus = "CLOSED"
)

// IsValid checks if the status is a valid PeriodStatus
func (s PeriodStatus) IsValid() bool {
	switch s {
	case PeriodStatusOpen, PeriodStatusRunning, PeriodStatusClosed:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can transition to the target status
func (s PeriodStatus) CanTransitionTo(target PeriodStatus) bool {
	switch s {
	case PeriodStatusOpen:
		return target == PeriodStatusRunning
	case PeriodStatusRunning:
		return target == PeriodStatusClosed
	}
	return false
}

// ConfirmationStatus records whether a closed period has been reviewed
type ConfirmationStatus string

const (
	ConfirmationPending   ConfirmationStatus = "PENDING"
	ConfirmationConfirmed ConfirmationStatus = "CONFIRMED"
)

// Period is an accounting month. At most one period is RUNNING at a time;
// that one is the active period movements are posted into.
type Period struct {
	shared.Aggregate
	Month        int
	Year         int
	Status       PeriodStatus
	Confirmation ConfirmationStatus
	StartedAt    *time.Time
	ClosedAt     *time.Time
	ConfirmedAt  *time.Time
	Tombstoned   bool
	TombstonedAt *time.Time
}

// NewPeriod creates an OPEN period
func NewPeriod(key PeriodKey) (*Period, error) {
	if _, err := NewPeriodKey(key.Month, key.Year); err != nil {
		return nil, err
	}
	return &Period{
		Aggregate:    shared.NewAggregate(),
		Month:        key.Month,
		Year:         key.Year,
		Status:       PeriodStatusOpen,
		Confirmation: ConfirmationPending,
	}, nil
}

// Key returns the period's month/year
func (p *Period) Key() PeriodKey {
	return PeriodKey{Month: p.Month, Year: p.Year}
}

// IsRunning reports whether the period is the active one
func (p *Period) IsRunning() bool {
	return p.Status == PeriodStatusRunning && !p.Tombstoned
}

// IsClosed reports whether the period has been sealed
func (p *Period) IsClosed() bool {
	return p.Status == PeriodStatusClosed
}

// Start moves an OPEN period to RUNNING
func (p *Period) Start() error {
	if p.Tombstoned {
		return ErrPeriodNotFound.WithMessage(fmt.Sprintf("Period %s is tombstoned", p.Key()))
	}
	if !p.Status.CanTransitionTo(PeriodStatusRunning) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start period %s in status %s", p.Key(), p.Status))
	}
	now := time.Now()
	p.Status = PeriodStatusRunning
	p.StartedAt = &now
	p.Touch(now)
	p.RaiseEvent(NewPeriodStartedEvent(p))
	return nil
}

// Close seals a RUNNING period
func (p *Period) Close() error {
	if p.Status == PeriodStatusClosed {
		return ErrPeriodClosed.WithMessage(fmt.Sprintf("Period %s is already closed", p.Key()))
	}
	if !p.Status.CanTransitionTo(PeriodStatusClosed) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot close period %s in status %s", p.Key(), p.Status))
	}
	now := time.Now()
	p.Status = PeriodStatusClosed
	p.ClosedAt = &now
	p.Touch(now)
	return nil
}

// Confirm marks a closed period as reviewed
func (p *Period) Confirm() error {
	if p.Status != PeriodStatusClosed {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Only closed periods can be confirmed, %s is %s", p.Key(), p.Status))
	}
	if p.Confirmation == ConfirmationConfirmed {
		return nil
	}
	now := time.Now()
	p.Confirmation = ConfirmationConfirmed
	p.ConfirmedAt = &now
	p.Touch(now)
	return nil
}

// Tombstone retires the period. The running period cannot be retired.
func (p *Period) Tombstone() error {
	if p.Status == PeriodStatusRunning {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot tombstone running period %s", p.Key()))
	}
	if p.Tombstoned {
		return nil
	}
	now := time.Now()
	p.Tombstoned = true
	p.TombstonedAt = &now
	p.Touch(now)
	return nil
}

// CheckWritable returns ErrPeriodClosed if movements may no longer land in the period
func (p *Period) CheckWritable() error {
	if p.Tombstoned {
		return ErrPeriodNotFound.WithMessage(fmt.Sprintf("Period %s is tombstoned", p.Key()))
	}
	if p.Status == PeriodStatusClosed {
		return ErrPeriodClosed.WithMessage(fmt.Sprintf("Period %s is closed", p.Key()))
	}
	return nil
}
