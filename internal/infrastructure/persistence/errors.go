package persistence

import (
	"errors"
	"strings"

	"github.com/erp/stockledger/internal/domain/shared"
	"gorm.io/gorm"
)

// isDuplicateKey reports whether err is a unique-constraint violation.
// Dialects with TranslateError return gorm.ErrDuplicatedKey; the string
// checks cover connections opened without it.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate entry")
}

// notFound maps gorm's missing-row error to shared.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// versionedUpdate applies updates to the row whose stored version is one behind the aggregate.
// A lost race affects no rows and yields shared.ErrConcurrencyConflict.
func versionedUpdate(result *gorm.DB, what string) error {
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithMessage(what + " was modified by another transaction")
	}
	return nil
}
