package journal

import (
	"fmt"
	"strings"

	"github.com/starford/folio/internal/apperr"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperr.ErrValidation, fmt.Sprintf(format, args...))
}

// invalidInput wraps an ozzo-validation error.
func invalidInput(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", apperr.ErrValidation, err)
}

func notFound(what, id string) error {
	return fmt.Errorf("%w: %s %q", apperr.ErrNotFound, what, id)
}

func cascade(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperr.ErrCascade, fmt.Sprintf(format, args...))
}

// BulkMigrateError reports how far a bulk migration got before it stopped.
// Migrations that succeeded are not rolled back.
type BulkMigrateError struct {
	Failed       string
	Err          error
	Migrated     []string
	NotAttempted []string
}

func (e *BulkMigrateError) Error() string {
	return fmt.Sprintf("bulk migrate stopped at %q after %d of %d: %v",
		e.Failed, len(e.Migrated), len(e.Migrated)+1+len(e.NotAttempted), e.Err)
}

func (e *BulkMigrateError) Unwrap() error { return e.Err }

// Unmigrated returns the failed id followed by the ids never attempted.
func (e *BulkMigrateError) Unmigrated() []string {
	return append([]string{e.Failed}, e.NotAttempted...)
}

// describe is used in BulkMigrateError logs.
func describe(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ",")
}
