package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorType represents the type of database error that occurred
type ErrorType string

const (
	DuplicateKeyError ErrorType = "duplicate_key"
	TransientError    ErrorType = "transient"
	LockError         ErrorType = "lock"
	ConnectionError   ErrorType = "connection"
	ConstraintError   ErrorType = "constraint"
)

// ErrorClassifier sorts driver errors into the few kinds the ledger reacts to.
// Postgres errors are classified by SQLSTATE; anything else by message.
type ErrorClassifier struct{}

// NewErrorClassifier creates a new ErrorClassifier
func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{}
}

// Classify returns the type of error, or "" when it is none of the known kinds
func (c *ErrorClassifier) Classify(err error) ErrorType {
	if err == nil {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifySQLState(pgErr.Code)
	}
	return classifyMessage(strings.ToLower(err.Error()))
}

func classifySQLState(code string) ErrorType {
	switch {
	case code == "23505":
		return DuplicateKeyError
	case strings.HasPrefix(code, "23"):
		return ConstraintError
	case code == "40001", code == "40P01", code == "55P03":
		return LockError
	case strings.HasPrefix(code, "08"), code == "57P01", code == "57P03":
		return ConnectionError
	case code == "57014":
		return TransientError
	default:
		return ""
	}
}

func classifyMessage(msg string) ErrorType {
	switch {
	case containsAny(msg, "duplicate key", "unique constraint", "sqlstate 23505"):
		return DuplicateKeyError
	case containsAny(msg, "deadlock", "lock wait timeout", "could not serialize access", "serialization failure"):
		return LockError
	case containsAny(msg, "connection reset", "connection refused", "timeout", "eof", "server closed", "broken pipe"):
		return TransientError
	case containsAny(msg, "connection", "dial", "network"):
		return ConnectionError
	case containsAny(msg, "constraint", "violates", "foreign key", "not null"):
		return ConstraintError
	default:
		return ""
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// IsDuplicateKeyError reports a unique index violation, the signal for insert-if-absent races
func (c *ErrorClassifier) IsDuplicateKeyError(err error) bool {
	return c.Classify(err) == DuplicateKeyError
}

// Wrap maps a driver error onto the domain error the use cases branch on
func (c *ErrorClassifier) Wrap(err error) error {
	if err == nil {
		return nil
	}
	if isContextError(err) {
		return err
	}
	switch c.Classify(err) {
	case DuplicateKeyError, ConstraintError:
		return fmt.Errorf("%w: %s", errs.ErrConstraintViolation, err.Error())
	default:
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, err.Error())
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
