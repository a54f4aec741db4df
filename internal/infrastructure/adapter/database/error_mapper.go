package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domainErr "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	"gorm.io/gorm"
)

// EntityType represents the type of entity for errors mapping
type EntityType string

const (
	EntityTypeTransaction  EntityType = "transaction"
	EntityTypeWebhookEvent EntityType = "webhook_event"
	EntityTypeSideEffect   EntityType = "side_effect_task"
	EntityTypeReference    EntityType = "reference"
)

// ErrorMapper maps database errors to domain errors
type ErrorMapper struct{}

// NewErrorMapper creates a new ErrorMapper
func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{}
}

// MapError maps a database error to a domain error
func (m *ErrorMapper) MapError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainErr.ErrNotFound
	}

	errMsg := strings.ToLower(err.Error())

	switch {
	// Lost serialization or deadlock: another writer got there first
	case strings.Contains(errMsg, "deadlock") ||
		strings.Contains(errMsg, "serialization") ||
		strings.Contains(errMsg, "lock timeout"):
		return fmt.Errorf("%w: %s", domainErr.ErrTransitionConflict, operation)

	case strings.Contains(errMsg, "duplicate key") ||
		strings.Contains(errMsg, "unique constraint"):
		if strings.Contains(errMsg, "idempotency_key") || strings.Contains(errMsg, "transaction_number") {
			return domainErr.ErrDuplicateTransaction
		}
		return fmt.Errorf("%w: %s", domainErr.ErrConstraintViolation, err.Error())

	case strings.Contains(errMsg, "check constraint") ||
		strings.Contains(errMsg, "foreign key constraint"):
		return fmt.Errorf("%w: %s", domainErr.ErrConstraintViolation, err.Error())

	case strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "no connection") ||
		strings.Contains(errMsg, "connection reset"):
		return fmt.Errorf("%w: %s", domainErr.ErrDatabaseConnection, err.Error())

	case strings.Contains(errMsg, "timeout") ||
		strings.Contains(errMsg, "deadline exceeded"):
		return fmt.Errorf("%w: %s operation timed out", domainErr.ErrDatabaseConnection, operation)

	default:
		return fmt.Errorf("%w: %s: %s", domainErr.ErrInternalServer, operation, err.Error())
	}
}

// MapEntityNotFoundError maps database errors to specific entity not found errors
func (m *ErrorMapper) MapEntityNotFoundError(err error, entityType EntityType) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		switch entityType {
		case EntityTypeTransaction:
			return domainErr.ErrTransactionNotFound
		case EntityTypeWebhookEvent:
			return domainErr.ErrWebhookEventNotFound
		case EntityTypeSideEffect:
			return domainErr.ErrTaskNotFound
		case EntityTypeReference:
			return domainErr.ErrReferenceNotFound
		default:
			return domainErr.ErrNotFound
		}
	}

	return m.MapError(err, string(entityType))
}

// IsTransient reports whether retrying the operation may succeed
func (m *ErrorMapper) IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domainErr.ErrDatabaseConnection) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "deadlock") ||
		strings.Contains(errMsg, "serialization") ||
		strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "too many connections") ||
		strings.Contains(errMsg, "server closed") ||
		strings.Contains(errMsg, "broken pipe") ||
		strings.Contains(errMsg, "lock timeout") ||
		strings.Contains(errMsg, "eof")
}
