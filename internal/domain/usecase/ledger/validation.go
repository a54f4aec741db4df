package ledger

import (
	"fmt"
	"regexp"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/port/usecase"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	amountPattern   = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
	currencyPattern = regexp.MustCompile(`^[A-Za-z]{3}$`)
)

// InitiationValidator validates payment initiation requests
type InitiationValidator struct{}

// NewInitiationValidator creates a new InitiationValidator
func NewInitiationValidator() *InitiationValidator {
	return &InitiationValidator{}
}

// Validate checks every field of the request and maps failures to domain errors
func (v *InitiationValidator) Validate(req usecase.InitiatePaymentRequest) error {
	if err := validation.Validate(req.Amount,
		validation.Required,
		validation.Match(amountPattern).Error("must be a positive amount with at most two decimals"),
	); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrInvalidAmount, err.Error())
	}
	if _, err := entity.ParseAmount(req.Amount); err != nil {
		return err
	}

	if err := validation.Validate(req.Currency,
		validation.Required,
		validation.Match(currencyPattern).Error("must be a three letter ISO code"),
	); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrInvalidCurrency, err.Error())
	}

	err := validation.ValidateStruct(&req,
		validation.Field(&req.ReferenceType, validation.Required,
			validation.In(string(entity.ReferenceRegistration), string(entity.ReferenceDonation))),
		validation.Field(&req.ReferenceID, validation.Required, validation.Length(1, 64)),
		validation.Field(&req.IdempotencyKey, validation.Length(0, 128)),
	)
	if err != nil {
		return fmt.Errorf("%w: %s", errs.ErrInvalidReference, err.Error())
	}
	return nil
}
