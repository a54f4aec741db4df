package webhook

import (
	"fmt"
	"regexp"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var currencyPattern = regexp.MustCompile(`^[A-Za-z]{3}$`)

// ValidateEvent checks that a normalized event carries everything reconciliation needs
func ValidateEvent(event entity.NormalizedEvent) error {
	err := validation.ValidateStruct(&event,
		validation.Field(&event.ProviderEventID, validation.Required, validation.Length(1, 255)),
		validation.Field(&event.GatewayOrderRef, validation.Required, validation.Length(1, 128)),
		validation.Field(&event.AmountMinor, validation.Required, validation.Min(int64(1))),
		validation.Field(&event.Currency, validation.Required, validation.Match(currencyPattern)),
		validation.Field(&event.Status, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %s", errs.ErrInvalidPayload, err.Error())
	}
	return nil
}
