package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
)

// Generic signature and identity headers
const (
	GenericSignatureHeader = "X-Signature"
	GenericEventIDHeader   = "X-Event-Id"
)

// GenericProvider accepts {eventType, payload:{orderRef, paymentRef, amount, currency, status}}
// with amount in major units and a hex HMAC-SHA256 in X-Signature
type GenericProvider struct {
	secret string
}

// NewGenericProvider creates the generic adapter
func NewGenericProvider(secret string) *GenericProvider {
	return &GenericProvider{secret: secret}
}

type genericPayload struct {
	EventID   string `json:"eventId"`
	EventType string `json:"eventType"`
	Payload   struct {
		OrderRef   string      `json:"orderRef"`
		PaymentRef string      `json:"paymentRef"`
		Amount     json.Number `json:"amount"`
		Currency   string      `json:"currency"`
		Status     string      `json:"status"`
	} `json:"payload"`
}

func (p *GenericProvider) Name() string { return "generic" }

func (p *GenericProvider) Verify(body []byte, headers map[string]string) error {
	return verifyHMAC(p.secret, body, headers[GenericSignatureHeader])
}

func (p *GenericProvider) Normalize(body []byte, headers map[string]string) (entity.NormalizedEvent, error) {
	var payload genericPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return entity.NormalizedEvent{}, fmt.Errorf("%w: %v", errs.ErrInvalidPayload, err)
	}

	amountMinor, err := entity.ParseAmount(payload.Payload.Amount.String())
	if err != nil {
		return entity.NormalizedEvent{}, fmt.Errorf("%w: %v", errs.ErrInvalidPayload, err)
	}

	eventID := payload.EventID
	if eventID == "" {
		eventID = headers[GenericEventIDHeader]
	}
	if eventID == "" {
		eventID = bodyDigest(body)
	}

	return entity.NormalizedEvent{
		Provider:          p.Name(),
		ProviderEventID:   eventID,
		EventType:         payload.EventType,
		GatewayOrderRef:   payload.Payload.OrderRef,
		GatewayPaymentRef: payload.Payload.PaymentRef,
		AmountMinor:       amountMinor,
		Currency:          strings.ToUpper(payload.Payload.Currency),
		Status:            payload.Payload.Status,
		Source:            entity.SourceWebhook,
	}, nil
}
