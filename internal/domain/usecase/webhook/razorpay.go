package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"
	errs "github.com/amirhossein-jamali/payment-reconciler/internal/domain/error"
)

// Razorpay signature and identity headers
const (
	RazorpaySignatureHeader = "X-Razorpay-Signature"
	RazorpayEventIDHeader   = "X-Razorpay-Event-Id"
)

// RazorpayProvider accepts Razorpay webhooks where amounts are already in minor units
type RazorpayProvider struct {
	secret string
}

// NewRazorpayProvider creates the Razorpay adapter
func NewRazorpayProvider(secret string) *RazorpayProvider {
	return &RazorpayProvider{secret: secret}
}

type razorpayEntity struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
}

type razorpayPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity razorpayEntity `json:"entity"`
		} `json:"payment"`
		Refund *struct {
			Entity razorpayEntity `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

func (p *RazorpayProvider) Name() string { return "razorpay" }

func (p *RazorpayProvider) Verify(body []byte, headers map[string]string) error {
	return verifyHMAC(p.secret, body, headers[RazorpaySignatureHeader])
}

func (p *RazorpayProvider) Normalize(body []byte, headers map[string]string) (entity.NormalizedEvent, error) {
	var payload razorpayPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return entity.NormalizedEvent{}, fmt.Errorf("%w: %v", errs.ErrInvalidPayload, err)
	}
	if payload.Payload.Payment == nil {
		return entity.NormalizedEvent{}, fmt.Errorf("%w: missing payment entity", errs.ErrInvalidPayload)
	}
	payment := payload.Payload.Payment.Entity

	event := entity.NormalizedEvent{
		Provider:          p.Name(),
		ProviderEventID:   headers[RazorpayEventIDHeader],
		EventType:         payload.Event,
		GatewayOrderRef:   payment.OrderID,
		GatewayPaymentRef: payment.ID,
		AmountMinor:       payment.Amount,
		Currency:          strings.ToUpper(payment.Currency),
		Status:            payment.Status,
		Source:            entity.SourceWebhook,
	}

	if strings.HasPrefix(payload.Event, "refund.") {
		if payload.Payload.Refund == nil {
			return entity.NormalizedEvent{}, fmt.Errorf("%w: missing refund entity", errs.ErrInvalidPayload)
		}
		refund := payload.Payload.Refund.Entity
		event.AmountMinor = refund.Amount
		event.Status = refund.Status
	}

	if event.ProviderEventID == "" {
		event.ProviderEventID = bodyDigest(body)
	}
	return event, nil
}
