package reconciliation

import "github.com/amirhossein-jamali/payment-reconciler/internal/domain/entity"

// Outcome is the processing decision taken for one event
type Outcome string

// Outcomes map one to one onto the final WebhookEvent processing status
const (
	OutcomeProcessed Outcome = "PROCESSED"
	OutcomeIgnored   Outcome = "IGNORED"
	OutcomeFailed    Outcome = "FAILED"
)

// Result is the explicit outcome of applying an event.
// A FAILED result carries the quarantine cause in Err; the call itself still succeeded.
type Result struct {
	Outcome     Outcome
	Transaction *entity.PaymentTransaction // state after application, nil for unknown references
	Reason      string
	Err         error
	Applied     bool // true only for the call that performed the transition
}

// EventStatus maps the outcome to the WebhookEvent processing status it records
func (r *Result) EventStatus() entity.ProcessingStatus {
	switch r.Outcome {
	case OutcomeProcessed:
		return entity.EventProcessed
	case OutcomeIgnored:
		return entity.EventIgnored
	default:
		return entity.EventFailed
	}
}
