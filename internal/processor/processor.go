// Package processor is the card-payment processor port and its Stripe
// PaymentIntents adapter.
package processor

import "context"

type IntentStatus string

const (
	StatusRequiresCapture       IntentStatus = "requires_capture"
	StatusRequiresAction        IntentStatus = "requires_action"
	StatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	StatusProcessing            IntentStatus = "processing"
	StatusSucceeded             IntentStatus = "succeeded"
	StatusCanceled              IntentStatus = "canceled"
)

// IntentError is the processor's error object, passed through verbatim.
type IntentError struct {
	Message     string
	Code        string
	Type        string
	DeclineCode string
}

func (e *IntentError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "payment processor error: " + e.Code
}

// Intent is the processor's view of one authorization or charge attempt.
// Error is set when the processor answered with an error object; ID and
// Status may still be populated in that case.
type Intent struct {
	ID     string
	Status IntentStatus
	Error  *IntentError
}

type PaymentRequest struct {
	AmountMinor        int64
	CustomerToken      string
	PaymentMethodToken string
	IdempotencyKey     string
	Description        string
	Metadata           map[string]string
}

// Processor returns a non-nil error only when no answer was obtained from the
// processor (transport failure, timeout). Declines come back as Intent.Error.
type Processor interface {
	CreateAuthorization(ctx context.Context, req PaymentRequest) (*Intent, error)
	CreateImmediateCharge(ctx context.Context, req PaymentRequest) (*Intent, error)
	Capture(ctx context.Context, intentID string, amountMinor int64, idempotencyKey string) (*Intent, error)
}
