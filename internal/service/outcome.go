package service

import (
	"fmt"

	"github.com/Eursukkul/booking-microservice/payment-service/internal/models"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/processor"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/repository"
)

// Result action tags beyond the requested action names.
const (
	TagAuthorized       = "authorized"
	TagCaptured         = "captured"
	TagCharged          = "charged"
	TagAlreadyProcessed = "already_processed"
	TagAlreadyPaid      = "already_paid"
	TagSkipped          = "skipped"
	TagInProgress       = "in_progress"
)

// outcome is a processor answer translated into the row write and the
// caller-facing result fields.
type outcome struct {
	update         repository.PaymentUpdate
	success        bool
	tag            string
	intentID       string
	message        string
	errMsg         string
	processorErr   *processor.IntentError
	requiresAction bool
}

func errorOutcome(intent *processor.Intent, fallback string) outcome {
	msg := intent.Error.Message
	if msg == "" {
		msg = fallback
	}
	return outcome{
		update:       repository.PaymentUpdate{Status: models.PaymentFailed},
		intentID:     intent.ID,
		errMsg:       msg,
		processorErr: intent.Error,
	}
}

// newIntentOutcome maps the answer to a freshly created intent. want is the
// status that counts as success: requires_capture for an authorization,
// succeeded for a direct charge.
func newIntentOutcome(intent *processor.Intent, want processor.IntentStatus, tag string) outcome {
	if intent.Error != nil {
		return errorOutcome(intent, "payment processor returned an error")
	}

	switch intent.Status {
	case want:
		return outcome{
			update:   repository.PaymentUpdate{Status: successStatus(want), ProcessorReference: intent.ID},
			success:  true,
			tag:      tag,
			intentID: intent.ID,
			message:  "payment " + tag,
		}
	case processor.StatusRequiresAction:
		return outcome{
			update:         repository.PaymentUpdate{Status: models.PaymentRequiresAction},
			intentID:       intent.ID,
			errMsg:         "customer authentication required",
			requiresAction: true,
		}
	case processor.StatusRequiresPaymentMethod:
		return outcome{
			update:   repository.PaymentUpdate{Status: models.PaymentFailed},
			intentID: intent.ID,
			errMsg:   "card was declined",
		}
	case processor.StatusProcessing:
		return outcome{
			update:   repository.PaymentUpdate{Status: models.PaymentProcessing},
			intentID: intent.ID,
			errMsg:   "payment is still processing; check again later",
		}
	}
	return outcome{
		update:   repository.PaymentUpdate{Status: models.PaymentFailed},
		intentID: intent.ID,
		errMsg:   fmt.Sprintf("payment incomplete: processor status %q", intent.Status),
	}
}

func successStatus(want processor.IntentStatus) models.PaymentStatus {
	if want == processor.StatusRequiresCapture {
		return models.PaymentAuthorized
	}
	return models.PaymentPaid
}

// captureOutcome maps the answer to a capture of an existing authorization.
// The stored reference is kept as is.
func captureOutcome(intent *processor.Intent, reference string) outcome {
	// an earlier capture went through but its answer was lost
	if intent.Error != nil && intent.Status == processor.StatusSucceeded {
		intent.Error = nil
	}
	if intent.Error != nil {
		o := errorOutcome(intent, "capture failed")
		if o.intentID == "" {
			o.intentID = reference
		}
		return o
	}
	if intent.Status != processor.StatusSucceeded {
		return outcome{
			update:   repository.PaymentUpdate{Status: models.PaymentFailed},
			intentID: reference,
			errMsg:   fmt.Sprintf("capture incomplete: processor status %q", intent.Status),
		}
	}
	return outcome{
		update:   repository.PaymentUpdate{Status: models.PaymentPaid},
		success:  true,
		tag:      TagCaptured,
		intentID: reference,
		message:  "payment captured",
	}
}

// ambiguousOutcome covers timeouts and transport failures: the processor may
// or may not have acted, so the booking is parked in processing.
func ambiguousOutcome(err error) outcome {
	return outcome{
		update: repository.PaymentUpdate{Status: models.PaymentProcessing},
		errMsg: fmt.Sprintf("payment processor did not answer, reconciliation required: %v", err),
	}
}
