package dto

import (
	"encoding/json"

	"github.com/Eursukkul/booking-microservice/payment-service/internal/service"
)

type PaymentActionResponse struct {
	Success                bool        `json:"success"`
	Action                 string      `json:"action"`
	BookingID              int64       `json:"bookingId"`
	Amount                 json.Number `json:"amount,omitempty"`
	PaymentIntentID        string      `json:"paymentIntentId,omitempty"`
	PaymentStatus          string      `json:"paymentStatus,omitempty"`
	Message                string      `json:"message,omitempty"`
	Error                  string      `json:"error,omitempty"`
	StripeErrorCode        string      `json:"stripeErrorCode,omitempty"`
	StripeErrorType        string      `json:"stripeErrorType,omitempty"`
	StripeDeclineCode      string      `json:"stripeDeclineCode,omitempty"`
	RequiresAction         bool        `json:"requiresAction,omitempty"`
	ReconciliationRequired bool        `json:"reconciliationRequired,omitempty"`
}

type PaymentViewResponse struct {
	BookingID       int64       `json:"bookingId"`
	Store           string      `json:"store"`
	CustomerID      int64       `json:"customerId"`
	TotalCost       json.Number `json:"totalCost"`
	PaymentStatus   string      `json:"paymentStatus"`
	PaymentIntentID string      `json:"paymentIntentId,omitempty"`
	BookingStatus   string      `json:"bookingStatus"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToPaymentActionResponse(r *service.PaymentResult) PaymentActionResponse {
	resp := PaymentActionResponse{
		Success:                r.Success,
		Action:                 r.Action,
		BookingID:              r.BookingID,
		PaymentIntentID:        r.PaymentIntentID,
		PaymentStatus:          string(r.PaymentStatus),
		Message:                r.Message,
		Error:                  r.Error,
		RequiresAction:         r.RequiresAction,
		ReconciliationRequired: r.ReconciliationRequired,
	}
	if r.Amount != nil {
		resp.Amount = json.Number(r.Amount.StringFixed(2))
	}
	if pe := r.ProcessorError; pe != nil {
		resp.StripeErrorCode = pe.Code
		resp.StripeErrorType = pe.Type
		resp.StripeDeclineCode = pe.DeclineCode
	}
	return resp
}

func ToPaymentViewResponse(rb *service.ResolvedBooking) PaymentViewResponse {
	b := rb.Booking
	return PaymentViewResponse{
		BookingID:       b.ID,
		Store:           string(rb.Kind()),
		CustomerID:      b.CustomerID,
		TotalCost:       json.Number(b.TotalCost.StringFixed(2)),
		PaymentStatus:   string(b.PaymentStatus),
		PaymentIntentID: b.ProcessorReference,
		BookingStatus:   b.LifecycleStatus,
	}
}
