package dto

import "github.com/shopspring/decimal"

// PaymentActionRequest accepts amount as a JSON number or a quoted string.
type PaymentActionRequest struct {
	BookingID       int64            `json:"bookingId"`
	Action          string           `json:"action"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	PaymentMethodID string           `json:"paymentMethodId,omitempty"`
}
