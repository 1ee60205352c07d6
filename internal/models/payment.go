package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownPaymentStatus = errors.New("unknown payment status")

type PaymentStatus string

const (
	PaymentUnpaid         PaymentStatus = "unpaid"
	PaymentAuthorized     PaymentStatus = "authorized"
	PaymentRequiresAction PaymentStatus = "requires_action"
	PaymentProcessing     PaymentStatus = "processing"
	PaymentPaid           PaymentStatus = "paid"
	PaymentFailed         PaymentStatus = "failed"
)

// ParsePaymentStatus normalizes a stored value. Empty means unpaid.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	s := PaymentStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case "":
		return PaymentUnpaid, nil
	case PaymentUnpaid, PaymentAuthorized, PaymentRequiresAction, PaymentProcessing, PaymentPaid, PaymentFailed:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPaymentStatus, raw)
}

// IsTerminal is true only for paid; every other status may be re-entered.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentPaid
}

type PaymentAction string

const (
	ActionAuthorize PaymentAction = "authorize"
	ActionCharge    PaymentAction = "charge"
	ActionRetry     PaymentAction = "retry"
)

func (a PaymentAction) Valid() bool {
	switch a {
	case ActionAuthorize, ActionCharge, ActionRetry:
		return true
	}
	return false
}

// PaymentMethod is a saved card in the customer vault.
type PaymentMethod struct {
	ID                    int64  `gorm:"primaryKey" json:"id"`
	CustomerID            int64  `gorm:"not null;index" json:"customer_id"`
	StripeCustomerID      string `gorm:"not null" json:"stripe_customer_id"`
	StripePaymentMethodID string `gorm:"not null" json:"stripe_payment_method_id"`
	IsDefault             bool   `gorm:"not null;default:false" json:"is_default"`
}

func (PaymentMethod) TableName() string { return "customer_payment_methods" }
