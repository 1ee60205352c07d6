package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StoreKind names the booking table a row was read from.
type StoreKind string

const (
	StoreUpcoming  StoreKind = "upcoming"
	StoreCompleted StoreKind = "completed"
)

// UpcomingBooking is a row of the future-bookings table. Customer identity
// is denormalized onto the row.
type UpcomingBooking struct {
	ID                    int64           `gorm:"primaryKey" json:"id"`
	CustomerID            int64           `gorm:"not null;index" json:"customer_id"`
	CustomerName          string          `json:"customer_name"`
	CustomerEmail         string          `json:"customer_email"`
	TotalCost             decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_cost"`
	Status                string          `gorm:"type:varchar(40)" json:"status"`
	PaymentStatus         string          `gorm:"type:varchar(40)" json:"payment_status"`
	StripePaymentIntentID *string         `gorm:"column:stripe_payment_intent_id" json:"stripe_payment_intent_id,omitempty"`
	PaymentLockToken      *string         `json:"-"`
	PaymentLockedAt       *time.Time      `json:"-"`
	ServiceDate           time.Time       `json:"service_date"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func (UpcomingBooking) TableName() string { return "bookings" }

// CompletedBooking is a row of the past-bookings table. Cost is kept as text
// and the customer is only referenced by id.
type CompletedBooking struct {
	ID                    int64      `gorm:"primaryKey" json:"id"`
	CustomerID            int64      `gorm:"not null;index" json:"customer_id"`
	TotalCost             string     `gorm:"type:text" json:"total_cost"`
	Status                string     `gorm:"type:varchar(40)" json:"status"`
	PaymentStatus         string     `gorm:"type:varchar(40)" json:"payment_status"`
	StripePaymentIntentID *string    `gorm:"column:stripe_payment_intent_id" json:"stripe_payment_intent_id,omitempty"`
	PaymentLockToken      *string    `json:"-"`
	PaymentLockedAt       *time.Time `json:"-"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (CompletedBooking) TableName() string { return "completed_bookings" }

type Customer struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Booking is the store-independent view of the payment-relevant fields.
type Booking struct {
	ID                 int64
	CustomerID         int64
	CustomerName       string
	CustomerEmail      string
	TotalCost          decimal.Decimal
	PaymentStatus      PaymentStatus
	ProcessorReference string
	LifecycleStatus    string
}

// IsCancelled reports whether the booking lifecycle excludes it from payment.
func (b *Booking) IsCancelled() bool {
	s := strings.ToLower(b.LifecycleStatus)
	return strings.Contains(s, "cancelled") || strings.Contains(s, "canceled")
}

// HasAuthorization reports whether the stored reference is a held
// authorization that has to be captured rather than charged again. A
// processing booking with a reference got no answer to its capture.
func (b *Booking) HasAuthorization() bool {
	if b.ProcessorReference == "" {
		return false
	}
	return b.PaymentStatus == PaymentAuthorized || b.PaymentStatus == PaymentProcessing
}
