package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Eursukkul/booking-microservice/payment-service/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrLockLost is returned when a result write no longer holds the payment lock.
var ErrLockLost = errors.New("payment lock is no longer held")

// PaymentUpdate is the payment state written back after a processor call.
// An empty ProcessorReference leaves the stored reference untouched.
type PaymentUpdate struct {
	Status             models.PaymentStatus
	ProcessorReference string
}

// BookingStore is one of the two booking tables. Missing rows are reported
// as gorm.ErrRecordNotFound.
type BookingStore interface {
	Kind() models.StoreKind
	FindByID(ctx context.Context, id int64) (*models.Booking, error)
	AcquirePaymentLock(ctx context.Context, id int64, expected models.PaymentStatus, token string, ttl time.Duration) (bool, error)
	SavePaymentResult(ctx context.Context, id int64, token string, update PaymentUpdate) error
	ReleasePaymentLock(ctx context.Context, id int64, token string) error
}

// paymentColumns holds the lock and status writes shared by both tables.
type paymentColumns struct {
	db *gorm.DB
	// newRow returns a fresh model per statement; gorm writes into it.
	newRow func() any
}

// storedStatuses lists the raw column values that normalize to status.
func storedStatuses(status models.PaymentStatus) []string {
	if status == models.PaymentUnpaid {
		return []string{"", string(models.PaymentUnpaid)}
	}
	return []string{string(status)}
}

// acquire takes the per-booking lock, but only while the stored status is
// still the one the caller decided on.
func (p paymentColumns) acquire(ctx context.Context, id int64, expected models.PaymentStatus, token string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	res := p.db.WithContext(ctx).
		Model(p.newRow()).
		Where("id = ?", id).
		Where("LOWER(TRIM(COALESCE(payment_status, ''))) IN ?", storedStatuses(expected)).
		Where("(payment_lock_token IS NULL OR payment_locked_at < ?)", now.Add(-ttl)).
		Updates(map[string]any{
			"payment_lock_token": token,
			"payment_locked_at":  now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (p paymentColumns) save(ctx context.Context, id int64, token string, update PaymentUpdate) error {
	fields := map[string]any{
		"payment_status":     string(update.Status),
		"payment_lock_token": nil,
		"payment_locked_at":  nil,
	}
	if update.ProcessorReference != "" {
		fields["stripe_payment_intent_id"] = update.ProcessorReference
	}

	res := p.db.WithContext(ctx).
		Model(p.newRow()).
		Where("id = ? AND payment_lock_token = ?", id, token).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLockLost
	}
	return nil
}

func (p paymentColumns) release(ctx context.Context, id int64, token string) error {
	return p.db.WithContext(ctx).
		Model(p.newRow()).
		Where("id = ? AND payment_lock_token = ?", id, token).
		Updates(map[string]any{
			"payment_lock_token": nil,
			"payment_locked_at":  nil,
		}).Error
}

// --- upcoming store ---

type upcomingBookingStore struct {
	paymentColumns
}

func NewUpcomingBookingStore(db *gorm.DB) BookingStore {
	return &upcomingBookingStore{paymentColumns{db: db, newRow: func() any { return &models.UpcomingBooking{} }}}
}

func (s *upcomingBookingStore) Kind() models.StoreKind { return models.StoreUpcoming }

func (s *upcomingBookingStore) FindByID(ctx context.Context, id int64) (*models.Booking, error) {
	var row models.UpcomingBooking
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, err
	}

	status, err := models.ParsePaymentStatus(row.PaymentStatus)
	if err != nil {
		return nil, fmt.Errorf("booking %d: %w", row.ID, err)
	}

	return &models.Booking{
		ID:                 row.ID,
		CustomerID:         row.CustomerID,
		CustomerName:       row.CustomerName,
		CustomerEmail:      row.CustomerEmail,
		TotalCost:          row.TotalCost,
		PaymentStatus:      status,
		ProcessorReference: deref(row.StripePaymentIntentID),
		LifecycleStatus:    row.Status,
	}, nil
}

func (s *upcomingBookingStore) AcquirePaymentLock(ctx context.Context, id int64, expected models.PaymentStatus, token string, ttl time.Duration) (bool, error) {
	return s.acquire(ctx, id, expected, token, ttl)
}

func (s *upcomingBookingStore) SavePaymentResult(ctx context.Context, id int64, token string, update PaymentUpdate) error {
	return s.save(ctx, id, token, update)
}

func (s *upcomingBookingStore) ReleasePaymentLock(ctx context.Context, id int64, token string) error {
	return s.release(ctx, id, token)
}

// --- completed store ---

type completedBookingStore struct {
	paymentColumns
}

func NewCompletedBookingStore(db *gorm.DB) BookingStore {
	return &completedBookingStore{paymentColumns{db: db, newRow: func() any { return &models.CompletedBooking{} }}}
}

func (s *completedBookingStore) Kind() models.StoreKind { return models.StoreCompleted }

// FindByID converts the text cost to a decimal and looks the customer up
// separately, since completed rows only carry the customer id.
func (s *completedBookingStore) FindByID(ctx context.Context, id int64) (*models.Booking, error) {
	var row models.CompletedBooking
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, err
	}

	status, err := models.ParsePaymentStatus(row.PaymentStatus)
	if err != nil {
		return nil, fmt.Errorf("completed booking %d: %w", row.ID, err)
	}

	cost := decimal.Zero
	if raw := strings.TrimSpace(row.TotalCost); raw != "" {
		cost, err = decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("completed booking %d: parse total cost %q: %w", row.ID, raw, err)
		}
	}

	booking := &models.Booking{
		ID:                 row.ID,
		CustomerID:         row.CustomerID,
		TotalCost:          cost,
		PaymentStatus:      status,
		ProcessorReference: deref(row.StripePaymentIntentID),
		LifecycleStatus:    row.Status,
	}

	var customer models.Customer
	err = s.db.WithContext(ctx).First(&customer, row.CustomerID).Error
	switch {
	case err == nil:
		booking.CustomerName = customer.FullName()
		booking.CustomerEmail = customer.Email
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("completed booking %d: load customer: %w", row.ID, err)
	}

	return booking, nil
}

func (s *completedBookingStore) AcquirePaymentLock(ctx context.Context, id int64, expected models.PaymentStatus, token string, ttl time.Duration) (bool, error) {
	return s.acquire(ctx, id, expected, token, ttl)
}

func (s *completedBookingStore) SavePaymentResult(ctx context.Context, id int64, token string, update PaymentUpdate) error {
	return s.save(ctx, id, token, update)
}

func (s *completedBookingStore) ReleasePaymentLock(ctx context.Context, id int64, token string) error {
	return s.release(ctx, id, token)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
