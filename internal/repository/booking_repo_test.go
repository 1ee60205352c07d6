package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Eursukkul/booking-microservice/payment-service/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a second connection would see a different in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.UpcomingBooking{},
		&models.CompletedBooking{},
		&models.Customer{},
		&models.PaymentMethod{},
	))
	return db
}

func strPtr(s string) *string { return &s }

func TestUpcomingStore_FindByID(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.UpcomingBooking{
		ID: 42, CustomerID: 7, CustomerName: "Ada Lovelace", CustomerEmail: "ada@example.com",
		TotalCost: decimal.RequireFromString("75.00"), Status: "confirmed", PaymentStatus: "Unpaid",
	}).Error)

	store := NewUpcomingBookingStore(db)
	b, err := store.FindByID(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, models.StoreUpcoming, store.Kind())
	assert.Equal(t, int64(7), b.CustomerID)
	assert.Equal(t, "Ada Lovelace", b.CustomerName)
	assert.True(t, b.TotalCost.Equal(decimal.NewFromInt(75)))
	assert.Equal(t, models.PaymentUnpaid, b.PaymentStatus)
	assert.Empty(t, b.ProcessorReference)
}

func TestUpcomingStore_FindByID_NotFound(t *testing.T) {
	store := NewUpcomingBookingStore(newTestDB(t))

	_, err := store.FindByID(context.Background(), 999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpcomingStore_FindByID_UnknownStatus(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.UpcomingBooking{
		ID: 1, CustomerID: 1, TotalCost: decimal.NewFromInt(10), PaymentStatus: "refunded",
	}).Error)

	_, err := NewUpcomingBookingStore(db).FindByID(context.Background(), 1)
	assert.ErrorIs(t, err, models.ErrUnknownPaymentStatus)
}

func TestCompletedStore_FindByID_ConvertsCostAndLoadsCustomer(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.Customer{ID: 9, FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"}).Error)
	require.NoError(t, db.Create(&models.CompletedBooking{
		ID: 5, CustomerID: 9, TotalCost: " 120.50 ", Status: "completed",
		PaymentStatus: "authorized", StripePaymentIntentID: strPtr("pi_abc"),
	}).Error)

	store := NewCompletedBookingStore(db)
	b, err := store.FindByID(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, models.StoreCompleted, store.Kind())
	assert.True(t, b.TotalCost.Equal(decimal.RequireFromString("120.5")))
	assert.Equal(t, "Grace Hopper", b.CustomerName)
	assert.Equal(t, "grace@example.com", b.CustomerEmail)
	assert.Equal(t, models.PaymentAuthorized, b.PaymentStatus)
	assert.Equal(t, "pi_abc", b.ProcessorReference)
	assert.True(t, b.HasAuthorization())
}

func TestCompletedStore_FindByID_MissingCustomerIsNotFatal(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.CompletedBooking{ID: 6, CustomerID: 404, TotalCost: "10"}).Error)

	b, err := NewCompletedBookingStore(db).FindByID(context.Background(), 6)

	require.NoError(t, err)
	assert.Empty(t, b.CustomerName)
}

func TestCompletedStore_FindByID_BadCost(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.CompletedBooking{ID: 7, CustomerID: 1, TotalCost: "£10"}).Error)

	_, err := NewCompletedBookingStore(db).FindByID(context.Background(), 7)
	assert.Error(t, err)
}

func TestAcquirePaymentLock(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.UpcomingBooking{ID: 1, CustomerID: 1, TotalCost: decimal.NewFromInt(10)}).Error)
	store := NewUpcomingBookingStore(db)
	ctx := context.Background()

	ok, err := store.AcquirePaymentLock(ctx, 1, models.PaymentUnpaid, "token-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "empty status should match unpaid")

	ok, err = store.AcquirePaymentLock(ctx, 1, models.PaymentUnpaid, "token-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second caller must not take a held lock")

	require.NoError(t, store.ReleasePaymentLock(ctx, 1, "token-a"))

	ok, err = store.AcquirePaymentLock(ctx, 1, models.PaymentAuthorized, "token-c", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lock requires the observed status")
}

func TestAcquirePaymentLock_PaddedStoredStatus(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.UpcomingBooking{ID: 1, CustomerID: 1, TotalCost: decimal.NewFromInt(10), PaymentStatus: " Authorized "}).Error)
	require.NoError(t, db.Create(&models.CompletedBooking{ID: 2, CustomerID: 1, TotalCost: "10", PaymentStatus: "  "}).Error)
	ctx := context.Background()

	upcoming := NewUpcomingBookingStore(db)
	b, err := upcoming.FindByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, models.PaymentAuthorized, b.PaymentStatus)

	ok, err := upcoming.AcquirePaymentLock(ctx, 1, b.PaymentStatus, "token-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "a status that parses must also lock")

	ok, err = NewCompletedBookingStore(db).AcquirePaymentLock(ctx, 2, models.PaymentUnpaid, "token-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "blank status is unpaid")
}

func TestAcquirePaymentLock_StaleLockIsTakenOver(t *testing.T) {
	db := newTestDB(t)
	stale := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Create(&models.UpcomingBooking{
		ID: 1, CustomerID: 1, TotalCost: decimal.NewFromInt(10), PaymentStatus: "failed",
		PaymentLockToken: strPtr("crashed"), PaymentLockedAt: &stale,
	}).Error)

	ok, err := NewUpcomingBookingStore(db).AcquirePaymentLock(context.Background(), 1, models.PaymentFailed, "fresh", time.Minute)

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSavePaymentResult(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.CompletedBooking{ID: 3, CustomerID: 1, TotalCost: "50"}).Error)
	store := NewCompletedBookingStore(db)
	ctx := context.Background()

	ok, err := store.AcquirePaymentLock(ctx, 3, models.PaymentUnpaid, "tok", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	err = store.SavePaymentResult(ctx, 3, "tok", PaymentUpdate{Status: models.PaymentAuthorized, ProcessorReference: "pi_123"})
	require.NoError(t, err)

	var row models.CompletedBooking
	require.NoError(t, db.First(&row, 3).Error)
	assert.Equal(t, "authorized", row.PaymentStatus)
	assert.Equal(t, "pi_123", *row.StripePaymentIntentID)
	assert.Nil(t, row.PaymentLockToken)
	assert.Nil(t, row.PaymentLockedAt)
}

func TestSavePaymentResult_KeepsReferenceWhenEmpty(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.UpcomingBooking{
		ID: 4, CustomerID: 1, TotalCost: decimal.NewFromInt(10),
		PaymentStatus: "authorized", StripePaymentIntentID: strPtr("pi_keep"),
	}).Error)
	store := NewUpcomingBookingStore(db)
	ctx := context.Background()

	ok, err := store.AcquirePaymentLock(ctx, 4, models.PaymentAuthorized, "tok", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.SavePaymentResult(ctx, 4, "tok", PaymentUpdate{Status: models.PaymentPaid}))

	b, err := store.FindByID(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, b.PaymentStatus)
	assert.Equal(t, "pi_keep", b.ProcessorReference)
}

func TestSavePaymentResult_LockLost(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.UpcomingBooking{ID: 1, CustomerID: 1, TotalCost: decimal.NewFromInt(10)}).Error)

	err := NewUpcomingBookingStore(db).SavePaymentResult(context.Background(), 1, "never-acquired", PaymentUpdate{Status: models.PaymentPaid})

	assert.ErrorIs(t, err, ErrLockLost)
}

func TestStores_WritesStayInOwnTable(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.UpcomingBooking{ID: 10, CustomerID: 1, TotalCost: decimal.NewFromInt(10)}).Error)
	require.NoError(t, db.Create(&models.CompletedBooking{ID: 10, CustomerID: 1, TotalCost: "10"}).Error)
	ctx := context.Background()

	completed := NewCompletedBookingStore(db)
	ok, err := completed.AcquirePaymentLock(ctx, 10, models.PaymentUnpaid, "tok", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, completed.SavePaymentResult(ctx, 10, "tok", PaymentUpdate{Status: models.PaymentPaid, ProcessorReference: "pi_x"}))

	var up models.UpcomingBooking
	require.NoError(t, db.First(&up, 10).Error)
	assert.Empty(t, up.PaymentStatus)
	assert.Nil(t, up.StripePaymentIntentID)
	assert.Nil(t, up.PaymentLockToken)
}
