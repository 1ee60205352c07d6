package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Eursukkul/booking-microservice/payment-service/internal/models"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/repository"
	"gorm.io/gorm"
)

// ResolvedBooking pairs a booking with the store that returned it. All writes
// for the invocation go to Store.
type ResolvedBooking struct {
	Store   repository.BookingStore
	Booking *models.Booking
}

func (r *ResolvedBooking) Kind() models.StoreKind { return r.Store.Kind() }

// BookingResolver probes the upcoming store, then the completed store.
type BookingResolver struct {
	stores []repository.BookingStore
}

func NewBookingResolver(upcoming, completed repository.BookingStore) *BookingResolver {
	return &BookingResolver{stores: []repository.BookingStore{upcoming, completed}}
}

func (r *BookingResolver) Resolve(ctx context.Context, bookingID int64) (*ResolvedBooking, error) {
	for _, store := range r.stores {
		booking, err := store.FindByID(ctx, bookingID)
		if err == nil {
			return &ResolvedBooking{Store: store, Booking: booking}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("lookup %s booking %d: %w", store.Kind(), bookingID, err)
		}
	}
	return nil, ErrBookingNotFound
}
