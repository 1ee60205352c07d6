package repository

import (
	"context"

	"github.com/Eursukkul/booking-microservice/payment-service/internal/models"
	"gorm.io/gorm"
)

type PaymentMethodRepository interface {
	FindByCustomer(ctx context.Context, customerID int64) ([]models.PaymentMethod, error)
}

type paymentMethodRepository struct {
	db *gorm.DB
}

func NewPaymentMethodRepository(db *gorm.DB) PaymentMethodRepository {
	return &paymentMethodRepository{db: db}
}

// FindByCustomer returns the saved cards of a customer, default first.
func (r *paymentMethodRepository) FindByCustomer(ctx context.Context, customerID int64) ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("is_default DESC, id ASC").
		Find(&methods).Error
	if err != nil {
		return nil, err
	}
	return methods, nil
}
