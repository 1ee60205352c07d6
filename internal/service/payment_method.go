package service

import (
	"strconv"

	"github.com/Eursukkul/booking-microservice/payment-service/internal/models"
)

// selectPaymentMethod prefers the requested method, then the default, then
// whatever the customer has. requested matches the processor token or row id.
func selectPaymentMethod(methods []models.PaymentMethod, requested string) *models.PaymentMethod {
	if len(methods) == 0 {
		return nil
	}
	if requested != "" {
		for i := range methods {
			m := &methods[i]
			if m.StripePaymentMethodID == requested || strconv.FormatInt(m.ID, 10) == requested {
				return m
			}
		}
	}
	for i := range methods {
		if methods[i].IsDefault {
			return &methods[i]
		}
	}
	return &methods[0]
}
