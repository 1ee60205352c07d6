package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Eursukkul/booking-microservice/payment-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/models"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/service"
	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	svc service.PaymentService
}

func NewPaymentHandler(svc service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/api/v1")
	v1.POST("/payments/actions", h.ExecuteAction)
	v1.GET("/bookings/:id/payment", h.GetBookingPayment)
}

// ExecuteAction answers 200 for every well-formed request. Business failures
// are reported through the success field.
func (h *PaymentHandler) ExecuteAction(c echo.Context) error {
	var req dto.PaymentActionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.BookingID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "bookingId is required")
	}

	action := models.PaymentAction(strings.ToLower(strings.TrimSpace(req.Action)))
	if !action.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, service.ErrUnknownAction.Error())
	}

	result := h.svc.ExecutePaymentAction(c.Request().Context(), service.PaymentActionRequest{
		BookingID:       req.BookingID,
		Action:          action,
		Amount:          req.Amount,
		PaymentMethodID: strings.TrimSpace(req.PaymentMethodID),
	})

	return c.JSON(http.StatusOK, dto.ToPaymentActionResponse(result))
}

func (h *PaymentHandler) GetBookingPayment(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}

	rb, err := h.svc.GetBookingPayment(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrBookingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.ToPaymentViewResponse(rb))
}
