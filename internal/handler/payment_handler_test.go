package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Eursukkul/booking-microservice/payment-service/internal/models"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/processor"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock PaymentService ---

type mockPaymentService struct {
	executeFn func(ctx context.Context, req service.PaymentActionRequest) *service.PaymentResult
	getFn     func(ctx context.Context, id int64) (*service.ResolvedBooking, error)
}

func (m *mockPaymentService) ExecutePaymentAction(ctx context.Context, req service.PaymentActionRequest) *service.PaymentResult {
	return m.executeFn(ctx, req)
}
func (m *mockPaymentService) GetBookingPayment(ctx context.Context, id int64) (*service.ResolvedBooking, error) {
	return m.getFn(ctx, id)
}

// completedStore only reports its kind; the view never touches the row.
type completedStore struct{ repository.BookingStore }

func (completedStore) Kind() models.StoreKind { return models.StoreCompleted }

func postAction(t *testing.T, h *PaymentHandler, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/actions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, h.ExecuteAction(e.NewContext(req, rec))
}

func TestExecuteAction_Authorized(t *testing.T) {
	var got service.PaymentActionRequest
	amount := decimal.RequireFromString("75.00")
	svc := &mockPaymentService{
		executeFn: func(ctx context.Context, req service.PaymentActionRequest) *service.PaymentResult {
			got = req
			return &service.PaymentResult{
				Success: true, Action: "authorized", BookingID: 42, Amount: &amount,
				PaymentIntentID: "pi_123", PaymentStatus: models.PaymentAuthorized, Message: "payment authorized",
			}
		},
	}

	rec, err := postAction(t, NewPaymentHandler(svc), `{"bookingId":42,"action":"Authorize"}`)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), got.BookingID)
	assert.Equal(t, models.ActionAuthorize, got.Action)
	assert.Nil(t, got.Amount)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "authorized", resp["action"])
	assert.Equal(t, "pi_123", resp["paymentIntentId"])
	assert.Equal(t, 75.0, resp["amount"])
	assert.Equal(t, 42.0, resp["bookingId"])
	assert.Contains(t, rec.Body.String(), `"amount":75.00`)
	assert.NotContains(t, resp, "error")
}

func TestExecuteAction_DeclineIsStill200(t *testing.T) {
	svc := &mockPaymentService{
		executeFn: func(ctx context.Context, req service.PaymentActionRequest) *service.PaymentResult {
			return &service.PaymentResult{
				Action: "charge", BookingID: 42, Error: "Your card was declined.", PaymentStatus: models.PaymentFailed,
				ProcessorError: &processor.IntentError{Code: "card_declined", Type: "card_error", DeclineCode: "insufficient_funds"},
			}
		},
	}

	rec, err := postAction(t, NewPaymentHandler(svc), `{"bookingId":42,"action":"charge","amount":"12.345","paymentMethodId":"pm_1"}`)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Your card was declined.", resp["error"])
	assert.Equal(t, "card_declined", resp["stripeErrorCode"])
	assert.Equal(t, "card_error", resp["stripeErrorType"])
	assert.Equal(t, "insufficient_funds", resp["stripeDeclineCode"])
}

func TestExecuteAction_PassesAmountAndMethod(t *testing.T) {
	var got service.PaymentActionRequest
	svc := &mockPaymentService{
		executeFn: func(ctx context.Context, req service.PaymentActionRequest) *service.PaymentResult {
			got = req
			return &service.PaymentResult{Action: "retry", BookingID: req.BookingID}
		},
	}

	_, err := postAction(t, NewPaymentHandler(svc), `{"bookingId":7,"action":"retry","amount":12.345,"paymentMethodId":" pm_1 "}`)

	require.NoError(t, err)
	require.NotNil(t, got.Amount)
	assert.Equal(t, "12.345", got.Amount.String())
	assert.Equal(t, "pm_1", got.PaymentMethodID)
	assert.Equal(t, models.ActionRetry, got.Action)
}

func TestExecuteAction_BadRequests(t *testing.T) {
	svc := &mockPaymentService{
		executeFn: func(ctx context.Context, req service.PaymentActionRequest) *service.PaymentResult {
			t.Fatal("service must not be called")
			return nil
		},
	}
	h := NewPaymentHandler(svc)

	for name, body := range map[string]string{
		"malformed json":  `{"bookingId":`,
		"missing booking": `{"action":"charge"}`,
		"unknown action":  `{"bookingId":42,"action":"refund"}`,
		"bad amount":      `{"bookingId":42,"action":"charge","amount":"abc"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := postAction(t, h, body)

			var he *echo.HTTPError
			require.True(t, errors.As(err, &he))
			assert.Equal(t, http.StatusBadRequest, he.Code)
		})
	}
}

func TestGetBookingPayment_Success(t *testing.T) {
	svc := &mockPaymentService{
		getFn: func(ctx context.Context, id int64) (*service.ResolvedBooking, error) {
			return &service.ResolvedBooking{
				Store: completedStore{},
				Booking: &models.Booking{
					ID: id, CustomerID: 7, TotalCost: decimal.RequireFromString("75"),
					PaymentStatus: models.PaymentAuthorized, ProcessorReference: "pi_123", LifecycleStatus: "completed",
				},
			}, nil
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("42")

	err := NewPaymentHandler(svc).GetBookingPayment(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp["store"])
	assert.Equal(t, "authorized", resp["paymentStatus"])
	assert.Equal(t, "pi_123", resp["paymentIntentId"])
	assert.Contains(t, rec.Body.String(), `"totalCost":75.00`)
}

func TestGetBookingPayment_NotFound(t *testing.T) {
	svc := &mockPaymentService{
		getFn: func(ctx context.Context, id int64) (*service.ResolvedBooking, error) {
			return nil, service.ErrBookingNotFound
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("999")

	err := NewPaymentHandler(svc).GetBookingPayment(c)

	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestGetBookingPayment_InvalidID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	err := NewPaymentHandler(&mockPaymentService{}).GetBookingPayment(c)

	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusBadRequest, he.Code)
}
