package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Eursukkul/booking-microservice/payment-service/internal/metrics"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/models"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/processor"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/repository"
	"github.com/Eursukkul/booking-microservice/payment-service/pkg/logging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	ErrBookingNotFound = errors.New("booking not found in upcoming or completed bookings")
	ErrNoPaymentMethod = errors.New("no payment method available")
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrUnknownAction   = errors.New("action must be one of authorize, charge, retry")
	ErrPaymentInFlight = errors.New("another payment action is in progress for this booking")
)

const (
	defaultProcessorTimeout = 20 * time.Second
	defaultLockTTL          = 2 * time.Minute
)

type PaymentActionRequest struct {
	BookingID       int64
	Action          models.PaymentAction
	Amount          *decimal.Decimal
	PaymentMethodID string
}

// PaymentResult is the outcome of one payment action. Failures are reported
// here rather than as errors; Success discriminates.
type PaymentResult struct {
	Success                bool
	Action                 string
	BookingID              int64
	Store                  models.StoreKind
	Amount                 *decimal.Decimal
	PaymentIntentID        string
	PaymentStatus          models.PaymentStatus
	Message                string
	Error                  string
	ProcessorError         *processor.IntentError
	RequiresAction         bool
	ReconciliationRequired bool
	// Retryable marks infrastructure failures that happened before the
	// processor was reached; running the action again is safe.
	Retryable              bool
}

// EventPublisher receives payment outcome events for notification senders.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type PaymentService interface {
	ExecutePaymentAction(ctx context.Context, req PaymentActionRequest) *PaymentResult
	GetBookingPayment(ctx context.Context, bookingID int64) (*ResolvedBooking, error)
}

type Options struct {
	ProcessorTimeout time.Duration
	LockTTL          time.Duration
	Metrics          *metrics.Payment
	Tracer           trace.Tracer
}

type paymentService struct {
	resolver  *BookingResolver
	vault     repository.PaymentMethodRepository
	processor processor.Processor
	publisher EventPublisher
	timeout   time.Duration
	lockTTL   time.Duration
	metrics   *metrics.Payment
	tracer    trace.Tracer
}

func NewPaymentService(
	resolver *BookingResolver,
	vault repository.PaymentMethodRepository,
	proc processor.Processor,
	publisher EventPublisher,
	opts Options,
) PaymentService {
	s := &paymentService{
		resolver:  resolver,
		vault:     vault,
		processor: proc,
		publisher: publisher,
		timeout:   opts.ProcessorTimeout,
		lockTTL:   opts.LockTTL,
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
	}
	if s.timeout <= 0 {
		s.timeout = defaultProcessorTimeout
	}
	if s.lockTTL <= 0 {
		s.lockTTL = defaultLockTTL
	}
	if s.metrics == nil {
		s.metrics = metrics.NewPayment()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("payment-service")
	}
	return s
}

func (s *paymentService) GetBookingPayment(ctx context.Context, bookingID int64) (*ResolvedBooking, error) {
	return s.resolver.Resolve(ctx, bookingID)
}

// ExecutePaymentAction resolves the booking, applies the idempotency guards,
// calls the processor under the per-booking lock and writes the result back
// to the store that holds the booking.
func (s *paymentService) ExecutePaymentAction(ctx context.Context, req PaymentActionRequest) (res *PaymentResult) {
	logger := logging.FromContext(ctx).With(
		zap.String("component", "payment_orchestrator"),
		zap.Int64("booking_id", req.BookingID),
		zap.String("action", string(req.Action)),
	)
	ctx = logging.ContextWithLogger(ctx, logger)

	ctx, span := s.tracer.Start(ctx, "PaymentOrchestrator.Execute", trace.WithAttributes(
		attribute.Int64("booking.id", req.BookingID),
		attribute.String("payment.action", string(req.Action)),
	))
	start := time.Now()
	logger.Info("payment_action_start")

	defer func() {
		if r := recover(); r != nil {
			logger.Error("payment_action_panic", zap.Any("panic", r))
			res = s.failure(req, fmt.Errorf("unexpected error: %v", r))
		}

		span.SetAttributes(
			attribute.String("payment.result_action", res.Action),
			attribute.Bool("payment.success", res.Success),
			attribute.String("payment.status", string(res.PaymentStatus)),
		)
		if res.Success {
			span.SetStatus(codes.Ok, res.Action)
		} else {
			span.SetStatus(codes.Error, res.Error)
		}
		span.End()

		s.metrics.Actions.WithLabelValues(string(req.Action), res.Action).Inc()

		fields := []zap.Field{
			zap.Bool("success", res.Success),
			zap.String("result_action", res.Action),
			zap.String("store", string(res.Store)),
			zap.String("payment_status", string(res.PaymentStatus)),
			zap.Duration("latency", time.Since(start)),
		}
		if res.PaymentIntentID != "" {
			fields = append(fields, zap.String("payment_intent_id", res.PaymentIntentID))
		}
		if res.Error != "" {
			fields = append(fields, zap.String("error", res.Error))
		}
		if res.ProcessorError != nil {
			fields = append(fields,
				zap.String("stripe_error_code", res.ProcessorError.Code),
				zap.String("stripe_decline_code", res.ProcessorError.DeclineCode),
			)
		}
		logger.Info("payment_action_done", fields...)
	}()

	return s.execute(ctx, req)
}

func (s *paymentService) execute(ctx context.Context, req PaymentActionRequest) *PaymentResult {
	logger := logging.FromContext(ctx)

	if !req.Action.Valid() {
		return s.failure(req, ErrUnknownAction)
	}

	resolved, err := s.resolver.Resolve(ctx, req.BookingID)
	if err != nil {
		res := s.failure(req, err)
		res.Retryable = !errors.Is(err, ErrBookingNotFound)
		return res
	}
	booking := resolved.Booking
	store := resolved.Store

	res := &PaymentResult{
		Action:        string(req.Action),
		BookingID:     booking.ID,
		Store:         store.Kind(),
		PaymentStatus: booking.PaymentStatus,
	}

	if booking.IsCancelled() {
		res.Action = TagSkipped
		res.Error = "booking is cancelled"
		return res
	}

	amount := booking.TotalCost
	if req.Amount != nil {
		amount = *req.Amount
	}
	res.Amount = &amount

	switch req.Action {
	case models.ActionAuthorize:
		if booking.PaymentStatus == models.PaymentPaid || booking.PaymentStatus == models.PaymentAuthorized {
			res.Success = true
			res.Action = TagAlreadyProcessed
			res.PaymentIntentID = booking.ProcessorReference
			res.Message = "payment already " + string(booking.PaymentStatus)
			return res
		}
	case models.ActionCharge, models.ActionRetry:
		if booking.PaymentStatus.IsTerminal() {
			res.Success = true
			res.Action = TagAlreadyPaid
			res.PaymentIntentID = booking.ProcessorReference
			res.Message = "booking is already paid"
			return res
		}
	}

	minor, err := ToMinorUnits(amount)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	method, err := s.resolvePaymentMethod(ctx, booking.CustomerID, req.PaymentMethodID)
	if err != nil {
		res.Error = err.Error()
		res.Retryable = !errors.Is(err, ErrNoPaymentMethod)
		return res
	}

	token := uuid.NewString()
	locked, err := store.AcquirePaymentLock(ctx, booking.ID, booking.PaymentStatus, token, s.lockTTL)
	if err != nil {
		res.Error = fmt.Sprintf("acquire payment lock: %v", err)
		res.Retryable = true
		return res
	}
	if !locked {
		res.Action = TagInProgress
		res.Error = ErrPaymentInFlight.Error()
		return res
	}

	// caller gave up before the processor was reached
	if err := ctx.Err(); err != nil {
		if rerr := store.ReleasePaymentLock(context.WithoutCancel(ctx), booking.ID, token); rerr != nil {
			logger.Warn("payment_lock_release_failed", zap.Error(rerr))
		}
		res.Error = fmt.Sprintf("request cancelled before processor call: %v", err)
		res.Retryable = true
		return res
	}

	var out outcome
	switch {
	case req.Action == models.ActionAuthorize:
		out = s.authorize(ctx, resolved, method, minor, token)
	case booking.HasAuthorization():
		out = s.capture(ctx, booking, minor, token)
	default:
		out = s.charge(ctx, resolved, method, minor, token)
	}

	if out.tag != "" {
		res.Action = out.tag
	}
	res.Success = out.success
	res.PaymentIntentID = out.intentID
	res.Message = out.message
	res.Error = out.errMsg
	res.ProcessorError = out.processorErr
	res.RequiresAction = out.requiresAction
	res.PaymentStatus = out.update.Status

	// the processor has been called; the write must not be lost to a
	// cancelled request context
	persistCtx := context.WithoutCancel(ctx)
	if err := store.SavePaymentResult(persistCtx, booking.ID, token, out.update); err != nil {
		logger.Error("payment_state_persist_failed",
			zap.String("store", string(store.Kind())),
			zap.String("intended_status", string(out.update.Status)),
			zap.String("payment_intent_id", out.intentID),
			zap.Error(err),
		)
		s.metrics.PersistFailures.WithLabelValues(string(store.Kind())).Inc()
		res.Success = false
		res.ReconciliationRequired = true
		res.PaymentStatus = booking.PaymentStatus
		res.Error = fmt.Sprintf("processor outcome %q could not be saved: %v", out.update.Status, err)
		s.publish(persistCtx, "payment.reconcile_required", resolved, res)
		return res
	}

	s.publish(persistCtx, "payment."+string(out.update.Status), resolved, res)
	return res
}

func (s *paymentService) resolvePaymentMethod(ctx context.Context, customerID int64, requested string) (*models.PaymentMethod, error) {
	methods, err := s.vault.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("load payment methods: %w", err)
	}
	method := selectPaymentMethod(methods, requested)
	if method == nil {
		return nil, ErrNoPaymentMethod
	}
	return method, nil
}

func (s *paymentService) authorize(ctx context.Context, rb *ResolvedBooking, method *models.PaymentMethod, minor int64, token string) outcome {
	intent, err := s.call(ctx, "authorize", func(ctx context.Context) (*processor.Intent, error) {
		return s.processor.CreateAuthorization(ctx, paymentRequest(rb, method, minor, token))
	})
	if err != nil {
		return ambiguousOutcome(err)
	}
	return newIntentOutcome(intent, processor.StatusRequiresCapture, TagAuthorized)
}

func (s *paymentService) charge(ctx context.Context, rb *ResolvedBooking, method *models.PaymentMethod, minor int64, token string) outcome {
	intent, err := s.call(ctx, "charge", func(ctx context.Context) (*processor.Intent, error) {
		return s.processor.CreateImmediateCharge(ctx, paymentRequest(rb, method, minor, token))
	})
	if err != nil {
		return ambiguousOutcome(err)
	}
	return newIntentOutcome(intent, processor.StatusSucceeded, TagCharged)
}

func (s *paymentService) capture(ctx context.Context, booking *models.Booking, minor int64, token string) outcome {
	intent, err := s.call(ctx, "capture", func(ctx context.Context) (*processor.Intent, error) {
		return s.processor.Capture(ctx, booking.ProcessorReference, minor, token)
	})
	if err != nil {
		o := ambiguousOutcome(err)
		o.intentID = booking.ProcessorReference
		return o
	}
	return captureOutcome(intent, booking.ProcessorReference)
}

// call bounds a processor call by the configured timeout and records its
// latency.
func (s *paymentService) call(ctx context.Context, operation string, fn func(context.Context) (*processor.Intent, error)) (*processor.Intent, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	intent, err := fn(callCtx)
	s.metrics.ProcessorDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if err == nil && intent == nil {
		err = errors.New("processor returned no payment intent")
	}
	if err != nil {
		logging.FromContext(ctx).Warn("processor_call_failed",
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
	return intent, err
}

func paymentRequest(rb *ResolvedBooking, method *models.PaymentMethod, minor int64, token string) processor.PaymentRequest {
	id := strconv.FormatInt(rb.Booking.ID, 10)
	return processor.PaymentRequest{
		AmountMinor:        minor,
		CustomerToken:      method.StripeCustomerID,
		PaymentMethodToken: method.StripePaymentMethodID,
		IdempotencyKey:     token,
		Description:        fmt.Sprintf("Booking #%s", id),
		Metadata: map[string]string{
			"booking_id":    id,
			"booking_store": string(rb.Kind()),
			"customer_id":   strconv.FormatInt(rb.Booking.CustomerID, 10),
		},
	}
}

func (s *paymentService) failure(req PaymentActionRequest, err error) *PaymentResult {
	return &PaymentResult{
		Action:    string(req.Action),
		BookingID: req.BookingID,
		Error:     err.Error(),
	}
}

// PaymentEvent is published after every processor outcome.
type PaymentEvent struct {
	BookingID       int64            `json:"booking_id"`
	Store           models.StoreKind `json:"store"`
	CustomerID      int64            `json:"customer_id"`
	CustomerName    string           `json:"customer_name,omitempty"`
	CustomerEmail   string           `json:"customer_email,omitempty"`
	Action          string           `json:"action"`
	Success         bool             `json:"success"`
	PaymentStatus   string           `json:"payment_status"`
	PaymentIntentID string           `json:"payment_intent_id,omitempty"`
	Amount          string           `json:"amount,omitempty"`
	Error           string           `json:"error,omitempty"`
	OccurredAt      time.Time        `json:"occurred_at"`
}

func (s *paymentService) publish(ctx context.Context, routingKey string, rb *ResolvedBooking, res *PaymentResult) {
	if s.publisher == nil {
		return
	}
	evt := PaymentEvent{
		BookingID:       rb.Booking.ID,
		Store:           rb.Kind(),
		CustomerID:      rb.Booking.CustomerID,
		CustomerName:    rb.Booking.CustomerName,
		CustomerEmail:   rb.Booking.CustomerEmail,
		Action:          res.Action,
		Success:         res.Success,
		PaymentStatus:   string(res.PaymentStatus),
		PaymentIntentID: res.PaymentIntentID,
		Error:           res.Error,
		OccurredAt:      time.Now().UTC(),
	}
	if res.Amount != nil {
		evt.Amount = res.Amount.StringFixed(2)
	}
	if err := s.publisher.Publish(ctx, routingKey, evt); err != nil {
		logging.FromContext(ctx).Warn("payment_event_publish_failed",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}
