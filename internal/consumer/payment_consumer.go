package consumer

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Eursukkul/booking-microservice/payment-service/internal/dto"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/models"
	"github.com/Eursukkul/booking-microservice/payment-service/internal/service"
	"github.com/Eursukkul/booking-microservice/payment-service/pkg/logging"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// PaymentCommandConsumer runs payment actions requested over RabbitMQ by the
// periodic driver. The message body has the same shape as the HTTP request.
type PaymentCommandConsumer struct {
	svc    service.PaymentService
	logger *zap.Logger
}

func NewPaymentCommandConsumer(svc service.PaymentService, logger *zap.Logger) *PaymentCommandConsumer {
	return &PaymentCommandConsumer{svc: svc, logger: logger}
}

// Start handles messages until msgs is closed. done is closed afterwards.
func (pc *PaymentCommandConsumer) Start(ctx context.Context, msgs <-chan amqp.Delivery) (done <-chan struct{}) {
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for msg := range msgs {
			pc.handleMessage(ctx, msg)
		}
		pc.logger.Info("payment_consumer_stopped")
	}()
	return finished
}

// handleMessage acks every business outcome, including declines and
// in-progress answers. Only failures that never reached the processor are
// requeued; malformed commands are dropped.
func (pc *PaymentCommandConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	logger := pc.logger.With(zap.String("message_id", msg.MessageId), zap.Uint64("delivery_tag", msg.DeliveryTag))

	var cmd dto.PaymentActionRequest
	if err := json.Unmarshal(msg.Body, &cmd); err != nil {
		logger.Warn("payment_command_malformed", zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	action := models.PaymentAction(strings.ToLower(strings.TrimSpace(cmd.Action)))
	if cmd.BookingID <= 0 || !action.Valid() {
		logger.Warn("payment_command_invalid",
			zap.Int64("booking_id", cmd.BookingID),
			zap.String("action", cmd.Action),
		)
		_ = msg.Nack(false, false)
		return
	}

	res := pc.svc.ExecutePaymentAction(logging.ContextWithLogger(ctx, logger), service.PaymentActionRequest{
		BookingID:       cmd.BookingID,
		Action:          action,
		Amount:          cmd.Amount,
		PaymentMethodID: strings.TrimSpace(cmd.PaymentMethodID),
	})

	if res.Retryable {
		logger.Warn("payment_command_requeued", zap.String("error", res.Error))
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}
