package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
}

func NewConsumer(url string, logger *zap.Logger) (*Consumer, error) {
	conn, ch, err := dial(url)
	if err != nil {
		return nil, err
	}

	q, err := ch.QueueDeclare(CommandQueue, true, false, false, false, nil)
	if err != nil {
		closeAll(conn, ch)
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	if err := ch.QueueBind(q.Name, CommandRoutingKey, ExchangeName, false, nil); err != nil {
		closeAll(conn, ch)
		return nil, fmt.Errorf("rabbitmq queue bind: %w", err)
	}

	// one command at a time; each may hold a processor call for seconds
	if err := ch.Qos(1, 0, false); err != nil {
		closeAll(conn, ch)
		return nil, fmt.Errorf("rabbitmq qos: %w", err)
	}

	return &Consumer{conn: conn, channel: ch, logger: logger}, nil
}

func (c *Consumer) Consume() (<-chan amqp.Delivery, error) {
	msgs, err := c.channel.Consume(
		CommandQueue,
		"",    // consumer tag
		false, // manual ack after the action ran
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq consume: %w", err)
	}

	c.logger.Info("rabbitmq_consuming", zap.String("queue", CommandQueue))
	return msgs, nil
}

func (c *Consumer) Close() {
	closeAll(c.conn, c.channel)
}
