package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the part of *amqp.Channel the forwarder uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPForwarder copies every bus event to a durable RabbitMQ queue as a
// persistent JSON message. Broker failures are logged and the event is
// dropped; they never reach the request that produced the event.
type AMQPForwarder struct {
	queue     string
	publisher Publisher
	timeout   time.Duration
	closeFn   func() error
}

// DialAMQP connects to the broker and declares the queue.
func DialAMQP(url string, queue string) (*AMQPForwarder, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	f := NewAMQPForwarder(ch, queue)
	f.closeFn = func() error {
		_ = ch.Close()
		return conn.Close()
	}
	return f, nil
}

func NewAMQPForwarder(publisher Publisher, queue string) *AMQPForwarder {
	return &AMQPForwarder{
		queue:     queue,
		publisher: publisher,
		timeout:   5 * time.Second,
	}
}

// Run forwards events from the bus until ctx is done.
func (f *AMQPForwarder) Run(ctx context.Context, bus Bus) {
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := f.Forward(ctx, e); err != nil {
				slog.Error("forward event to broker", "type", e.Type, "event_id", e.ID, "error", err)
			}
		}
	}
}

func (f *AMQPForwarder) Forward(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Type:         string(e.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := f.publisher.PublishWithContext(ctx, "", f.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", f.queue, err)
	}
	return nil
}

func (f *AMQPForwarder) Close() error {
	if f.closeFn == nil {
		return nil
	}
	return f.closeFn()
}
