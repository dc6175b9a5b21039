// Package messaging publishes domain events to RabbitMQ so that external
// consumers (e-mail, SMS) can deliver them.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "lokasi.events"

	reconnectDelay = 5 * time.Second
	publishTimeout = 5 * time.Second
)

// Envelope is the JSON body of every published message.
type Envelope struct {
	ID         string `json:"id"`
	RoutingKey string `json:"routing_key"`
	OccurredAt int64  `json:"occurred_at"`
	Payload    any    `json:"payload"`
}

// ErrUnavailable is returned by Publish while no broker channel is open.
var ErrUnavailable = errors.New("channel not available")

type RabbitMQ struct {
	url  string
	log  *slog.Logger
	done chan struct{}

	// channel is swapped atomically so Publish never waits on a reconnect.
	channel atomic.Pointer[amqp.Channel]

	mu   sync.Mutex
	conn *amqp.Connection
}

// Dial connects to the broker, retrying a few times before giving up, and
// keeps the connection alive in the background.
func Dial(ctx context.Context, url string, log *slog.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{url: url, log: log, done: make(chan struct{})}

	err := retry.Do(
		r.connect,
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(2*time.Second),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("rabbitmq connect failed, retrying", "attempt", n+1, "err", err)
		}),
	)
	if err != nil {
		return nil, err
	}

	go r.handleReconnect()
	return r, nil
}

// connect dials without holding any lock and only takes mu to install the
// new connection.
func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.done:
		ch.Close()
		conn.Close()
		return errors.New("rabbitmq closed")
	default:
	}
	r.conn = conn
	r.channel.Store(ch)
	r.log.Info("rabbitmq connected", "exchange", ExchangeName)
	return nil
}

func (r *RabbitMQ) handleReconnect() {
	for {
		r.mu.Lock()
		conn := r.conn
		r.mu.Unlock()
		closed := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-r.done:
			return
		case err := <-closed:
			r.channel.Store(nil)
			if err != nil {
				r.log.Warn("rabbitmq connection lost, reconnecting", "err", err)
			}
			for {
				err := r.connect()
				if err == nil {
					break
				}
				r.log.Warn("rabbitmq reconnect failed", "err", err, "retry_in", reconnectDelay)
				select {
				case <-r.done:
					return
				case <-time.After(reconnectDelay):
				}
			}
		}
	}
}

// Publish sends payload to the events exchange under routingKey. It fails
// fast with ErrUnavailable while the connection is being re-established.
func (r *RabbitMQ) Publish(ctx context.Context, routingKey string, payload any) error {
	ch := r.channel.Load()
	if ch == nil {
		return ErrUnavailable
	}

	body, err := encodeEnvelope(routingKey, payload, time.Now())
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(pubCtx, ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func encodeEnvelope(routingKey string, payload any, at time.Time) ([]byte, error) {
	body, err := json.Marshal(Envelope{
		ID:         uuid.NewString(),
		RoutingKey: routingKey,
		OccurredAt: at.Unix(),
		Payload:    payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return body, nil
}

func (r *RabbitMQ) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	close(r.done)

	if ch := r.channel.Swap(nil); ch != nil {
		ch.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
	r.log.Info("rabbitmq connection closed")
}
