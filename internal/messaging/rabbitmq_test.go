package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestPublishFailsFastWhileReconnecting(t *testing.T) {
	t.Parallel()

	r := &RabbitMQ{log: slog.New(slog.NewTextHandler(io.Discard, nil)), done: make(chan struct{})}
	// a reconnect in progress holds mu and has no channel installed
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- r.Publish(ctx, "notification.new_report", map[string]int64{"user_id": 1})
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("publish blocked while the broker was reconnecting")
	}
}

func TestEncodeEnvelope(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	body, err := encodeEnvelope("notification.submission_approved", map[string]any{"user_id": 7}, at)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var got struct {
		ID         string         `json:"id"`
		RoutingKey string         `json:"routing_key"`
		OccurredAt int64          `json:"occurred_at"`
		Payload    map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID == "" {
		t.Fatal("expected an event id")
	}
	if got.RoutingKey != "notification.submission_approved" || got.OccurredAt != at.Unix() {
		t.Fatalf("unexpected envelope %+v", got)
	}
	if got.Payload["user_id"] != float64(7) {
		t.Fatalf("unexpected payload %v", got.Payload)
	}

	if _, err := encodeEnvelope("x", make(chan int), at); err == nil {
		t.Fatal("expected an error for an unencodable payload")
	}
}
