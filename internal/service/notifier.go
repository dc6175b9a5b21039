package service

import (
	"context"
	"log/slog"
	"strconv"

	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/metrics"
	"lokasi-umkm-backend/internal/ports"
	"lokasi-umkm-backend/internal/repository"
)

// Notifier records user-facing alerts and fans them out to push and the event
// broker. Delivery is fire-and-forget: failures are logged and never reach the
// operation that triggered them.
type Notifier struct {
	Store  ports.NotificationStore
	Admins ports.AdminDirectory
	Push   ports.PushSender
	Events ports.EventPublisher
	Logger *slog.Logger
}

type Message struct {
	Type        domain.NotificationType
	Title       string
	Message     string
	Link        *string
	ReferenceID *int64
}

// notificationEvent is published to the broker for external delivery.
type notificationEvent struct {
	UserID      int64  `json:"user_id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Link        string `json:"link,omitempty"`
	ReferenceID *int64 `json:"reference_id,omitempty"`
}

// Notify sends m to a single user.
func (n *Notifier) Notify(ctx context.Context, userID int64, m Message) {
	if n == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	_, err := n.Store.Create(ctx, repository.CreateNotificationInput{
		UserID:      userID,
		Type:        m.Type,
		Title:       m.Title,
		Message:     m.Message,
		Link:        m.Link,
		ReferenceID: m.ReferenceID,
	})
	if err != nil {
		metrics.NotificationsSent.WithLabelValues(string(m.Type), "error").Inc()
		n.logger().Error("store notification", "user_id", userID, "type", m.Type, "err", err)
		return
	}
	metrics.NotificationsSent.WithLabelValues(string(m.Type), "ok").Inc()

	if n.Push != nil {
		data := map[string]string{"type": string(m.Type)}
		if m.ReferenceID != nil {
			data["reference_id"] = strconv.FormatInt(*m.ReferenceID, 10)
		}
		if m.Link != nil {
			data["link"] = *m.Link
		}
		if err := n.Push.Send(ctx, userID, m.Title, m.Message, data); err != nil {
			n.logger().Warn("push notification", "user_id", userID, "type", m.Type, "err", err)
		}
	}

	if n.Events != nil {
		ev := notificationEvent{
			UserID:      userID,
			Type:        string(m.Type),
			Title:       m.Title,
			Message:     m.Message,
			ReferenceID: m.ReferenceID,
		}
		if m.Link != nil {
			ev.Link = *m.Link
		}
		if err := n.Events.Publish(ctx, "notification."+string(m.Type), ev); err != nil {
			n.logger().Warn("publish notification event", "user_id", userID, "type", m.Type, "err", err)
		}
	}
}

// NotifyAdmins sends m to every active administrator.
func (n *Notifier) NotifyAdmins(ctx context.Context, m Message) {
	if n == nil || n.Admins == nil {
		return
	}
	ids, err := n.Admins.ActiveAdminIDs(ctx)
	if err != nil {
		n.logger().Error("list admins for notification", "type", m.Type, "err", err)
		return
	}
	for _, id := range ids {
		n.Notify(ctx, id, m)
	}
}

func (n *Notifier) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.Default()
	}
	return n.Logger
}

func link(path string) *string { return &path }
