package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"

	"github.com/nats-io/nats.go"

	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/ports"
)

// Consumer subscribes to the delivery subject and hands each task to
// the mailer. Delivery failures are logged and dropped; the stored
// notification is the durable record.
type Consumer struct {
	conn    *nats.Conn
	subject string
	mailer  ports.Mailer
	logger  *slog.Logger

	sub *nats.Subscription
}

func NewConsumer(conn *nats.Conn, subject string, mailer ports.Mailer, logger *slog.Logger) *Consumer {
	return &Consumer{conn: conn, subject: subject, mailer: mailer, logger: logger}
}

// Start subscribes with a queue group so multiple instances split the
// stream instead of duplicating sends.
func (c *Consumer) Start(ctx context.Context) error {
	sub, err := c.conn.QueueSubscribe(c.subject, "deliveries", func(msg *nats.Msg) {
		var task domain.DeliveryTask
		if err := json.Unmarshal(msg.Data, &task); err != nil {
			c.warn("drop malformed delivery task", "error", err)
			return
		}
		if err := c.deliver(ctx, task); err != nil {
			c.warn("delivery failed",
				"notification", task.NotificationID, "user", task.UserID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", c.subject, err)
	}
	c.sub = sub
	return nil
}

// Stop drains the subscription so in-flight tasks finish.
func (c *Consumer) Stop() error {
	if c.sub == nil {
		return nil
	}
	return c.sub.Drain()
}

func (c *Consumer) deliver(ctx context.Context, task domain.DeliveryTask) error {
	subject := fmt.Sprintf("New post about %s", task.TargetID)
	if task.TargetType == domain.TargetAuthor {
		subject = fmt.Sprintf("New post by %s", task.TargetID)
	}
	body := fmt.Sprintf(`<p><a href="%s">%s</a></p>`,
		html.EscapeString(task.PostLink), html.EscapeString(task.PostTitle))
	return c.mailer.Send(ctx, task.UserID, subject, body)
}

func (c *Consumer) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
