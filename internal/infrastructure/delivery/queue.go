// Package delivery moves notification delivery off the harvest path: a
// NATS publisher on one side, a consumer driving the mailer on the other.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"BlogHarvester/internal/domain"
	"BlogHarvester/internal/ports"
)

// Queue publishes delivery tasks to a NATS subject.
type Queue struct {
	conn    *nats.Conn
	subject string
}

var _ ports.DeliveryQueue = (*Queue)(nil)

// Connect dials NATS with reconnect enabled.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}

func NewQueue(conn *nats.Conn, subject string) *Queue {
	return &Queue{conn: conn, subject: subject}
}

// Publish enqueues one delivery task. The notification row already
// exists, so a lost message costs a delivery, never the record.
func (q *Queue) Publish(_ context.Context, task domain.DeliveryTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal delivery task: %w", err)
	}
	if err := q.conn.Publish(q.subject, payload); err != nil {
		return fmt.Errorf("publish delivery task: %w", err)
	}
	return nil
}
