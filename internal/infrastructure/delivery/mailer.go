package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"BlogHarvester/internal/ports"
)

// HTTPMailer sends mail through a transactional email HTTP API.
type HTTPMailer struct {
	endpoint string
	apiKey   string
	from     string
	http     *http.Client
}

var _ ports.Mailer = (*HTTPMailer)(nil)

func NewHTTPMailer(endpoint, apiKey, from string) *HTTPMailer {
	return &HTTPMailer{
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts one message. to is the recipient address.
func (m *HTTPMailer) Send(ctx context.Context, to, subject, html string) error {
	if m.endpoint == "" {
		return fmt.Errorf("mailer endpoint is not configured")
	}

	payload, err := json.Marshal(map[string]string{
		"from":    m.from,
		"to":      to,
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("send mail: status %s: %s", resp.Status, string(body))
	}
	return nil
}
