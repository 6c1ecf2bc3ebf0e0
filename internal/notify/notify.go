// Package notify delivers user notifications over one or more channels.
// The alert dispatcher counts a send as delivered when at least one
// channel succeeds; a failing channel never blocks the others.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/paisa-labs/market-sync/internal/model"
	"github.com/paisa-labs/market-sync/internal/store"
)

// Message is one outbound notification.
type Message struct {
	UserID  string `json:"user_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
	Level   string `json:"level"`
}

// Notifier sends a message and reports how many channels delivered it.
type Notifier interface {
	Send(ctx context.Context, msg Message) (delivered int, err error)
}

// InApp persists notifications as rows the surrounding application
// surfaces in its UI.
type InApp struct {
	store store.Store
}

// NewInApp creates the in-app channel over the persisted store.
func NewInApp(st store.Store) *InApp {
	return &InApp{store: st}
}

func (n *InApp) Send(ctx context.Context, msg Message) (int, error) {
	err := n.store.InsertNotification(ctx, &model.Notification{
		ID:        uuid.New().String(),
		UserID:    msg.UserID,
		Title:     msg.Title,
		Message:   msg.Message,
		URL:       msg.URL,
		Level:     msg.Level,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}
	return 1, nil
}

// Webhook POSTs the message as JSON to an external endpoint.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates the external channel. An empty url disables it.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (n *Webhook) Send(ctx context.Context, msg Message) (int, error) {
	if n.url == "" {
		return 0, nil
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return 1, nil
}

// Multi fans a message out to every channel. Channel failures are
// logged; the returned count is the number of successful deliveries.
type Multi struct {
	channels []Notifier
}

// NewMulti combines channels into one notifier.
func NewMulti(channels ...Notifier) *Multi {
	return &Multi{channels: channels}
}

func (n *Multi) Send(ctx context.Context, msg Message) (int, error) {
	delivered := 0
	for _, ch := range n.channels {
		count, err := ch.Send(ctx, msg)
		if err != nil {
			slog.Warn("notification channel failed", "user", msg.UserID, "err", err)
			continue
		}
		delivered += count
	}
	return delivered, nil
}
