// Package notify delivers outbox tasks to downstream HTTP consumers: the mail
// relay for customer notices and the invoicing service.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/MikeRez0/orderpay/internal/adapter/config"
	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"go.uber.org/zap"
)

const IdempotencyHeader = "Idempotency-Key"

type Client struct {
	logger     *zap.Logger
	notifyURL  string
	invoiceURL string
	http       *http.Client
}

var _ port.TaskHandler = (*Client)(nil)

func NewClient(cfg *config.Dispatch, log *zap.Logger) *Client {
	return &Client{
		logger:     log,
		notifyURL:  cfg.NotifyURL,
		invoiceURL: cfg.InvoiceURL,
		http:       &http.Client{Timeout: 15 * time.Second},
	}
}

type envelope struct {
	ID             string          `json:"id"`
	Kind           domain.TaskKind `json:"kind"`
	Reference      string          `json:"reference"`
	OrderID        uint64          `json:"order_id,omitempty"`
	Attempt        int             `json:"attempt"`
	Payload        json.RawMessage `json:"payload"`
	IdempotencyKey string          `json:"idempotency_key"`
}

func (c *Client) Handle(ctx context.Context, task *domain.Task) error {
	url := c.notifyURL
	if task.Kind == domain.TaskInvoiceGeneration {
		url = c.invoiceURL
	}
	if url == "" {
		// no consumer configured: the log line is the delivery
		c.logger.Info("Task delivered to log",
			zap.String("kind", string(task.Kind)),
			zap.String("reference", task.Reference),
			zap.Uint64("order", task.OrderID),
			zap.ByteString("payload", task.Payload))
		return nil
	}

	body, err := json.Marshal(envelope{
		ID:             task.ID.String(),
		Kind:           task.Kind,
		Reference:      task.Reference,
		OrderID:        task.OrderID,
		Attempt:        task.Attempts,
		Payload:        task.Payload,
		IdempotencyKey: task.IdempotencyKey,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTaskRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTaskRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyHeader, task.IdempotencyKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request error %s : %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300, resp.StatusCode == http.StatusConflict:
		// 409: the consumer already has this key
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		after := 10 * time.Second
		if sec, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && sec >= 0 {
			after = time.Duration(sec) * time.Second
		}
		return &domain.TaskRetryError{After: after, Err: fmt.Errorf("status %d from %s", resp.StatusCode, url)}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: status %d from %s", domain.ErrTaskRejected, resp.StatusCode, url)
	}
	return fmt.Errorf("bad response %v for request %s", resp.StatusCode, url)
}
