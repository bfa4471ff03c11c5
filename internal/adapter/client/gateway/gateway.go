// Package gateway talks to the hosted checkout of the payment gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MikeRez0/orderpay/internal/adapter/config"
	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const initializePath = "/transaction/initialize"

// defaultRetryAfter applies when a 429 carries no usable Retry-After header.
const defaultRetryAfter = 10 * time.Second

type Client struct {
	logger  *zap.Logger
	baseURL string
	secret  string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

var _ port.PaymentGateway = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func NewClient(cfg *config.Gateway, log *zap.Logger, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway base url is empty")
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	c := &Client{
		logger:  log,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		secret:  cfg.SecretKey,
		timeout: cfg.Timeout,
		http:    &http.Client{},
		limiter: rate.NewLimiter(limit, burst),
	}
	for _, opt := range opts {
		opt(c)
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// a definite answer from the gateway proves it is reachable
			var re *rejectedError
			return err == nil || errors.As(err, &re)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})

	return c, nil
}

type initializeRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Email       string `json:"email,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	TxRef       string `json:"tx_ref"`
	CallbackURL string `json:"callback_url,omitempty"`
	ReturnURL   string `json:"return_url,omitempty"`
}

type initializeResponse struct {
	Status  string `json:"status"`
	Message any    `json:"message"`
	Data    *struct {
		CheckoutURL string `json:"checkout_url"`
		Reference   string `json:"reference"`
	} `json:"data"`
}

// rejectedError is a 4xx answer other than 429.
type rejectedError struct {
	status  int
	message string
}

func (e *rejectedError) Error() string {
	return fmt.Sprintf("gateway rejected request: status %d: %s", e.status, e.message)
}

// throttledError is a 429 answer.
type throttledError struct {
	retryAfter time.Duration
}

func (e *throttledError) Error() string {
	return fmt.Sprintf("Too Many Requests. Retry-After: %s", e.retryAfter)
}

// Initialize opens a hosted checkout. Every failure, including an open
// breaker, comes back as *domain.GatewayError.
func (c *Client) Initialize(ctx context.Context, req *domain.CheckoutRequest) (*domain.CheckoutHandle, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		return c.initialize(ctx, req)
	})
	if err != nil {
		gwErr := &domain.GatewayError{Reference: req.Reference, Err: err}
		var te *throttledError
		if errors.As(err, &te) {
			gwErr.RetryAfter = te.retryAfter
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn("Gateway call short-circuited", zap.String("reference", req.Reference))
		}
		return nil, gwErr
	}

	return result.(*domain.CheckoutHandle), nil
}

func (c *Client) initialize(ctx context.Context, req *domain.CheckoutRequest) (*domain.CheckoutHandle, error) {
	body, err := json.Marshal(initializeRequest{
		Amount:      req.Amount.String(),
		Currency:    req.Currency,
		Email:       req.Payer.Email,
		FirstName:   req.Payer.FirstName,
		LastName:    req.Payer.LastName,
		TxRef:       req.Reference,
		CallbackURL: req.CallbackURL,
		ReturnURL:   req.ReturnURL,
	})
	if err != nil {
		return nil, err
	}

	requestStr := c.baseURL + initializePath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, requestStr, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error on %s : %w", requestStr, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.secret)

	c.logger.Debug("Fire checkout initialization", zap.String("reference", req.Reference))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request error %s : %w", requestStr, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	var result initializeResponse
	decodeErr := json.Unmarshal(raw, &result)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &throttledError{retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, &rejectedError{status: resp.StatusCode, message: messageOf(result.Message, raw)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Error("Unexpected status from gateway",
			zap.String("reference", req.Reference), zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("bad response %v for request %s", resp.StatusCode, requestStr)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("error on response decode: %w", decodeErr)
	}
	if !strings.EqualFold(result.Status, "success") || result.Data == nil || result.Data.CheckoutURL == "" {
		return nil, fmt.Errorf("gateway did not return a checkout url: %s", messageOf(result.Message, raw))
	}

	return &domain.CheckoutHandle{
		PaymentReference: req.Reference,
		CheckoutURL:      result.Data.CheckoutURL,
		GatewayReference: result.Data.Reference,
	}, nil
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return defaultRetryAfter
	}
	if sec, err := strconv.Atoi(v); err == nil && sec >= 0 {
		return time.Duration(sec) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return defaultRetryAfter
}

// messageOf flattens the gateway's message, which is either a string or a
// map of field errors.
func messageOf(m any, raw []byte) string {
	switch v := m.(type) {
	case string:
		return v
	case nil:
		if len(raw) > 200 {
			raw = raw[:200]
		}
		return string(raw)
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}
