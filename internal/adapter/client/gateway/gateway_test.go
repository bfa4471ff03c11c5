package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MikeRez0/orderpay/internal/adapter/config"
	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func checkoutRequest() *domain.CheckoutRequest {
	return &domain.CheckoutRequest{
		Amount:      decimal.MustNew(115000, 2),
		Currency:    "ETB",
		Payer:       domain.Payer{FirstName: "Abebe", LastName: "Kebede", Email: "abebe@example.com"},
		Reference:   "PAY_20240307_ST202403071234_1234",
		CallbackURL: "http://shop.local/webhooks/gateway/payment",
	}
}

func newTestClient(t *testing.T, url string, mod func(*config.Gateway)) *Client {
	t.Helper()
	cfg := &config.Gateway{
		BaseURL:         url,
		SecretKey:       "CHASECK-test",
		Timeout:         time.Second,
		BreakerFailures: 2,
		BreakerOpenFor:  time.Minute,
	}
	if mod != nil {
		mod(cfg)
	}
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	c, err := NewClient(cfg, logger)
	require.NoError(t, err)
	return c
}

func TestInitialize(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, initializePath, r.URL.Path)
		assert.Equal(t, "Bearer CHASECK-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","message":"Hosted Link",` +
			`"data":{"checkout_url":"https://checkout.example/pay/abc"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	handle, err := c.Initialize(context.Background(), checkoutRequest())
	require.NoError(t, err)

	assert.Equal(t, "https://checkout.example/pay/abc", handle.CheckoutURL)
	assert.Equal(t, "PAY_20240307_ST202403071234_1234", handle.PaymentReference)
	assert.Equal(t, "1150.00", got["amount"])
	assert.Equal(t, "ETB", got["currency"])
	assert.Equal(t, "PAY_20240307_ST202403071234_1234", got["tx_ref"])
	assert.Equal(t, "abebe@example.com", got["email"])
}

func TestInitializeErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		header     map[string]string
		body       string
		retryAfter time.Duration
	}{
		{
			name:   "server error",
			status: http.StatusBadGateway,
			body:   `oops`,
		},
		{
			name:   "rejected",
			status: http.StatusBadRequest,
			body:   `{"status":"failed","message":{"email":["invalid"]}}`,
		},
		{
			name:       "throttled",
			status:     http.StatusTooManyRequests,
			header:     map[string]string{"Retry-After": "7"},
			retryAfter: 7 * time.Second,
		},
		{
			name:   "no checkout url",
			status: http.StatusOK,
			body:   `{"status":"success","data":{}}`,
		},
		{
			name:   "malformed",
			status: http.StatusOK,
			body:   `{"status":`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range test.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(test.status)
				_, _ = w.Write([]byte(test.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, nil)
			_, err := c.Initialize(context.Background(), checkoutRequest())
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrGateway)

			var gwErr *domain.GatewayError
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, "PAY_20240307_ST202403071234_1234", gwErr.Reference)
			assert.Equal(t, test.retryAfter, gwErr.RetryAfter)
		})
	}
}

func TestInitializeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv.URL, func(cfg *config.Gateway) { cfg.Timeout = 50 * time.Millisecond })
	start := time.Now()
	_, err := c.Initialize(context.Background(), checkoutRequest())
	assert.ErrorIs(t, err, domain.ErrGateway)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	for range 5 {
		_, err := c.Initialize(context.Background(), checkoutRequest())
		assert.ErrorIs(t, err, domain.ErrGateway)
	}
	// two failures trip the breaker, the rest never reach the server
	assert.Equal(t, int32(2), calls.Load())
}

func TestRejectionsDoNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	for range 4 {
		_, err := c.Initialize(context.Background(), checkoutRequest())
		assert.ErrorIs(t, err, domain.ErrGateway)
	}
	assert.Equal(t, int32(4), calls.Load())
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC)
	tests := map[string]time.Duration{
		"":                              defaultRetryAfter,
		"3":                             3 * time.Second,
		"junk":                          defaultRetryAfter,
		"Thu, 07 Mar 2024 12:00:30 GMT": 30 * time.Second,
		"Thu, 07 Mar 2024 11:00:00 GMT": 0,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseRetryAfter(in, now), in)
	}
}
