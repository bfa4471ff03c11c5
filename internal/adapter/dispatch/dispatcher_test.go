package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MikeRez0/orderpay/internal/adapter/config"
	"github.com/MikeRez0/orderpay/internal/adapter/storage/memory"
	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type handlerFunc func(ctx context.Context, task *domain.Task) error

func (f handlerFunc) Handle(ctx context.Context, task *domain.Task) error { return f(ctx, task) }

type countingHandler struct {
	mu    sync.Mutex
	calls map[string]int
	fail  func(task *domain.Task) error
}

func (h *countingHandler) Handle(_ context.Context, task *domain.Task) error {
	h.mu.Lock()
	h.calls[task.IdempotencyKey]++
	h.mu.Unlock()
	if h.fail != nil {
		return h.fail(task)
	}
	return nil
}

func (h *countingHandler) count(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[key]
}

func newDispatcher(t *testing.T, store *memory.Store, h *countingHandler, maxAttempts int) *Dispatcher {
	t.Helper()
	d, err := New(store, h, &config.Dispatch{
		Workers:      3,
		PollInterval: 10 * time.Millisecond,
		Lease:        time.Minute,
		MaxAttempts:  maxAttempts,
	}, zap.NewNop())
	require.NoError(t, err)
	return d
}

func enqueue(t *testing.T, store *memory.Store, ref string, kind domain.TaskKind) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(kind, ref, 1, map[string]string{"ref": ref})
	require.NoError(t, err)
	created, err := store.EnqueueTask(context.Background(), task)
	require.NoError(t, err)
	require.True(t, created)
	return task
}

func runFor(t *testing.T, d *Dispatcher, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- d.Run(ctx) }()

	assert.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestDispatcherDeliversOnce(t *testing.T) {
	store := memory.New()
	h := &countingHandler{calls: make(map[string]int)}
	d := newDispatcher(t, store, h, 3)

	refs := []string{"PAY_A", "PAY_B", "PAY_C", "PAY_D", "PAY_E", "PAY_F", "PAY_G"}
	for _, ref := range refs {
		enqueue(t, store, ref, domain.TaskOrderConfirmation)
	}

	runFor(t, d, func() bool {
		done, err := store.ListTasks(context.Background(), domain.TaskStatusDone, 0)
		return err == nil && len(done) == len(refs)
	})

	for _, ref := range refs {
		assert.Equal(t, 1, h.count(ref+":order_confirmation"), ref)
	}
}

func TestDispatcherBuriesAfterMaxAttempts(t *testing.T) {
	store := memory.New()
	h := &countingHandler{
		calls: make(map[string]int),
		fail:  func(*domain.Task) error { return errors.New("relay down") },
	}
	d := newDispatcher(t, store, h, 1)
	enqueue(t, store, "PAY_X", domain.TaskPaymentFailedNotice)

	runFor(t, d, func() bool {
		dead, err := store.ListTasks(context.Background(), domain.TaskStatusDead, 0)
		return err == nil && len(dead) == 1
	})

	dead, err := store.ListTasks(context.Background(), domain.TaskStatusDead, 0)
	require.NoError(t, err)
	assert.Equal(t, "relay down", dead[0].LastError)
	assert.Equal(t, 1, h.count("PAY_X:payment_failed_notice"))
}

func TestDispatcherRejectedIsDead(t *testing.T) {
	store := memory.New()
	h := &countingHandler{
		calls: make(map[string]int),
		fail:  func(*domain.Task) error { return domain.ErrTaskRejected },
	}
	d := newDispatcher(t, store, h, 10)
	enqueue(t, store, "PAY_R", domain.TaskInvoiceGeneration)

	runFor(t, d, func() bool {
		dead, err := store.ListTasks(context.Background(), domain.TaskStatusDead, 0)
		return err == nil && len(dead) == 1
	})
}

func TestDispatcherReschedules(t *testing.T) {
	store := memory.New()
	h := &countingHandler{
		calls: make(map[string]int),
		fail: func(*domain.Task) error {
			return &domain.TaskRetryError{After: time.Hour, Err: errors.New("busy")}
		},
	}
	d := newDispatcher(t, store, h, 5)
	task := enqueue(t, store, "PAY_S", domain.TaskOrderConfirmation)

	runFor(t, d, func() bool {
		pending, err := store.ListTasks(context.Background(), domain.TaskStatusPending, 0)
		return err == nil && len(pending) == 1 && pending[0].LastError != ""
	})

	pending, err := store.ListTasks(context.Background(), domain.TaskStatusPending, 0)
	require.NoError(t, err)
	assert.Equal(t, task.ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.WithinDuration(t, time.Now().Add(time.Hour), pending[0].NextAttemptAt, time.Minute)
	assert.Equal(t, 1, h.count("PAY_S:order_confirmation"))
}

func TestDispatcherSkipsCompletedKeys(t *testing.T) {
	store := memory.New()
	h := &countingHandler{calls: make(map[string]int)}
	d := newDispatcher(t, store, h, 3)
	d.completed.Add("PAY_K:order_confirmation", struct{}{})
	enqueue(t, store, "PAY_K", domain.TaskOrderConfirmation)

	runFor(t, d, func() bool {
		done, err := store.ListTasks(context.Background(), domain.TaskStatusDone, 0)
		return err == nil && len(done) == 1
	})
	assert.Equal(t, 0, h.count("PAY_K:order_confirmation"))
}

func TestSignalDoesNotBlock(t *testing.T) {
	d, err := New(memory.New(), handlerFunc(func(context.Context, *domain.Task) error { return nil }),
		&config.Dispatch{Workers: 1}, zap.NewNop())
	require.NoError(t, err)
	for range 10 {
		d.Signal()
	}
}

func TestBackoff(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 1; attempt <= 12; attempt++ {
		b := backoff(attempt)
		assert.GreaterOrEqual(t, b, baseBackoff)
		assert.LessOrEqual(t, b, maxBackoff+maxBackoff/5)
		if attempt <= 9 {
			assert.Greater(t, b, prev)
		}
		prev = b
	}
}
