package port

import (
	"context"
	"time"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/google/uuid"
)

//go:generate mockgen -source=outbox.go -destination=mock/outbox.go -package=mock
type TaskQueue interface {
	// EnqueueTask reports false when a task with the same idempotency key exists.
	EnqueueTask(ctx context.Context, task *domain.Task) (bool, error)
	// ClaimTasks leases due tasks; a task whose lease expires becomes due again.
	ClaimTasks(ctx context.Context, limit int, lease time.Duration) ([]*domain.Task, error)
	CompleteTask(ctx context.Context, id uuid.UUID) error
	RetryTask(ctx context.Context, id uuid.UUID, nextAttempt time.Time, lastErr string) error
	BuryTask(ctx context.Context, id uuid.UUID, lastErr string) error
	ListTasks(ctx context.Context, status domain.TaskStatus, limit uint64) ([]*domain.Task, error)
	RequeueTask(ctx context.Context, id uuid.UUID) error
}

type TaskHandler interface {
	Handle(ctx context.Context, task *domain.Task) error
}

// TaskSignaler wakes the dispatcher after new tasks were committed.
type TaskSignaler interface {
	Signal()
}
