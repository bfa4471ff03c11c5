package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TaskKind string

const (
	TaskOrderConfirmation   TaskKind = "order_confirmation"
	TaskInvoiceGeneration   TaskKind = "invoice_generation"
	TaskPaymentFailedNotice TaskKind = "payment_failed_notice"
	TaskStockShortfall      TaskKind = "stock_shortfall"
	TaskPaymentReview       TaskKind = "payment_review"
	TaskTransferSucceeded   TaskKind = "transfer_succeeded"
	TaskTransferFailed      TaskKind = "transfer_failed"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusProcessing TaskStatus = "PROCESSING"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusDead       TaskStatus = "DEAD"
)

// Task is a follow-on unit of work written to the outbox together with the
// state change that caused it.
type Task struct {
	ID             uuid.UUID
	Kind           TaskKind
	IdempotencyKey string
	Reference      string
	OrderID        uint64
	Payload        json.RawMessage
	Status         TaskStatus
	Attempts       int
	LastError      string
	NextAttemptAt  time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewTask builds a pending task keyed by reference and kind so that a
// repeated enqueue of the same fact collapses into one row.
func NewTask(kind TaskKind, reference string, orderID uint64, payload any) (*Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Task{
		ID:             uuid.New(),
		Kind:           kind,
		IdempotencyKey: reference + ":" + string(kind),
		Reference:      reference,
		OrderID:        orderID,
		Payload:        raw,
		Status:         TaskStatusPending,
		NextAttemptAt:  now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Payload = append(json.RawMessage(nil), t.Payload...)
	return &c
}

// ErrTaskRejected marks a delivery the consumer refused for good. The task is
// buried without further attempts.
var ErrTaskRejected = errors.New("task rejected by consumer")

// TaskRetryError asks for the next attempt no sooner than After.
type TaskRetryError struct {
	After time.Duration
	Err   error
}

func (e *TaskRetryError) Error() string {
	return fmt.Sprintf("retry after %s: %v", e.After, e.Err)
}

func (e *TaskRetryError) Unwrap() error {
	return e.Err
}
