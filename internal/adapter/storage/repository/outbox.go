package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/google/uuid"
)

var taskColumns = []string{
	"id", "kind", "idempotency_key", "reference", "order_id", "payload", "status",
	"attempts", "last_error", "next_attempt_at", "created_at", "updated_at",
}

// claimTasksSQL leases due rows. SKIP LOCKED lets several dispatchers claim
// concurrently without handing the same task out twice.
const claimTasksSQL = `
UPDATE outbox_tasks
   SET status = 'PROCESSING',
       attempts = attempts + 1,
       next_attempt_at = $1,
       updated_at = $2
 WHERE id IN (
       SELECT id FROM outbox_tasks
        WHERE status IN ('PENDING', 'PROCESSING')
          AND next_attempt_at <= $2
        ORDER BY next_attempt_at
        LIMIT $3
          FOR UPDATE SKIP LOCKED)
RETURNING id, kind, idempotency_key, reference, order_id, payload, status,
          attempts, last_error, next_attempt_at, created_at, updated_at`

func scanTask(row rowScanner) (*domain.Task, error) {
	t := domain.Task{}
	var payload []byte
	err := row.Scan(
		&t.ID,
		&t.Kind,
		&t.IdempotencyKey,
		&t.Reference,
		&t.OrderID,
		&payload,
		&t.Status,
		&t.Attempts,
		&t.LastError,
		&t.NextAttemptAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Payload = payload
	return &t, nil
}

func (r *Repository) insertTask(ctx context.Context, q querier, task *domain.Task) (bool, error) {
	statement := r.db.QueryBuilder.
		Insert("outbox_tasks").
		Columns(taskColumns...).
		Values(task.ID, task.Kind, task.IdempotencyKey, task.Reference, task.OrderID, []byte(task.Payload),
			task.Status, task.Attempts, task.LastError, task.NextAttemptAt, task.CreatedAt, task.UpdatedAt).
		Suffix("ON CONFLICT (idempotency_key) DO NOTHING RETURNING id")

	sql, args, err := statement.ToSql()
	if err != nil {
		return false, err
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	created := rows.Next()
	rows.Close()
	return created, rows.Err()
}

func (r *Repository) EnqueueTask(ctx context.Context, task *domain.Task) (bool, error) {
	created, err := r.insertTask(ctx, r.db, task)
	if err != nil {
		return false, mapError(err)
	}
	return created, nil
}

func (r *Repository) ClaimTasks(ctx context.Context, limit int, lease time.Duration) ([]*domain.Task, error) {
	now := time.Now()
	rows, err := r.db.Query(ctx, claimTasksSQL, now.Add(lease), now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*domain.Task, 0, limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *Repository) CompleteTask(ctx context.Context, id uuid.UUID) error {
	return r.updateTask(ctx, id, map[string]any{
		"status":     domain.TaskStatusDone,
		"last_error": "",
	})
}

func (r *Repository) RetryTask(ctx context.Context, id uuid.UUID, nextAttempt time.Time, lastErr string) error {
	return r.updateTask(ctx, id, map[string]any{
		"status":          domain.TaskStatusPending,
		"next_attempt_at": nextAttempt,
		"last_error":      lastErr,
	})
}

func (r *Repository) BuryTask(ctx context.Context, id uuid.UUID, lastErr string) error {
	return r.updateTask(ctx, id, map[string]any{
		"status":     domain.TaskStatusDead,
		"last_error": lastErr,
	})
}

func (r *Repository) RequeueTask(ctx context.Context, id uuid.UUID) error {
	return r.updateTask(ctx, id, map[string]any{
		"status":          domain.TaskStatusPending,
		"attempts":        0,
		"next_attempt_at": time.Now(),
	})
}

func (r *Repository) updateTask(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	fields["updated_at"] = time.Now()
	statement := r.db.QueryBuilder.
		Update("outbox_tasks").
		SetMap(fields).
		Where(sq.Eq{"id": id})

	sql, args, err := statement.ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDataNotFound
	}
	return nil
}

func (r *Repository) ListTasks(ctx context.Context, status domain.TaskStatus, limit uint64) ([]*domain.Task, error) {
	statement := r.db.QueryBuilder.
		Select(taskColumns...).
		From("outbox_tasks").
		OrderBy("created_at")
	if status != "" {
		statement = statement.Where(sq.Eq{"status": status})
	}
	if limit > 0 {
		statement = statement.Limit(limit)
	}

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
