package memory

import (
	"context"
	"sort"
	"time"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/google/uuid"
)

func (s *Store) enqueueLocked(task *domain.Task) bool {
	if _, ok := s.taskKeys[task.IdempotencyKey]; ok {
		return false
	}
	c := task.Clone()
	s.tasks[c.ID] = c
	s.taskKeys[c.IdempotencyKey] = c.ID
	return true
}

func (s *Store) EnqueueTask(_ context.Context, task *domain.Task) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enqueueLocked(task), nil
}

func (s *Store) ClaimTasks(_ context.Context, limit int, lease time.Duration) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	due := make([]*domain.Task, 0)
	for _, t := range s.tasks {
		if (t.Status == domain.TaskStatusPending || t.Status == domain.TaskStatusProcessing) &&
			!t.NextAttemptAt.After(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(due[j].NextAttemptAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*domain.Task, 0, len(due))
	for _, t := range due {
		t.Status = domain.TaskStatusProcessing
		t.Attempts++
		t.NextAttemptAt = now.Add(lease)
		t.UpdatedAt = now
		claimed = append(claimed, t.Clone())
	}
	return claimed, nil
}

func (s *Store) CompleteTask(_ context.Context, id uuid.UUID) error {
	return s.updateTask(id, func(t *domain.Task) {
		t.Status = domain.TaskStatusDone
		t.LastError = ""
	})
}

func (s *Store) RetryTask(_ context.Context, id uuid.UUID, nextAttempt time.Time, lastErr string) error {
	return s.updateTask(id, func(t *domain.Task) {
		t.Status = domain.TaskStatusPending
		t.NextAttemptAt = nextAttempt
		t.LastError = lastErr
	})
}

func (s *Store) BuryTask(_ context.Context, id uuid.UUID, lastErr string) error {
	return s.updateTask(id, func(t *domain.Task) {
		t.Status = domain.TaskStatusDead
		t.LastError = lastErr
	})
}

func (s *Store) RequeueTask(_ context.Context, id uuid.UUID) error {
	return s.updateTask(id, func(t *domain.Task) {
		t.Status = domain.TaskStatusPending
		t.Attempts = 0
		t.NextAttemptAt = s.now()
	})
}

func (s *Store) ListTasks(_ context.Context, status domain.TaskStatus, limit uint64) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*domain.Task, 0)
	for _, t := range s.tasks {
		if status != "" && t.Status != status {
			continue
		}
		list = append(list, t.Clone())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	if limit > 0 && uint64(len(list)) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *Store) updateTask(id uuid.UUID, fn func(t *domain.Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return domain.ErrDataNotFound
	}
	fn(t)
	t.UpdatedAt = s.now()
	return nil
}
