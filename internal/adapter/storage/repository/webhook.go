package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/MikeRez0/orderpay/internal/core/domain"
)

func (r *Repository) RecordWebhookEvent(ctx context.Context, event *domain.WebhookEvent) error {
	statement := r.db.QueryBuilder.
		Insert("webhook_events").
		Columns("id", "channel", "event", "status", "reference", "outcome", "detail", "payload", "received_at").
		Values(event.ID, event.Channel, event.Event, event.Status, event.Reference, event.Outcome,
			event.Detail, event.Payload, event.ReceivedAt)

	sql, args, err := statement.ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, sql, args...)
	return mapError(err)
}

func (r *Repository) ListWebhookEvents(ctx context.Context, outcome domain.Outcome,
	limit uint64) ([]*domain.WebhookEvent, error) {
	statement := r.db.QueryBuilder.
		Select("id", "channel", "event", "status", "reference", "outcome", "detail", "payload", "received_at").
		From("webhook_events").
		OrderBy("received_at DESC")
	if outcome != "" {
		statement = statement.Where(sq.Eq{"outcome": outcome})
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

	list := make([]*domain.WebhookEvent, 0)
	for rows.Next() {
		e := domain.WebhookEvent{}
		err := rows.Scan(
			&e.ID,
			&e.Channel,
			&e.Event,
			&e.Status,
			&e.Reference,
			&e.Outcome,
			&e.Detail,
			&e.Payload,
			&e.ReceivedAt,
		)
		if err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
