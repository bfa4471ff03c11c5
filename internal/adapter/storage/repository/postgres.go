// Package repository is the PostgreSQL implementation of the storage ports.
// Every state change of an order or its payments runs in one transaction
// holding the order row lock, taken before any payment row lock.
package repository

import (
	"context"
	"errors"

	"github.com/MikeRez0/orderpay/internal/adapter/storage"
	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Repository struct {
	db *storage.DB
}

func NewRepository(db *storage.DB) (*Repository, error) {
	if db == nil {
		return nil, errors.New("repository: nil db")
	}
	return &Repository{db: db}, nil
}

var (
	_ port.Repository        = (*Repository)(nil)
	_ port.Catalog           = (*Repository)(nil)
	_ port.CustomerDirectory = (*Repository)(nil)
	_ port.TaskQueue         = (*Repository)(nil)
)

// mapError translates driver errors into domain errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrDataNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return domain.ErrConflictingData
	}
	return err
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by the pool and by a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}
