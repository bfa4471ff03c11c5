package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/MikeRez0/orderpay/internal/core/domain"
)

func (r *Repository) GetProduct(ctx context.Context, productID uint64) (*domain.Product, error) {
	return r.readProduct(ctx, r.db, productID)
}

func (r *Repository) readProduct(ctx context.Context, q querier, productID uint64) (*domain.Product, error) {
	statement := r.db.QueryBuilder.
		Select("id", "name", "serial_number", "price", "status", "stock_quantity").
		From("products").
		Where(sq.Eq{"id": productID})

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	p := domain.Product{}
	err = q.QueryRow(ctx, sql, args...).Scan(
		&p.ID,
		&p.Name,
		&p.SerialNumber,
		&p.Price,
		&p.Status,
		&p.StockQuantity,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// CreateProduct is used by seeding and tests.
func (r *Repository) CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	statement := r.db.QueryBuilder.
		Insert("products").
		Columns("name", "serial_number", "price", "status", "stock_quantity").
		Values(p.Name, p.SerialNumber, p.Price, p.Status, p.StockQuantity).
		Suffix("RETURNING id")

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	created := *p
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&created.ID); err != nil {
		return nil, mapError(err)
	}
	return &created, nil
}

func (r *Repository) GetCustomer(ctx context.Context, customerID uint64) (*domain.Customer, error) {
	statement := r.db.QueryBuilder.
		Select("id", "first_name", "last_name", "email").
		From("customers").
		Where(sq.Eq{"id": customerID})

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	c := domain.Customer{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

func (r *Repository) CreateCustomer(ctx context.Context, c *domain.Customer) (*domain.Customer, error) {
	statement := r.db.QueryBuilder.
		Insert("customers").
		Columns("first_name", "last_name", "email").
		Values(c.FirstName, c.LastName, c.Email).
		Suffix("RETURNING id")

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	created := *c
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&created.ID); err != nil {
		return nil, mapError(err)
	}
	return &created, nil
}
