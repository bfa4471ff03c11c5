package repository

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"github.com/jackc/pgx/v5"
)

var orderColumns = []string{
	"id", "order_number", "customer_id", "subtotal", "vat_amount", "total_amount",
	"status", "shipping_address", "notes", "created_at", "updated_at",
}

var itemColumns = []string{
	"id", "order_id", "product_id", "product_name", "serial_number",
	"quantity", "unit_price", "total_price",
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	o := domain.Order{}
	err := row.Scan(
		&o.ID,
		&o.Number,
		&o.CustomerID,
		&o.Subtotal,
		&o.VATAmount,
		&o.TotalAmount,
		&o.Status,
		&o.ShippingAddress,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	created := order.Clone()
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		orderSt := r.db.QueryBuilder.
			Insert("orders").
			Columns(orderColumns[1:]...).
			Values(order.Number, order.CustomerID, order.Subtotal, order.VATAmount, order.TotalAmount,
				order.Status, order.ShippingAddress, order.Notes, order.CreatedAt, order.UpdatedAt).
			Suffix("RETURNING id")

		sql, args, err := orderSt.ToSql()
		if err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, sql, args...).Scan(&created.ID); err != nil {
			return err
		}

		if len(created.Items) == 0 {
			return nil
		}
		itemSt := r.db.QueryBuilder.
			Insert("order_items").
			Columns(itemColumns[1:]...).
			Suffix("RETURNING id")
		for _, item := range created.Items {
			item.OrderID = created.ID
			itemSt = itemSt.Values(item.OrderID, item.ProductID, item.ProductName, item.SerialNumber,
				item.Quantity, item.UnitPrice, item.TotalPrice)
		}

		sql, args, err = itemSt.ToSql()
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for i := 0; rows.Next(); i++ {
			if err := rows.Scan(&created.Items[i].ID); err != nil {
				return err
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, mapError(err)
	}

	return created, nil
}

func (r *Repository) ReadOrder(ctx context.Context, orderID uint64) (*domain.Order, error) {
	return r.readOrder(ctx, r.db, sq.Eq{"id": orderID}, false)
}

func (r *Repository) ReadOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.readOrder(ctx, r.db, sq.Eq{"order_number": number}, false)
}

// readOrder loads one order with its items. With lock set the order row is
// held FOR UPDATE until the surrounding transaction ends.
func (r *Repository) readOrder(ctx context.Context, q querier, where sq.Sqlizer, lock bool) (*domain.Order, error) {
	statement := r.db.QueryBuilder.
		Select(orderColumns...).
		From("orders").
		Where(where)
	if lock {
		statement = statement.Suffix("FOR UPDATE")
	}

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	order, err := scanOrder(q.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err)
	}

	items, err := r.listItems(ctx, q, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	return order, nil
}

func (r *Repository) listItems(ctx context.Context, q querier, orderIDs ...uint64) (map[uint64][]*domain.OrderItem, error) {
	statement := r.db.QueryBuilder.
		Select(itemColumns...).
		From("order_items").
		Where(sq.Eq{"order_id": orderIDs}).
		OrderBy("id")

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[uint64][]*domain.OrderItem)
	for rows.Next() {
		item := domain.OrderItem{}
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.SerialNumber,
			&item.Quantity,
			&item.UnitPrice,
			&item.TotalPrice,
		)
		if err != nil {
			return nil, err
		}
		items[item.OrderID] = append(items[item.OrderID], &item)
	}
	return items, rows.Err()
}

func (r *Repository) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	statement := r.db.QueryBuilder.
		Select(orderColumns...).
		From("orders").
		OrderBy("id DESC")
	if filter.CustomerID != 0 {
		statement = statement.Where(sq.Eq{"customer_id": filter.CustomerID})
	}
	if filter.Status != "" {
		statement = statement.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Limit > 0 {
		statement = statement.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		statement = statement.Offset(filter.Offset)
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

	list := make([]*domain.Order, 0)
	ids := make([]uint64, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return list, nil
	}

	items, err := r.listItems(ctx, r.db, ids...)
	if err != nil {
		return nil, err
	}
	for _, order := range list {
		order.Items = items[order.ID]
	}
	return list, nil
}

func (r *Repository) UpdateOrder(ctx context.Context, orderID uint64, updateFn port.UpdateOrderFn) (*domain.Order, error) {
	var order *domain.Order
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		order, err = r.readOrder(ctx, tx, sq.Eq{"id": orderID}, true)
		if err != nil {
			return err
		}
		if err := updateFn(order); err != nil {
			return err
		}
		return r.writeOrderStatus(ctx, tx, order)
	})
	if errors.Is(err, domain.ErrNoUpdatedData) {
		current, readErr := r.ReadOrder(ctx, orderID)
		if readErr != nil {
			return nil, readErr
		}
		return current, err
	}
	if err != nil {
		return nil, mapError(err)
	}
	return order, nil
}

func (r *Repository) writeOrderStatus(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	statement := r.db.QueryBuilder.
		Update("orders").
		Set("status", order.Status).
		Set("updated_at", order.UpdatedAt).
		Where(sq.Eq{"id": order.ID})

	sql, args, err := statement.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, sql, args...)
	return err
}
