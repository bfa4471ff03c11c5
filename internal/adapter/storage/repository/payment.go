package repository

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"github.com/jackc/pgx/v5"
)

var paymentColumns = []string{
	"id", "order_id", "payment_reference", "gateway_reference", "amount", "currency",
	"status", "payment_method", "failure_reason", "webhook_data", "created_at", "updated_at",
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	p := domain.Payment{}
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.Reference,
		&p.GatewayReference,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.Method,
		&p.FailureReason,
		&p.WebhookData,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) CreatePayment(ctx context.Context, orderID uint64,
	createFn port.CreatePaymentFn) (*domain.Payment, error) {
	var payment *domain.Payment
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		order, err := r.readOrder(ctx, tx, sq.Eq{"id": orderID}, true)
		if err != nil {
			return err
		}
		payments, err := r.listPayments(ctx, tx, orderID, false)
		if err != nil {
			return err
		}

		payment, err = createFn(ctx, &port.PaymentState{Order: order, Payments: payments})
		if err != nil {
			return err
		}
		payment.OrderID = orderID

		statement := r.db.QueryBuilder.
			Insert("payments").
			Columns(paymentColumns[1:]...).
			Values(payment.OrderID, payment.Reference, payment.GatewayReference, payment.Amount,
				payment.Currency, payment.Status, payment.Method, payment.FailureReason,
				payment.WebhookData, payment.CreatedAt, payment.UpdatedAt).
			Suffix("RETURNING id")

		sql, args, err := statement.ToSql()
		if err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, sql, args...).Scan(&payment.ID); err != nil {
			return err
		}

		return r.writeOrderStatus(ctx, tx, order)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return payment, nil
}

func (r *Repository) ReadPaymentByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	statement := r.db.QueryBuilder.
		Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"payment_reference": reference})

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	payment, err := scanPayment(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return payment, nil
}

func (r *Repository) ListPaymentsByOrder(ctx context.Context, orderID uint64) ([]*domain.Payment, error) {
	return r.listPayments(ctx, r.db, orderID, false)
}

func (r *Repository) listPayments(ctx context.Context, q querier, orderID uint64, lock bool) ([]*domain.Payment, error) {
	statement := r.db.QueryBuilder.
		Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("id")
	if lock {
		statement = statement.Suffix("FOR UPDATE")
	}

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// UpdatePaymentByReference locks the owning order, then its payments, and
// hands both to updateFn. Payment, order status and the tasks queued by the
// callback are committed together.
func (r *Repository) UpdatePaymentByReference(ctx context.Context, reference string,
	updateFn port.UpdatePaymentFn) (*domain.Payment, error) {
	current, err := r.ReadPaymentByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	var payment *domain.Payment
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		order, err := r.readOrder(ctx, tx, sq.Eq{"id": current.OrderID}, true)
		if err != nil {
			return err
		}
		payments, err := r.listPayments(ctx, tx, current.OrderID, true)
		if err != nil {
			return err
		}
		for _, p := range payments {
			if p.Reference == reference {
				payment = p
			}
		}
		if payment == nil {
			return domain.ErrDataNotFound
		}

		state := &port.PaymentState{
			Order:    order,
			Payment:  payment,
			Payments: payments,
			Stock:    &stockTx{repo: r, tx: tx},
		}
		if err := updateFn(ctx, state); err != nil {
			return err
		}

		if err := r.writePayment(ctx, tx, payment); err != nil {
			return err
		}
		if err := r.writeOrderStatus(ctx, tx, order); err != nil {
			return err
		}
		for _, task := range state.Tasks {
			if _, err := r.insertTask(ctx, tx, task); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, domain.ErrNoUpdatedData) {
		snapshot, readErr := r.ReadPaymentByReference(ctx, reference)
		if readErr != nil {
			return nil, readErr
		}
		return snapshot, err
	}
	if err != nil {
		return nil, mapError(err)
	}
	return payment, nil
}

func (r *Repository) writePayment(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	statement := r.db.QueryBuilder.
		Update("payments").
		Set("gateway_reference", p.GatewayReference).
		Set("status", p.Status).
		Set("payment_method", p.Method).
		Set("failure_reason", p.FailureReason).
		Set("webhook_data", p.WebhookData).
		Set("updated_at", p.UpdatedAt).
		Where(sq.Eq{"id": p.ID})

	sql, args, err := statement.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, sql, args...)
	return err
}

// stockTx reserves stock in a savepoint of the payment transaction, so a
// shortfall undoes only the reservation and the payment update still commits.
type stockTx struct {
	repo *Repository
	tx   pgx.Tx
}

func (s *stockTx) ReserveStock(ctx context.Context, items []*domain.OrderItem) error {
	need := make(map[uint64]int)
	order := make([]uint64, 0, len(items))
	for _, item := range items {
		if _, ok := need[item.ProductID]; !ok {
			order = append(order, item.ProductID)
		}
		need[item.ProductID] += item.Quantity
	}

	return pgx.BeginFunc(ctx, s.tx, func(sp pgx.Tx) error {
		for _, productID := range order {
			if err := s.decrement(ctx, sp, productID, need[productID]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *stockTx) decrement(ctx context.Context, tx pgx.Tx, productID uint64, qty int) error {
	statement := s.repo.db.QueryBuilder.
		Update("products").
		Set("stock_quantity", sq.Expr("stock_quantity - ?", qty)).
		Set("status", sq.Expr("CASE WHEN stock_quantity - ? <= 0 THEN ? ELSE status END",
			qty, domain.ProductStatusOutOfStock)).
		Where(sq.Eq{"id": productID, "status": domain.ProductStatusActive}).
		Where(sq.GtOrEq{"stock_quantity": qty})

	sql, args, err := statement.ToSql()
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	shortfall := &domain.InsufficientStockError{ProductID: productID, Requested: qty}
	product, err := s.repo.readProduct(ctx, tx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrDataNotFound) {
			return shortfall
		}
		return err
	}
	if product.Status == domain.ProductStatusActive {
		shortfall.Available = product.StockQuantity
	}
	return shortfall
}
