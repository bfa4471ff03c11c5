package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"github.com/MikeRez0/orderpay/internal/core/reference"
	"github.com/govalues/decimal"
	"go.uber.org/zap"
)

// InitializePayment opens a PENDING payment for the outstanding amount of the
// order and asks the gateway for a checkout handle.
func (s *Service) InitializePayment(ctx context.Context, orderID uint64) (*domain.CheckoutHandle, error) {
	order, err := s.repo.ReadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.GetCustomer(ctx, order.CustomerID)
	if err != nil {
		s.logger.Error("Get customer", zap.Uint64("customer", order.CustomerID), zap.Error(err))
		return nil, domain.ErrInternal
	}

	payment, err := reference.Insert(reference.MaxAttempts,
		func() string { return s.refs.PaymentReference(order.Number) },
		func(ref string) (*domain.Payment, error) {
			return s.repo.CreatePayment(ctx, orderID, s.openPayment(ref))
		})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyPaid), errors.Is(err, domain.ErrInvalidTransition),
			errors.Is(err, domain.ErrPaymentInProgress), errors.Is(err, domain.ErrDataNotFound):
			return nil, err
		}
		s.logger.Error("Create payment", zap.String("order", order.Number), zap.Error(err))
		if errors.Is(err, domain.ErrDuplicateReference) {
			return nil, err
		}
		return nil, domain.ErrInternal
	}

	handle, err := s.gateway.Initialize(ctx, &domain.CheckoutRequest{
		Amount:   payment.Amount,
		Currency: payment.Currency,
		Payer: domain.Payer{
			FirstName: customer.FirstName,
			LastName:  customer.LastName,
			Email:     customer.Email,
		},
		Reference:   payment.Reference,
		CallbackURL: s.checkout.CallbackURL,
		ReturnURL:   s.checkout.ReturnURL,
	})
	if err != nil {
		s.logger.Error("Initialize payment at gateway",
			zap.String("order", order.Number),
			zap.String("reference", payment.Reference),
			zap.Error(err))
		s.failInitialization(ctx, payment.Reference, err)

		var gwErr *domain.GatewayError
		if !errors.As(err, &gwErr) {
			gwErr = &domain.GatewayError{Reference: payment.Reference, Err: err}
		}
		return nil, gwErr
	}

	handle.PaymentReference = payment.Reference
	if handle.GatewayReference != "" {
		_, err = s.repo.UpdatePaymentByReference(ctx, payment.Reference,
			func(_ context.Context, st *port.PaymentState) error {
				if st.Payment.GatewayReference == handle.GatewayReference {
					return domain.ErrNoUpdatedData
				}
				st.Payment.GatewayReference = handle.GatewayReference
				st.Payment.UpdatedAt = time.Now()
				return nil
			})
		if err != nil && !errors.Is(err, domain.ErrNoUpdatedData) {
			// the checkout is live; correlation still works through our reference
			s.logger.Warn("Store gateway reference", zap.String("reference", payment.Reference), zap.Error(err))
		}
	}

	s.logger.Info("Payment initialized",
		zap.String("order", order.Number),
		zap.String("reference", payment.Reference),
		zap.Stringer("amount", payment.Amount))

	return handle, nil
}

func (s *Service) openPayment(ref string) port.CreatePaymentFn {
	return func(_ context.Context, st *port.PaymentState) (*domain.Payment, error) {
		o := st.Order
		covered, err := domain.CoversTotal(o, st.Payments)
		if err != nil {
			return nil, err
		}
		if covered || o.Status.IsSettled() {
			return nil, domain.ErrAlreadyPaid
		}
		if p := s.openCheckout(st.Payments, time.Now()); p != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrPaymentInProgress, p.Reference)
		}
		if o.Status != domain.OrderStatusPaymentPending {
			if !o.Status.CanTransitionTo(domain.OrderStatusPaymentPending) {
				return nil, domain.ErrInvalidTransition
			}
			o.Status = domain.OrderStatusPaymentPending
			o.UpdatedAt = time.Now()
		}

		outstanding, err := Outstanding(o, st.Payments)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		return &domain.Payment{
			OrderID:   o.ID,
			Reference: ref,
			Amount:    outstanding,
			Currency:  s.checkout.Currency,
			Status:    domain.PaymentStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	}
}

// openCheckout returns a PENDING payment that still blocks a new checkout.
// An older one is treated as abandoned; if it settles late anyway the
// reconciler reports the overpayment.
func (s *Service) openCheckout(payments []*domain.Payment, now time.Time) *domain.Payment {
	for _, p := range payments {
		if p.Status != domain.PaymentStatusPending {
			continue
		}
		if s.checkout.PendingTTL <= 0 || now.Sub(p.CreatedAt) < s.checkout.PendingTTL {
			return p
		}
	}
	return nil
}

// failInitialization records a gateway failure on the payment. It runs even
// if the caller's context is already done.
func (s *Service) failInitialization(ctx context.Context, ref string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	_, err := s.repo.UpdatePaymentByReference(ctx, ref, func(_ context.Context, st *port.PaymentState) error {
		if st.Payment.Status.IsFinal() {
			return domain.ErrNoUpdatedData
		}
		now := time.Now()
		st.Payment.Status = domain.PaymentStatusFailed
		st.Payment.FailureReason = fmt.Sprintf("payment initialization failed: %v", cause)
		st.Payment.UpdatedAt = now
		if st.Order.Status == domain.OrderStatusPaymentPending {
			st.Order.Status = domain.OrderStatusPaymentFailed
			st.Order.UpdatedAt = now
		}
		return nil
	})
	if err != nil && !errors.Is(err, domain.ErrNoUpdatedData) {
		s.logger.Error("Mark payment failed", zap.String("reference", ref), zap.Error(err))
	}
}

func (s *Service) ListPayments(ctx context.Context, orderID uint64) ([]*domain.Payment, error) {
	if _, err := s.repo.ReadOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListPaymentsByOrder(ctx, orderID)
}

func (s *Service) GetPaymentByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	return s.repo.ReadPaymentByReference(ctx, reference)
}

func (s *Service) IsFullyPaid(ctx context.Context, orderID uint64) (bool, error) {
	order, err := s.repo.ReadOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	payments, err := s.repo.ListPaymentsByOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	return domain.CoversTotal(order, payments)
}

// Outstanding is what is still owed on the order.
func Outstanding(order *domain.Order, payments []*domain.Payment) (decimal.Decimal, error) {
	paid, err := domain.PaidAmount(payments)
	if err != nil {
		return decimal.Zero, err
	}
	rest, err := order.TotalAmount.Sub(paid)
	if err != nil {
		return decimal.Zero, err
	}
	if rest.IsNeg() {
		return decimal.Zero, nil
	}
	return rest, nil
}
