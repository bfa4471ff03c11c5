package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reconciler applies verified gateway webhooks to payments and orders.
// Each delivery becomes at most one state transition; replays of a delivery
// that was already applied are acknowledged without side effects.
type Reconciler struct {
	repo     port.Repository
	queue    port.TaskQueue
	signaler port.TaskSignaler
	logger   *zap.Logger
}

func NewReconciler(repo port.Repository, queue port.TaskQueue, signaler port.TaskSignaler,
	logger *zap.Logger) (*Reconciler, error) {
	if repo == nil || queue == nil {
		return nil, errors.New("reconciler: missing dependency")
	}
	return &Reconciler{
		repo:     repo,
		queue:    queue,
		signaler: signaler,
		logger:   logger,
	}, nil
}

type TaskPayload struct {
	OrderID          uint64 `json:"order_id,omitempty"`
	OrderNumber      string `json:"order_number,omitempty"`
	CustomerID       uint64 `json:"customer_id,omitempty"`
	PaymentReference string `json:"payment_reference,omitempty"`
	TransferRef      string `json:"transfer_reference,omitempty"`
	Amount           string `json:"amount,omitempty"`
	TotalAmount      string `json:"total_amount,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// Reconcile returns an error only for malformed payloads and internal
// failures. Unknown references and ignored events are outcomes, not errors.
func (r *Reconciler) Reconcile(ctx context.Context, channel domain.WebhookChannel,
	payload []byte) (domain.Outcome, error) {
	event, err := ParseEvent(channel, payload)
	if err != nil {
		r.logger.Error("Parse webhook", zap.String("channel", string(channel)), zap.Error(err))
		return "", err
	}

	log := r.logger.With(
		zap.String("channel", string(channel)),
		zap.String("event", event.Name),
		zap.String("kind", string(event.Kind)),
		zap.String("reference", event.Reference))
	log.Info("Webhook received", zap.String("status", event.Status))

	var (
		outcome  domain.Outcome
		detail   string
		enqueued bool
	)
	switch {
	case event.Kind == domain.EventUnrecognized:
		outcome, detail = domain.OutcomeIgnored, "unrecognized event"
	case event.Reference == "":
		outcome, detail = domain.OutcomeIgnored, "missing reference"
		log.Warn("Webhook without reference")
	case event.Kind == domain.EventPaymentSucceeded:
		outcome, detail, enqueued, err = r.applySuccess(ctx, event)
	case event.Kind == domain.EventPaymentFailed:
		outcome, detail, enqueued, err = r.applyFailure(ctx, event)
	default:
		outcome, detail, enqueued, err = r.applyTransfer(ctx, event)
	}

	if errors.Is(err, domain.ErrDataNotFound) {
		outcome, detail, err = domain.OutcomeUnknownReference, domain.ErrUnknownReference.Error(), nil
		log.Warn("Webhook for unknown reference, recorded for investigation")
	}
	if err != nil {
		log.Error("Apply webhook", zap.Error(err))
		return "", err
	}

	if enqueued && r.signaler != nil {
		r.signaler.Signal()
	}

	r.record(ctx, event, outcome, detail)
	log.Info("Webhook reconciled", zap.String("outcome", string(outcome)), zap.String("detail", detail))
	return outcome, nil
}

func (r *Reconciler) applySuccess(ctx context.Context, event *domain.GatewayEvent) (
	outcome domain.Outcome, detail string, enqueued bool, err error) {
	_, err = r.repo.UpdatePaymentByReference(ctx, event.Reference,
		func(ctx context.Context, st *port.PaymentState) error {
			outcome, detail = "", ""
			p, o := st.Payment, st.Order

			switch {
			case p.Status == domain.PaymentStatusSuccess:
				outcome = domain.OutcomeDuplicate
				return domain.ErrNoUpdatedData
			case p.Status.IsFinal():
				outcome, detail = domain.OutcomeStale, "payment already "+string(p.Status)
				return domain.ErrNoUpdatedData
			}

			now := time.Now()
			p.Status = domain.PaymentStatusSuccess
			p.Method = event.Method
			p.WebhookData = event.Raw
			p.FailureReason = ""
			if event.GatewayReference != "" {
				p.GatewayReference = event.GatewayReference
			}
			p.UpdatedAt = now
			outcome = domain.OutcomeApplied

			coveredBefore, err := domain.CoversTotal(o, otherPayments(st.Payments, p.Reference))
			if err != nil {
				return err
			}
			covered, err := domain.CoversTotal(o, st.Payments)
			if err != nil {
				return err
			}

			switch {
			case coveredBefore:
				outcome, detail = domain.OutcomeOverpaid, "order "+o.Number+" was already paid in full"
				return r.review(st, o, p, detail)
			case !o.Status.CanTransitionTo(domain.OrderStatusConfirmed):
				outcome, detail = domain.OutcomeUnconfirmable, "order is "+string(o.Status)
				return r.review(st, o, p, detail)
			case !covered:
				return nil
			}

			err = confirm(ctx, st, now)
			if err != nil {
				if !errors.Is(err, domain.ErrInsufficientStock) {
					return err
				}
				outcome, detail = domain.OutcomeConfirmationBlocked, err.Error()
				task, err := domain.NewTask(domain.TaskStockShortfall, p.Reference, o.ID,
					newTaskPayload(o, p, detail))
				if err != nil {
					return err
				}
				st.Tasks = append(st.Tasks, task)
			}
			return nil
		})
	if errors.Is(err, domain.ErrNoUpdatedData) {
		return outcome, detail, false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return outcome, detail, true, nil
}

func (r *Reconciler) applyFailure(ctx context.Context, event *domain.GatewayEvent) (
	outcome domain.Outcome, detail string, enqueued bool, err error) {
	_, err = r.repo.UpdatePaymentByReference(ctx, event.Reference,
		func(_ context.Context, st *port.PaymentState) error {
			outcome, detail = "", ""
			p, o := st.Payment, st.Order

			switch p.Status {
			case domain.PaymentStatusFailed, domain.PaymentStatusCancelled:
				outcome = domain.OutcomeDuplicate
				return domain.ErrNoUpdatedData
			case domain.PaymentStatusSuccess:
				outcome, detail = domain.OutcomeStale, "payment already SUCCESS"
				return domain.ErrNoUpdatedData
			}

			now := time.Now()
			p.Status = domain.PaymentStatusFailed
			if event.Cancelled {
				p.Status = domain.PaymentStatusCancelled
			}
			p.FailureReason = event.Message
			p.WebhookData = event.Raw
			if event.GatewayReference != "" {
				p.GatewayReference = event.GatewayReference
			}
			p.UpdatedAt = now
			outcome, detail = domain.OutcomeApplied, event.Message

			if o.Status.CanTransitionTo(domain.OrderStatusPaymentFailed) {
				o.Status = domain.OrderStatusPaymentFailed
				o.UpdatedAt = now
			}

			task, err := domain.NewTask(domain.TaskPaymentFailedNotice, p.Reference, o.ID,
				newTaskPayload(o, p, event.Message))
			if err != nil {
				return err
			}
			st.Tasks = append(st.Tasks, task)
			return nil
		})
	if errors.Is(err, domain.ErrNoUpdatedData) {
		return outcome, detail, false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return outcome, detail, true, nil
}

// applyTransfer has no payout aggregate to move; the follow-on task keyed by
// the transfer reference is the state, and its uniqueness is the dedupe.
func (r *Reconciler) applyTransfer(ctx context.Context, event *domain.GatewayEvent) (
	domain.Outcome, string, bool, error) {
	kind := domain.TaskTransferSucceeded
	if event.Kind == domain.EventTransferFailed {
		kind = domain.TaskTransferFailed
	}
	task, err := domain.NewTask(kind, event.Reference, 0, TaskPayload{
		TransferRef: event.Reference,
		Reason:      event.Message,
	})
	if err != nil {
		return "", "", false, err
	}
	created, err := r.queue.EnqueueTask(ctx, task)
	if err != nil {
		return "", "", false, fmt.Errorf("enqueue %s: %w", kind, err)
	}
	if !created {
		return domain.OutcomeDuplicate, "", false, nil
	}
	return domain.OutcomeApplied, event.Message, true, nil
}

// review queues a payment that took money without confirming anything for a
// human to refund or reconcile.
func (r *Reconciler) review(st *port.PaymentState, o *domain.Order, p *domain.Payment, reason string) error {
	task, err := domain.NewTask(domain.TaskPaymentReview, p.Reference, o.ID, newTaskPayload(o, p, reason))
	if err != nil {
		return err
	}
	st.Tasks = append(st.Tasks, task)
	return nil
}

func otherPayments(payments []*domain.Payment, reference string) []*domain.Payment {
	rest := make([]*domain.Payment, 0, len(payments))
	for _, p := range payments {
		if p.Reference != reference {
			rest = append(rest, p)
		}
	}
	return rest
}

// confirm reserves stock for the locked order and confirms it, queueing the
// confirmation and invoice tasks under the payment's reference. Stock leaves
// the shelf only here.
func confirm(ctx context.Context, st *port.PaymentState, now time.Time) error {
	o, p := st.Order, st.Payment
	if err := st.Stock.ReserveStock(ctx, o.Items); err != nil {
		return err
	}

	o.Status = domain.OrderStatusConfirmed
	o.UpdatedAt = now
	for _, kind := range []domain.TaskKind{domain.TaskOrderConfirmation, domain.TaskInvoiceGeneration} {
		task, err := domain.NewTask(kind, p.Reference, o.ID, newTaskPayload(o, p, ""))
		if err != nil {
			return err
		}
		st.Tasks = append(st.Tasks, task)
	}
	return nil
}

func newTaskPayload(o *domain.Order, p *domain.Payment, reason string) TaskPayload {
	return TaskPayload{
		OrderID:          o.ID,
		OrderNumber:      o.Number,
		CustomerID:       o.CustomerID,
		PaymentReference: p.Reference,
		Amount:           p.Amount.String(),
		TotalAmount:      o.TotalAmount.String(),
		Reason:           reason,
	}
}

func (r *Reconciler) record(ctx context.Context, event *domain.GatewayEvent, outcome domain.Outcome, detail string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := r.repo.RecordWebhookEvent(ctx, &domain.WebhookEvent{
		ID:         uuid.New(),
		Channel:    event.Channel,
		Event:      event.Name,
		Status:     event.Status,
		Reference:  event.Reference,
		Outcome:    outcome,
		Detail:     detail,
		Payload:    event.Raw,
		ReceivedAt: time.Now(),
	})
	if err != nil {
		r.logger.Error("Record webhook event",
			zap.String("reference", event.Reference),
			zap.String("outcome", string(outcome)),
			zap.Error(err))
	}
}
