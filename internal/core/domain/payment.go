package domain

import (
	"time"

	"github.com/govalues/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSuccess   PaymentStatus = "SUCCESS"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// IsFinal reports whether a later webhook may no longer change the payment.
func (s PaymentStatus) IsFinal() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

type PaymentMethod string

const (
	PaymentMethodUnknown      PaymentMethod = ""
	PaymentMethodGateway      PaymentMethod = "GATEWAY"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodMobileMoney  PaymentMethod = "MOBILE_MONEY"
)

type Payment struct {
	ID               uint64
	OrderID          uint64
	Reference        string
	GatewayReference string
	Amount           decimal.Decimal
	Currency         string
	Status           PaymentStatus
	Method           PaymentMethod
	FailureReason    string
	WebhookData      []byte
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	c := *p
	if p.WebhookData != nil {
		c.WebhookData = append([]byte(nil), p.WebhookData...)
	}
	return &c
}

// PaidAmount sums the successful payments.
func PaidAmount(payments []*Payment) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range payments {
		if p.Status != PaymentStatusSuccess {
			continue
		}
		next, err := sum.Add(p.Amount)
		if err != nil {
			return decimal.Zero, err
		}
		sum = next
	}
	return sum, nil
}

// CoversTotal reports whether the successful payments add up to the order total.
func CoversTotal(order *Order, payments []*Payment) (bool, error) {
	paid, err := PaidAmount(payments)
	if err != nil {
		return false, err
	}
	return paid.Cmp(order.TotalAmount) >= 0, nil
}

type Payer struct {
	FirstName string
	LastName  string
	Email     string
}

type CheckoutRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Payer       Payer
	Reference   string
	CallbackURL string
	ReturnURL   string
}

type CheckoutHandle struct {
	PaymentReference string
	CheckoutURL      string
	GatewayReference string
}
