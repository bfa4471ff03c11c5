package domain

import (
	"time"

	"github.com/google/uuid"
)

type WebhookChannel string

const (
	ChannelPayment  WebhookChannel = "payment"
	ChannelTransfer WebhookChannel = "transfer"
)

type EventKind string

const (
	EventPaymentSucceeded  EventKind = "PaymentSucceeded"
	EventPaymentFailed     EventKind = "PaymentFailed"
	EventTransferSucceeded EventKind = "TransferSucceeded"
	EventTransferFailed    EventKind = "TransferFailed"
	EventUnrecognized      EventKind = "Unrecognized"
)

type Outcome string

const (
	OutcomeApplied             Outcome = "applied"
	OutcomeDuplicate           Outcome = "duplicate"
	OutcomeStale               Outcome = "stale"
	OutcomeUnknownReference    Outcome = "unknown_reference"
	OutcomeIgnored             Outcome = "ignored"
	OutcomeConfirmationBlocked Outcome = "confirmation_blocked"
	// money arrived for an order that cannot take it
	OutcomeUnconfirmable Outcome = "unconfirmable"
	OutcomeOverpaid      Outcome = "overpaid"
)

// GatewayEvent is the part of a webhook body the reconciler acts on.
type GatewayEvent struct {
	Channel          WebhookChannel
	Kind             EventKind
	Name             string
	Status           string
	Reference        string
	GatewayReference string
	Method           PaymentMethod
	Message          string
	Cancelled        bool
	Raw              []byte
}

// WebhookEvent is the audit record of one authenticated delivery.
type WebhookEvent struct {
	ID         uuid.UUID
	Channel    WebhookChannel
	Event      string
	Status     string
	Reference  string
	Outcome    Outcome
	Detail     string
	Payload    []byte
	ReceivedAt time.Time
}
