package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MikeRez0/orderpay/internal/core/domain"
)

type webhookBody struct {
	Event         string `json:"event"`
	Status        string `json:"status"`
	TxRef         string `json:"tx_ref"`
	TrxRef        string `json:"trx_ref"`
	Reference     string `json:"reference"`
	PaymentMethod string `json:"payment_method"`
	Message       string `json:"message"`
}

// ParseEvent reads a gateway webhook body and classifies it for the channel it
// arrived on. Events of the other channel's vocabulary are Unrecognized.
func ParseEvent(channel domain.WebhookChannel, payload []byte) (*domain.GatewayEvent, error) {
	var body webhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedWebhook, err)
	}

	event := &domain.GatewayEvent{
		Channel: channel,
		Kind:    domain.EventUnrecognized,
		Name:    body.Event,
		Status:  body.Status,
		Message: body.Message,
		Raw:     payload,
	}
	success := strings.EqualFold(body.Status, "success")

	switch channel {
	case domain.ChannelPayment:
		event.Reference = body.TxRef
		if event.Reference == "" {
			event.Reference = body.TrxRef
		}
		if body.Reference != event.Reference {
			event.GatewayReference = body.Reference
		}
		event.Method = paymentMethod(body.PaymentMethod)

		switch body.Event {
		case "charge.success":
			if success {
				event.Kind = domain.EventPaymentSucceeded
			}
		case "charge.failed":
			event.Kind = domain.EventPaymentFailed
		case "charge.cancelled":
			event.Kind = domain.EventPaymentFailed
			event.Cancelled = true
		}
	case domain.ChannelTransfer:
		event.Reference = body.Reference
		switch body.Event {
		case "payout.success":
			if success {
				event.Kind = domain.EventTransferSucceeded
			}
		case "payout.failed", "payout.cancelled":
			event.Kind = domain.EventTransferFailed
			event.Cancelled = body.Event == "payout.cancelled"
		}
	default:
		return nil, fmt.Errorf("%w: unknown channel %q", domain.ErrMalformedWebhook, channel)
	}

	if event.Kind == domain.EventPaymentFailed && event.Message == "" {
		event.Message = "Payment failed"
	}
	if event.Kind == domain.EventTransferFailed && event.Message == "" {
		event.Message = "Transfer failed"
	}
	return event, nil
}

func paymentMethod(raw string) domain.PaymentMethod {
	switch strings.ToLower(raw) {
	case "":
		return domain.PaymentMethodGateway
	case "card", "visa", "mastercard":
		return domain.PaymentMethodCard
	case "telebirr", "mpesa", "cbebirr", "ebirr", "awashbirr", "mobile_money":
		return domain.PaymentMethodMobileMoney
	case "bank", "bank_transfer", "cbe", "awash", "dashen":
		return domain.PaymentMethodBankTransfer
	}
	return domain.PaymentMethodGateway
}
