package service_test

import (
	"testing"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	type parseTest struct {
		name     string
		channel  domain.WebhookChannel
		payload  string
		expError error
		exp      domain.GatewayEvent
	}

	tests := []parseTest{
		{
			name:    "charge success",
			channel: domain.ChannelPayment,
			payload: `{"event":"charge.success","status":"success","tx_ref":"PAY_1","reference":"AP9","payment_method":"telebirr"}`,
			exp: domain.GatewayEvent{Kind: domain.EventPaymentSucceeded, Name: "charge.success", Status: "success",
				Reference: "PAY_1", GatewayReference: "AP9", Method: domain.PaymentMethodMobileMoney},
		},
		{
			name:    "trx_ref fallback",
			channel: domain.ChannelPayment,
			payload: `{"event":"charge.success","status":"SUCCESS","trx_ref":"PAY_2"}`,
			exp: domain.GatewayEvent{Kind: domain.EventPaymentSucceeded, Name: "charge.success", Status: "SUCCESS",
				Reference: "PAY_2", Method: domain.PaymentMethodGateway},
		},
		{
			name:    "success event with pending status",
			channel: domain.ChannelPayment,
			payload: `{"event":"charge.success","status":"pending","tx_ref":"PAY_3"}`,
			exp: domain.GatewayEvent{Kind: domain.EventUnrecognized, Name: "charge.success", Status: "pending",
				Reference: "PAY_3", Method: domain.PaymentMethodGateway},
		},
		{
			name:    "charge failed default message",
			channel: domain.ChannelPayment,
			payload: `{"event":"charge.failed","status":"failed","tx_ref":"PAY_4","payment_method":"card"}`,
			exp: domain.GatewayEvent{Kind: domain.EventPaymentFailed, Name: "charge.failed", Status: "failed",
				Reference: "PAY_4", Method: domain.PaymentMethodCard, Message: "Payment failed"},
		},
		{
			name:    "charge cancelled",
			channel: domain.ChannelPayment,
			payload: `{"event":"charge.cancelled","tx_ref":"PAY_5","message":"user closed checkout"}`,
			exp: domain.GatewayEvent{Kind: domain.EventPaymentFailed, Name: "charge.cancelled",
				Reference: "PAY_5", Method: domain.PaymentMethodGateway, Message: "user closed checkout", Cancelled: true},
		},
		{
			name:    "payout success",
			channel: domain.ChannelTransfer,
			payload: `{"event":"payout.success","status":"success","reference":"TR-1","tx_ref":"ignored"}`,
			exp: domain.GatewayEvent{Kind: domain.EventTransferSucceeded, Name: "payout.success", Status: "success",
				Reference: "TR-1"},
		},
		{
			name:    "payout cancelled",
			channel: domain.ChannelTransfer,
			payload: `{"event":"payout.cancelled","reference":"TR-2"}`,
			exp: domain.GatewayEvent{Kind: domain.EventTransferFailed, Name: "payout.cancelled",
				Reference: "TR-2", Message: "Transfer failed", Cancelled: true},
		},
		{
			name:    "charge on the transfer channel",
			channel: domain.ChannelTransfer,
			payload: `{"event":"charge.success","status":"success","reference":"AP1"}`,
			exp: domain.GatewayEvent{Kind: domain.EventUnrecognized, Name: "charge.success", Status: "success",
				Reference: "AP1"},
		},
		{
			name:     "broken json",
			channel:  domain.ChannelPayment,
			payload:  `{"event":`,
			expError: domain.ErrMalformedWebhook,
		},
		{
			name:     "unknown channel",
			channel:  domain.WebhookChannel("refund"),
			payload:  `{}`,
			expError: domain.ErrMalformedWebhook,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			event, err := service.ParseEvent(test.channel, []byte(test.payload))
			if test.expError != nil {
				assert.ErrorIs(t, err, test.expError)
				return
			}
			require.NoError(t, err)

			test.exp.Channel = test.channel
			test.exp.Raw = []byte(test.payload)
			assert.Equal(t, &test.exp, event)
		})
	}
}
