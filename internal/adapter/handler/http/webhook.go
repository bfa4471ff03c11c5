package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"github.com/MikeRez0/orderpay/internal/core/signature"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxWebhookBody bounds what is read before the signature is checked.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	Handler
	verifier   port.WebhookVerifier
	reconciler port.Reconciler
}

func NewWebhookHandler(verifier port.WebhookVerifier, reconciler port.Reconciler,
	logger *zap.Logger) (*WebhookHandler, error) {
	if verifier == nil || reconciler == nil {
		return nil, errors.New("webhook handler: missing dependency")
	}
	return &WebhookHandler{
		Handler:    *NewHandler(logger),
		verifier:   verifier,
		reconciler: reconciler,
	}, nil
}

type webhookResp struct {
	Status  string `json:"status"`
	Outcome string `json:"outcome,omitempty"`
}

// PaymentWebhook godoc
//
//	@Summary	Gateway payment notification
//	@Tags		webhooks
//	@Accept		json
//	@Produce	json
//	@Param		Chapa-Signature	header		string	false	"hex HMAC-SHA256 of the body"
//	@Success	200				{object}	webhookResp
//	@Failure	401				{object}	errorResponse
//	@Failure	500				{object}	errorResponse	"Gateway should retry"
//	@Router		/webhooks/gateway/payment [post]
func (wh *WebhookHandler) PaymentWebhook(ctx *gin.Context) {
	wh.receive(ctx, domain.ChannelPayment)
}

func (wh *WebhookHandler) TransferWebhook(ctx *gin.Context) {
	wh.receive(ctx, domain.ChannelTransfer)
}

// receive authenticates the raw body before anything is parsed or stored.
func (wh *WebhookHandler) receive(ctx *gin.Context, channel domain.WebhookChannel) {
	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody+1))
	if err != nil {
		wh.handleValidationError(ctx, domain.ErrBadRequest)
		return
	}
	if len(body) > maxWebhookBody {
		wh.handleValidationError(ctx, errors.New("payload too large"))
		return
	}

	err = wh.verifier.Verify(body,
		ctx.GetHeader(signature.HeaderPrimary),
		ctx.GetHeader(signature.HeaderSecondary))
	if err != nil {
		wh.logger.Warn("Webhook rejected",
			zap.String("channel", string(channel)),
			zap.String("remote", ctx.ClientIP()),
			zap.Error(err))
		ctx.JSON(http.StatusUnauthorized, errorResponse{Error: domain.ErrSignatureVerification.Error()})
		return
	}

	outcome, err := wh.reconciler.Reconcile(ctx, channel, body)
	if err != nil {
		// non-2xx makes the gateway deliver again
		wh.logger.Error("Webhook not reconciled", zap.String("channel", string(channel)), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse{Error: "webhook processing failed"})
		return
	}

	wh.handleSuccess(ctx, webhookResp{Status: "ok", Outcome: string(outcome)})
}

// PaymentRedirect acknowledges the browser return from the hosted checkout.
// It is unauthenticated and never changes state; only webhooks do.
func (wh *WebhookHandler) PaymentRedirect(ctx *gin.Context) {
	wh.logger.Info("Checkout redirect",
		zap.String("tx_ref", ctx.Query("tx_ref")),
		zap.String("trx_ref", ctx.Query("trx_ref")),
		zap.String("status", ctx.Query("status")))
	wh.handleSuccess(ctx, webhookResp{Status: "received"})
}
