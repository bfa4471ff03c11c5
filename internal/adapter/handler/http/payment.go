package http

import (
	"net/http"
	"time"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"github.com/gin-gonic/gin"
)

type PaymentResp struct {
	Reference        string      `json:"payment_reference"`
	GatewayReference string      `json:"gateway_reference,omitempty"`
	OrderID          uint64      `json:"order_id"`
	Amount           jsonDecimal `json:"amount"`
	Currency         string      `json:"currency"`
	Status           string      `json:"status"`
	Method           string      `json:"payment_method,omitempty"`
	FailureReason    string      `json:"failure_reason,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

func newPaymentResp(p *domain.Payment) PaymentResp {
	return PaymentResp{
		Reference:        p.Reference,
		GatewayReference: p.GatewayReference,
		OrderID:          p.OrderID,
		Amount:           jsonDecimal(p.Amount),
		Currency:         p.Currency,
		Status:           string(p.Status),
		Method:           string(p.Method),
		FailureReason:    p.FailureReason,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

type checkoutResp struct {
	Reference   string `json:"payment_reference"`
	CheckoutURL string `json:"checkout_url"`
}

// InitializePayment godoc
//
//	@Summary	Open a hosted checkout for the outstanding amount
//	@Tags		payments
//	@Produce	json
//	@Param		ref	path		string	true	"Order id or number"
//	@Success	201	{object}	checkoutResp
//	@Failure	409	{object}	errorResponse	"Order already paid or a checkout is already open"
//	@Failure	502	{object}	errorResponse	"Gateway unavailable"
//	@Router		/api/orders/{ref}/payments [post]
func (oh *OrderHandler) InitializePayment(ctx *gin.Context) {
	order, ok := oh.loadOrder(ctx)
	if !ok {
		return
	}

	handle, err := oh.service.InitializePayment(ctx, order.ID)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	oh.handleSuccessWithStatus(ctx, checkoutResp{
		Reference:   handle.PaymentReference,
		CheckoutURL: handle.CheckoutURL,
	}, http.StatusCreated)
}

func (oh *OrderHandler) ListPayments(ctx *gin.Context) {
	order, ok := oh.loadOrder(ctx)
	if !ok {
		return
	}

	list, err := oh.service.ListPayments(ctx, order.ID)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}
	result := make([]PaymentResp, 0, len(list))
	for _, p := range list {
		result = append(result, newPaymentResp(p))
	}
	oh.handleSuccess(ctx, result)
}

func (oh *OrderHandler) GetPayment(ctx *gin.Context) {
	payment, err := oh.service.GetPaymentByReference(ctx, ctx.Param("reference"))
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	payload := getAuthPayload(ctx)
	if payload.Role != port.RoleAdmin {
		order, err := oh.service.GetOrder(ctx, payment.OrderID)
		if err != nil {
			oh.handleError(ctx, err)
			return
		}
		if !canSee(payload, order.CustomerID) {
			oh.handleError(ctx, domain.ErrForbidden)
			return
		}
	}
	oh.handleSuccess(ctx, newPaymentResp(payment))
}
