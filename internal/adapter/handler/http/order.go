package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	Handler
	service port.OrderService
}

func NewOrderHandler(service port.OrderService, logger *zap.Logger) (*OrderHandler, error) {
	return &OrderHandler{
		Handler: *NewHandler(logger),
		service: service,
	}, nil
}

type orderLineReq struct {
	ProductID uint64 `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type createOrderReq struct {
	// CustomerID is honoured for admins only.
	CustomerID      uint64         `json:"customer_id"`
	Items           []orderLineReq `json:"items" binding:"required"`
	ShippingAddress string         `json:"shipping_address"`
	Notes           string         `json:"notes"`
}

type OrderItemResp struct {
	ProductID    uint64      `json:"product_id"`
	ProductName  string      `json:"product_name"`
	SerialNumber string      `json:"serial_number,omitempty"`
	Quantity     int         `json:"quantity"`
	UnitPrice    jsonDecimal `json:"unit_price"`
	TotalPrice   jsonDecimal `json:"total_price"`
}

type OrderResp struct {
	ID              uint64          `json:"id"`
	Number          string          `json:"order_number"`
	CustomerID      uint64          `json:"customer_id"`
	Status          string          `json:"status"`
	Subtotal        jsonDecimal     `json:"subtotal"`
	VATAmount       jsonDecimal     `json:"vat_amount"`
	TotalAmount     jsonDecimal     `json:"total_amount"`
	Items           []OrderItemResp `json:"items"`
	ShippingAddress string          `json:"shipping_address,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func newOrderResp(o *domain.Order) OrderResp {
	r := OrderResp{
		ID:              o.ID,
		Number:          o.Number,
		CustomerID:      o.CustomerID,
		Status:          string(o.Status),
		Subtotal:        jsonDecimal(o.Subtotal),
		VATAmount:       jsonDecimal(o.VATAmount),
		TotalAmount:     jsonDecimal(o.TotalAmount),
		Items:           make([]OrderItemResp, 0, len(o.Items)),
		ShippingAddress: o.ShippingAddress,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, item := range o.Items {
		r.Items = append(r.Items, OrderItemResp{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			SerialNumber: item.SerialNumber,
			Quantity:     item.Quantity,
			UnitPrice:    jsonDecimal(item.UnitPrice),
			TotalPrice:   jsonDecimal(item.TotalPrice),
		})
	}
	return r
}

// CreateOrder godoc
//
//	@Summary	Place an order
//	@Tags		orders
//	@Accept		json
//	@Produce	json
//	@Param		order	body		createOrderReq	true	"Order lines"
//	@Success	201		{object}	OrderResp
//	@Failure	400,409	{object}	errorResponse
//	@Router		/api/orders [post]
func (oh *OrderHandler) CreateOrder(ctx *gin.Context) {
	payload := getAuthPayload(ctx)

	var req createOrderReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		oh.handleValidationError(ctx, err)
		return
	}

	draft := &domain.OrderDraft{
		CustomerID:      payload.CustomerID,
		Items:           make([]domain.OrderLine, 0, len(req.Items)),
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	}
	if payload.Role == port.RoleAdmin && req.CustomerID != 0 {
		draft.CustomerID = req.CustomerID
	}
	for _, l := range req.Items {
		draft.Items = append(draft.Items, domain.OrderLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	order, err := oh.service.CreateOrder(ctx, draft)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	oh.handleSuccessWithStatus(ctx, newOrderResp(order), http.StatusCreated)
}

type listOrdersReq struct {
	Status     string `form:"status"`
	CustomerID uint64 `form:"customer_id"`
	Limit      uint64 `form:"limit"`
	Offset     uint64 `form:"offset"`
}

// ListOrders godoc
//
//	@Summary		List orders, newest first
//	@Description	Customers see their own orders. Admins see every order and may filter by customer.
//	@Tags			orders
//	@Produce		json
//	@Param			status		query		string	false	"Order status"
//	@Param			customer_id	query		int		false	"Customer id (admin)"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Rows to skip"
//	@Success		200			{array}		OrderResp
//	@Failure		400			{object}	errorResponse
//	@Router			/api/orders [get]
//	@Router			/api/orders/status/{status} [get]
func (oh *OrderHandler) ListOrders(ctx *gin.Context) {
	payload := getAuthPayload(ctx)

	var req listOrdersReq
	if err := ctx.ShouldBindQuery(&req); err != nil {
		oh.handleValidationError(ctx, err)
		return
	}
	if status := ctx.Param("status"); status != "" {
		req.Status = status
	}

	filter := domain.OrderFilter{
		CustomerID: payload.CustomerID,
		Status:     domain.OrderStatus(strings.ToUpper(req.Status)),
		Limit:      req.Limit,
		Offset:     req.Offset,
	}
	if payload.Role == port.RoleAdmin {
		filter.CustomerID = req.CustomerID
	}

	list, err := oh.service.ListOrders(ctx, filter)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	result := make([]OrderResp, 0, len(list))
	for _, o := range list {
		result = append(result, newOrderResp(o))
	}
	oh.handleSuccess(ctx, result)
}

// loadOrder resolves the :ref path segment, a numeric id or an order number,
// and checks that the caller may see the order.
func (oh *OrderHandler) loadOrder(ctx *gin.Context) (*domain.Order, bool) {
	order, err := resolveOrder(ctx, oh.service, ctx.Param("ref"))
	if err != nil {
		oh.handleError(ctx, err)
		return nil, false
	}
	if !canSee(getAuthPayload(ctx), order.CustomerID) {
		oh.handleError(ctx, domain.ErrForbidden)
		return nil, false
	}
	return order, true
}

func resolveOrder(ctx context.Context, service port.OrderService, ref string) (*domain.Order, error) {
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return service.GetOrder(ctx, id)
	}
	return service.GetOrderByNumber(ctx, ref)
}

func canSee(payload *port.TokenPayload, customerID uint64) bool {
	return payload.Role == port.RoleAdmin || payload.CustomerID == customerID
}

func (oh *OrderHandler) GetOrder(ctx *gin.Context) {
	order, ok := oh.loadOrder(ctx)
	if !ok {
		return
	}
	oh.handleSuccess(ctx, newOrderResp(order))
}

type orderPaidResp struct {
	Number string `json:"order_number"`
	Paid   bool   `json:"paid"`
}

func (oh *OrderHandler) IsPaid(ctx *gin.Context) {
	order, ok := oh.loadOrder(ctx)
	if !ok {
		return
	}
	paid, err := oh.service.IsFullyPaid(ctx, order.ID)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}
	oh.handleSuccess(ctx, orderPaidResp{Number: order.Number, Paid: paid})
}

type updateStatusReq struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus godoc
//
//	@Summary	Move an order along fulfilment (admin)
//	@Tags		orders
//	@Accept		json
//	@Produce	json
//	@Param		ref		path		string			true	"Order id or number"
//	@Param		status	body		updateStatusReq	true	"Target status"
//	@Success	200		{object}	OrderResp
//	@Failure	409		{object}	errorResponse
//	@Router		/api/orders/{ref}/status [patch]
func (oh *OrderHandler) UpdateStatus(ctx *gin.Context) {
	var req updateStatusReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		oh.handleValidationError(ctx, err)
		return
	}
	status := domain.OrderStatus(req.Status)
	if !status.Valid() {
		oh.handleError(ctx, domain.NewValidationError("status", "unknown order status"))
		return
	}

	order, ok := oh.loadOrder(ctx)
	if !ok {
		return
	}
	updated, err := oh.service.UpdateOrderStatus(ctx, order.ID, status)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}
	oh.handleSuccess(ctx, newOrderResp(updated))
}

// Confirm godoc
//
//	@Summary		Retry confirmation of a paid order (admin)
//	@Description	Re-reserves stock for a fully paid order whose confirmation was blocked.
//	@Tags			orders
//	@Produce		json
//	@Param			ref	path		string	true	"Order id or number"
//	@Success		200	{object}	OrderResp
//	@Failure		409	{object}	errorResponse
//	@Router			/api/orders/{ref}/confirm [post]
func (oh *OrderHandler) Confirm(ctx *gin.Context) {
	order, ok := oh.loadOrder(ctx)
	if !ok {
		return
	}
	confirmed, err := oh.service.ConfirmOrder(ctx, order.ID)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}
	oh.handleSuccess(ctx, newOrderResp(confirmed))
}
