package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/gin-gonic/gin"
	"github.com/govalues/decimal"
	"go.uber.org/zap"
)

// errorStatuses is matched in order with errors.Is, so typed errors resolve
// through their sentinels.
var errorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrInternal, http.StatusInternalServerError},
	{domain.ErrDataNotFound, http.StatusNotFound},
	{domain.ErrUnknownReference, http.StatusNotFound},
	{domain.ErrConflictingData, http.StatusConflict},
	{domain.ErrDuplicateReference, http.StatusConflict},

	{domain.ErrEmptyAuthorizationHeader, http.StatusUnauthorized},
	{domain.ErrInvalidAuthorizationHeader, http.StatusUnauthorized},
	{domain.ErrInvalidAuthorizationType, http.StatusUnauthorized},
	{domain.ErrInvalidToken, http.StatusUnauthorized},
	{domain.ErrExpiredToken, http.StatusUnauthorized},
	{domain.ErrSignatureVerification, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},

	{domain.ErrNoUpdatedData, http.StatusBadRequest},
	{domain.ErrBadRequest, http.StatusBadRequest},
	{domain.ErrValidation, http.StatusBadRequest},
	{domain.ErrMalformedWebhook, http.StatusBadRequest},

	{domain.ErrInsufficientStock, http.StatusConflict},
	{domain.ErrAlreadyPaid, http.StatusConflict},
	{domain.ErrPaymentInProgress, http.StatusConflict},
	{domain.ErrInvalidTransition, http.StatusConflict},
	{domain.ErrGateway, http.StatusBadGateway},
}

func statusFor(err error) (int, bool) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, true
		}
	}
	return http.StatusInternalServerError, false
}

// jsonDecimal renders money as a JSON number with its scale kept, 1150.00
// rather than 1150.
type jsonDecimal decimal.Decimal

func (j jsonDecimal) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(j).String()), nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Product uint64 `json:"product_id,omitempty"`
}

type Handler struct {
	logger *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{logger: logger}
}

func (h *Handler) errorBody(err error, status int) errorResponse {
	resp := errorResponse{Error: err.Error()}
	if status == http.StatusInternalServerError {
		resp.Error = domain.ErrInternal.Error()
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	var se *domain.InsufficientStockError
	if errors.As(err, &se) {
		resp.Product = se.ProductID
	}
	return resp
}

// handleValidationError sends a 400 for a request that could not be bound
func (h *Handler) handleValidationError(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

// handleAbort sends an error response and aborts the request with the specified status code and error message
func (h *Handler) handleAbort(ctx *gin.Context, err error) {
	statusCode, ok := statusFor(err)
	if !ok {
		h.logger.Error("aborting request", zap.Error(err))
	}
	_ = ctx.Error(err)
	ctx.AbortWithStatusJSON(statusCode, h.errorBody(err, statusCode))
}

func (h *Handler) handleError(ctx *gin.Context, err error) {
	statusCode, ok := statusFor(err)
	if !ok {
		h.logger.Error("error processing request",
			zap.String("path", ctx.FullPath()), zap.Error(err))
	}

	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) && gwErr.RetryAfter > 0 {
		ctx.Header("Retry-After", strconv.Itoa(int(gwErr.RetryAfter.Seconds())))
	}
	ctx.JSON(statusCode, h.errorBody(err, statusCode))
}

// handleSuccessWithStatus sends a success response with the specified status code and optional data
func (h *Handler) handleSuccessWithStatus(ctx *gin.Context, data any, status int) {
	if data != nil {
		ctx.JSON(status, data)
	} else {
		ctx.Status(status)
	}
}

func (h *Handler) handleSuccess(ctx *gin.Context, data any) {
	h.handleSuccessWithStatus(ctx, data, http.StatusOK)
}
