package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MikeRez0/orderpay/internal/adapter/config"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/MikeRez0/orderpay/docs"
)

type Router struct {
	*gin.Engine
	logger *zap.Logger
}

func NewRouter(
	conf *config.HTTP,
	logger *zap.Logger,
	tokenService port.TokenService,
	orderHandler *OrderHandler,
	webhookHandler *WebhookHandler) (*Router, error) {

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	// Swagger
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	h := NewHandler(logger)
	idem := NewIdempotency(10000, 24*time.Hour)

	api := router.Group("/api")
	{
		api.Use(authCheck(h, tokenService), idem.Middleware(logger))

		orders := api.Group("/orders")
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("", orderHandler.ListOrders)
			orders.GET("/status/:status", requireRole(h, port.RoleAdmin), orderHandler.ListOrders)
			orders.GET("/:ref", orderHandler.GetOrder)
			orders.POST("/:ref/payments", orderHandler.InitializePayment)
			orders.GET("/:ref/payments", orderHandler.ListPayments)
			orders.GET("/:ref/paid", orderHandler.IsPaid)
			orders.PATCH("/:ref/status", requireRole(h, port.RoleAdmin), orderHandler.UpdateStatus)
			orders.POST("/:ref/confirm", requireRole(h, port.RoleAdmin), orderHandler.Confirm)
		}
		api.GET("/payments/:reference", orderHandler.GetPayment)
	}

	webhooks := router.Group("/webhooks/gateway")
	{
		webhooks.POST("/payment", webhookHandler.PaymentWebhook)
		webhooks.GET("/payment", webhookHandler.PaymentRedirect)
		webhooks.POST("/transfer", webhookHandler.TransferWebhook)
	}

	return &Router{Engine: router, logger: logger}, nil
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		logger.Debug("request",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// Serve starts the HTTP server and shuts it down gracefully when ctx is done.
func (r *Router) Serve(ctx context.Context, listenAddr string) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	r.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
