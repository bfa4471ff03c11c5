package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MikeRez0/orderpay/internal/adapter/auth"
	"github.com/MikeRez0/orderpay/internal/adapter/client/gateway"
	"github.com/MikeRez0/orderpay/internal/adapter/client/notify"
	"github.com/MikeRez0/orderpay/internal/adapter/config"
	"github.com/MikeRez0/orderpay/internal/adapter/dispatch"
	"github.com/MikeRez0/orderpay/internal/adapter/handler/http"
	"github.com/MikeRez0/orderpay/internal/adapter/logger"
	"github.com/MikeRez0/orderpay/internal/adapter/storage"
	"github.com/MikeRez0/orderpay/internal/adapter/storage/memory"
	"github.com/MikeRez0/orderpay/internal/adapter/storage/repository"
	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"github.com/MikeRez0/orderpay/internal/core/pricing"
	"github.com/MikeRez0/orderpay/internal/core/reference"
	"github.com/MikeRez0/orderpay/internal/core/service"
	"github.com/MikeRez0/orderpay/internal/core/signature"
	"github.com/govalues/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type store interface {
	port.Repository
	port.Catalog
	port.CustomerDirectory
	port.TaskQueue
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "orderpay: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	conf, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	log, err := logger.NewLogger(conf.App)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, conf, log)
	if err != nil {
		return err
	}
	defer closeStore()

	tokenService, err := auth.New(conf.Auth)
	if err != nil {
		log.Error("token service creating error", zap.Error(err))
		return err
	}

	gw, err := gateway.NewClient(conf.Gateway, log.Named("Gateway"))
	if err != nil {
		log.Error("gateway client creating error", zap.Error(err))
		return err
	}

	calc, err := pricing.NewCalculator(conf.Business.VATRate)
	if err != nil {
		log.Error("pricing calculator creating error", zap.Error(err))
		return err
	}

	svc, err := service.NewService(st, st, st, gw, calc,
		reference.NewGenerator(conf.Business.OrderPrefix),
		service.CheckoutConfig{
			Currency:    conf.Gateway.Currency,
			CallbackURL: conf.HTTP.CallbackURL(),
			ReturnURL:   conf.Gateway.ReturnURL,
			PendingTTL:  conf.Gateway.CheckoutTTL,
		},
		log.Named("Service"))
	if err != nil {
		log.Error("order service creating error", zap.Error(err))
		return err
	}

	dispatcher, err := dispatch.New(st, notify.NewClient(conf.Dispatch, log.Named("Notify")),
		conf.Dispatch, log.Named("Dispatcher"))
	if err != nil {
		log.Error("dispatcher creating error", zap.Error(err))
		return err
	}

	reconciler, err := service.NewReconciler(st, st, dispatcher, log.Named("Reconciler"))
	if err != nil {
		log.Error("reconciler creating error", zap.Error(err))
		return err
	}

	verifier, err := signature.NewVerifier(conf.Webhook.Secret, conf.Webhook.Permissive, log.Named("Signature"))
	if err != nil {
		log.Error("webhook verifier creating error", zap.Error(err))
		return err
	}

	orderHandler, err := http.NewOrderHandler(svc, log.Named("Order handler"))
	if err != nil {
		log.Error("order handler creating error", zap.Error(err))
		return err
	}
	webhookHandler, err := http.NewWebhookHandler(verifier, reconciler, log.Named("Webhook handler"))
	if err != nil {
		log.Error("webhook handler creating error", zap.Error(err))
		return err
	}

	r, err := http.NewRouter(conf.HTTP, log.Named("Router"), tokenService, orderHandler, webhookHandler)
	if err != nil {
		log.Error("router creating error", zap.Error(err))
		return err
	}

	log.Info("Starting",
		zap.String("address", conf.HTTP.HostString),
		zap.String("mode", conf.App.Mode),
		zap.Stringer("vat", calc.VATRate()),
		zap.Int("workers", conf.Dispatch.Workers))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(ctx)
	})
	g.Go(func() error {
		return r.Serve(ctx, conf.HTTP.HostString)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", zap.Error(err))
		return err
	}
	log.Info("Stopped")
	return nil
}

// openStore returns the store and the function releasing it.
func openStore(ctx context.Context, conf *config.Config, log *zap.Logger) (store, func(), error) {
	if conf.Database.DSN == "" {
		log.Warn("No database configured, using the in-memory store with demo data")
		return demoStore(), func() {}, nil
	}

	db, err := storage.NewDBStorage(ctx, conf.Database)
	if err != nil {
		log.Error("database error", zap.Error(err))
		return nil, nil, err
	}
	err = db.RunMigrations()
	if err != nil {
		log.Error("database migration error", zap.Error(err))
		db.Close()
		return nil, nil, err
	}

	repo, err := repository.NewRepository(db)
	if err != nil {
		log.Error("repository creating error", zap.Error(err))
		db.Close()
		return nil, nil, err
	}
	return repo, db.Close, nil
}

func demoStore() *memory.Store {
	s := memory.New()
	s.PutCustomer(&domain.Customer{ID: 1, FirstName: "Demo", LastName: "Customer", Email: "demo@example.com"})
	s.PutProduct(&domain.Product{ID: 1, Name: "Phone", SerialNumber: "PH-001",
		Price: decimal.MustNew(115000, 2), Status: domain.ProductStatusActive, StockQuantity: 10})
	s.PutProduct(&domain.Product{ID: 2, Name: "Charger", SerialNumber: "CH-001",
		Price: decimal.MustNew(34999, 2), Status: domain.ProductStatusActive, StockQuantity: 50})
	return s
}
