package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tinoosan/schoolfin/internal/billing"
	"github.com/tinoosan/schoolfin/internal/config"
	httpapi "github.com/tinoosan/schoolfin/internal/httpapi/v1"
	"github.com/tinoosan/schoolfin/internal/ledger"
	"github.com/tinoosan/schoolfin/internal/storage"
	"github.com/tinoosan/schoolfin/internal/storage/memory"
	pgstore "github.com/tinoosan/schoolfin/internal/storage/postgres"
)

// backend is what main needs from a store beyond the HTTP surface.
type backend interface {
	httpapi.Store
	SeedDev(ctx context.Context) (storage.DevSeed, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := buildLogger(cfg)
	slog.SetDefault(logger)

	var store backend
	closeFn := func() {}
	if cfg.DatabaseURL != "" {
		if cfg.MigrationsDir != "" {
			if err := pgstore.Migrate(cfg.DatabaseURL, cfg.MigrationsDir, logger); err != nil {
				logger.Error("migrations failed", "err", err)
				os.Exit(1)
			}
		}
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closeFn = pg.Close
		store = pg
		logger.Info("storage backend: postgres")
	} else {
		store = memory.New()
		logger.Info("storage backend: memory")
	}

	// the memory backend is empty without a seed, so it always gets one
	if cfg.DevSeed || cfg.DatabaseURL == "" {
		seed, err := store.SeedDev(ctx)
		if err != nil {
			logger.Error("dev seed failed", "err", err)
		} else {
			announceDevSeed(logger, cfg, seed)
		}
	}

	api := httpapi.New(store, httpapi.Options{
		JWTSecret:      cfg.JWTSecret,
		JWTIssuer:      cfg.JWTIssuer,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Billing: billing.Config{
			BoletoBaseURL: cfg.BoletoBaseURL,
			MerchantName:  cfg.PixMerchantName,
			MerchantCity:  cfg.PixMerchantCity,
		},
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("schoolfin service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	closeFn()
}

// announceDevSeed logs the seeded ids and prints a banner with an owner token for copy/paste.
func announceDevSeed(l *slog.Logger, cfg config.Config, seed storage.DevSeed) {
	owner := ledger.Principal{UserID: seed.Guardian.ID, TenantID: seed.School.TenantID, Role: ledger.RoleOwner}
	token, err := httpapi.MintToken(cfg.JWTSecret, cfg.JWTIssuer, owner, cfg.DevTokenTTL)
	if err != nil {
		l.Error("dev token failed", "err", err)
	}
	l.Info("DEV seed",
		"tenant_id", seed.School.TenantID.String(),
		"guardian_id", seed.Guardian.ID.String(),
		"student_id", seed.Student.ID.String(),
		"account_id", seed.Account.ID.String(),
	)
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("tenant_id:   %s\n", seed.School.TenantID)
	fmt.Printf("guardian_id: %s\n", seed.Guardian.ID)
	fmt.Printf("student_id:  %s\n", seed.Student.ID)
	fmt.Printf("account_id:  %s\n", seed.Account.ID)
	if token != "" {
		fmt.Printf("owner token: %s\n", token)
	}
	fmt.Println("==================================================")
}

func buildLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level()}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
