// Command server runs the x402 token storefront: a single paid endpoint that
// verifies x402 payment receipts against a facilitator and delivers tokens to
// the payer in the background.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	seller "github.com/zorroteam/x402-seller"
	"github.com/zorroteam/x402-seller/delivery"
	"github.com/zorroteam/x402-seller/evm"
	sellerhttp "github.com/zorroteam/x402-seller/http"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := seller.LoadConfig()
	if err != nil {
		logger.Error("configuration invalid, refusing to start", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wallet, err := evm.FromConfig(cfg)
	if err != nil {
		logger.Error("failed to load signing wallet", "error", err)
		os.Exit(1)
	}

	chain, err := evm.Dial(ctx, cfg.RPCURL, wallet)
	if err != nil {
		logger.Error("failed to connect to RPC endpoint", "error", err)
		os.Exit(1)
	}
	defer chain.Close()

	orch := delivery.NewOrchestrator(chain, cfg, logger)
	queue := delivery.NewQueue(orch, 64, logger)
	queue.Start()

	facilitator := sellerhttp.NewFacilitatorClient(cfg.FacilitatorURL)
	buy := sellerhttp.NewBuyHandler(cfg, facilitator, queue, logger)
	router := sellerhttp.NewRouter(cfg, buy)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting",
			"addr", srv.Addr,
			"public", cfg.PublicDomain,
			"network", cfg.Chain().NetworkID,
			"facilitator", cfg.FacilitatorURL,
			"wallet", wallet.Address().Hex(),
			"token", cfg.TokenAddress,
			"autoRefund", cfg.AutoRefund)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	// Let in-flight deliveries finish before dropping the wallet connection.
	if err := queue.Stop(shutdownCtx); err != nil {
		logger.Error("delivery queue drain timed out", "error", err)
	}
}
