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

	"invoice-console/internal/bootstrap"
	"invoice-console/internal/config"
	"invoice-console/internal/dataprovider"
	"invoice-console/internal/httpapi"
	"invoice-console/internal/invoicing"
	"invoice-console/internal/reporting"
	"invoice-console/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	gw, closeStore, err := bootstrap.OpenGateway(rootCtx, cfg, log, func(context.Context) {
		log.Warn("backend rejected the session; login required")
	})
	if err != nil {
		log.Error("session init failed", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	dp := dataprovider.New(gw, log)
	invoices := invoicing.NewService(dp, log)
	h := httpapi.Handlers{
		Gateway:  gw,
		Invoices: invoices,
		Reports:  reporting.NewService(reporting.NewProviderRepo(invoices.Invoices)),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	registerRoutes(r, h)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("console listening", "addr", srv.Addr, "env", cfg.App.Env, "backend", cfg.Backend.URL, "store", cfg.Session.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
