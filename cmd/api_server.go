package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Depado/ginprom"
	"github.com/aurowora/compress"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	healthcheck "github.com/tavsec/gin-healthcheck"
	"github.com/tavsec/gin-healthcheck/checks"
	hc_config "github.com/tavsec/gin-healthcheck/config"

	"github.com/rm-hull/gas-prices-ingest/internal"
	"github.com/rm-hull/gas-prices-ingest/internal/routes"
)

// ApiServer ingests on a CRON schedule and serves the stored prices over HTTP.
func ApiServer(ctx context.Context, configPath string, port int, debug bool) error {
	svc, err := bootstrap(ctx, configPath)
	if err != nil {
		return err
	}
	defer svc.Close()

	scheduler := internal.StartCron(ctx, svc.ingester, svc.logger)
	// wait for running cycles before the repository is closed
	defer scheduler.Stop()

	r := gin.New()

	prometheus := ginprom.New(
		ginprom.Engine(r),
		ginprom.Path("/metrics"),
		ginprom.Ignore("/healthz"),
	)

	r.Use(
		gin.Recovery(),
		gin.LoggerWithWriter(gin.DefaultWriter, "/healthz", "/metrics"),
		prometheus.Instrument(),
		compress.Compress(),
		cors.Default(),
	)

	if debug {
		svc.logger.Warn("pprof endpoints are enabled and exposed. Do not run with this flag in production.")
		pprof.Register(r)
	}

	err = healthcheck.New(r, hc_config.DefaultConfig(), []checks.Check{
		svc.repo.Check(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize healthcheck: %v", err)
	}

	v1 := r.Group("/v1/gas-prices")
	v1.GET("/latest", routes.LatestPrices(svc.repo, svc.client, svc.logger))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		svc.logger.Info("starting HTTP API server", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP API server failed on port %d: %w", port, err)
		}
		return nil
	case <-ctx.Done():
	}

	svc.logger.Info("shutting down HTTP API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
