// Package app contains the application setup for the Order service.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/abgdnv/coffeeshop/internal/config"
	"github.com/abgdnv/coffeeshop/internal/messaging"
	"github.com/abgdnv/coffeeshop/internal/service"
	"github.com/abgdnv/coffeeshop/internal/store"
	"github.com/abgdnv/coffeeshop/internal/transport/rest"
	"github.com/abgdnv/coffeeshop/pkg/server"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const orderServiceName = "coffeeshop.order.v1.OrderService"

type Dependencies struct {
	OrderService   service.OrderService
	Health         rest.HealthChecker
	MetricsEnabled bool
	Logger         *slog.Logger
}

func SetupDependencies(orderStore store.OrderStore, publisher messaging.Publisher, health rest.HealthChecker, logger *slog.Logger) *Dependencies {
	oService := service.NewService(orderStore, publisher, logger)

	return &Dependencies{
		OrderService: oService,
		Health:       health,
		Logger:       logger,
	}
}

// SetupHttpHandler initializes the HTTP server and routes for the OrderService application.
// Used by tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the OrderService application.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	orderHandler := rest.NewHandler(deps.OrderService, deps.Health, deps.Logger)
	orderHandler.RegisterRoutes(mux)
	if deps.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
}

// SetupHttpServer creates and configures an HTTP server for the OrderService application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {

	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux, "order-http")
}

// SetupGrpcServer initializes the gRPC server exposing the standard health service.
// The returned health server starts in the NOT_SERVING state.
func SetupGrpcServer(reflectionEnabled bool) (*grpc.Server, *health.Server) {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(orderServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return server.NewGRPCServer(reflectionEnabled, server.WithHealth(hs)), hs
}

// WatchHealth updates the serving status of hs from check every interval until ctx is done.
func WatchHealth(ctx context.Context, hs *health.Server, check rest.HealthChecker, interval time.Duration, logger *slog.Logger) {
	update := func() {
		status := healthpb.HealthCheckResponse_SERVING
		if err := check(ctx); err != nil {
			logger.WarnContext(ctx, "Health check failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(orderServiceName, status)
	}
	update()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			update()
		}
	}
}
