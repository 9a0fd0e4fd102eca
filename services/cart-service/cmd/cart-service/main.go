package main

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/erikshafer/crittersupply/libs/config"
	"github.com/erikshafer/crittersupply/libs/db"
	"github.com/erikshafer/crittersupply/libs/eventstore"
	"github.com/erikshafer/crittersupply/libs/httpx"
	"github.com/erikshafer/crittersupply/libs/kafkax"
	otelx "github.com/erikshafer/crittersupply/libs/otel"
	"github.com/erikshafer/crittersupply/libs/outbox"
	"github.com/erikshafer/crittersupply/libs/runtime"
	"github.com/erikshafer/crittersupply/services/cart-service/internal/cart"
	"github.com/erikshafer/crittersupply/services/cart-service/internal/catalog"
	"github.com/erikshafer/crittersupply/services/cart-service/internal/handlers"
)

func main() {
	service := config.String("SERVICE_NAME", "cart-service")
	port, err := config.Port("PORT", "8081")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository()
	store := eventstore.NewPostgresStore(pool, outboxRepo, logger)

	relay := outbox.NewRelay(pool, outboxRepo, logger, outbox.RelayConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go relay.Run(ctx)

	catalogClient := catalog.NewHTTPClient(config.String("CATALOG_URL", "http://inventory-service:8085"))
	svc := cart.NewService(store, catalogClient, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	handlers.NewCartHandler(svc, logger).Register(mux)

	limiter := httpx.NewRateLimiter(config.Int("RATE_LIMIT", 120), time.Minute)
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		limiter.Middleware(),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "cart")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
