// Package app собирает сервис заказов из конфигурации: хранилище, HTTP API,
// сервер метрик и фоновые воркеры.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/eshop/internal/health"
	"github.com/vladislavdragonenkov/eshop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/eshop/internal/metrics"
	"github.com/vladislavdragonenkov/eshop/internal/service/idempotency"
	"github.com/vladislavdragonenkov/eshop/internal/service/orders"
	"github.com/vladislavdragonenkov/eshop/internal/service/outbox"
	httptransport "github.com/vladislavdragonenkov/eshop/internal/transport/http"
	"github.com/vladislavdragonenkov/eshop/internal/version"
)

// Run запускает сервис и блокируется до отмены ctx или ошибки HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	return run(ctx, cfg, prometheus.DefaultRegisterer, prometheus.DefaultGatherer, nil)
}

// run принимает готовый listener для тестов; nil — слушать cfg.HTTPAddr.
func run(ctx context.Context, cfg Config, reg prometheus.Registerer, gatherer prometheus.Gatherer, lis net.Listener) error {
	logger := log.WithField("component", "app")
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	producer, err := initKafkaProducer(cfg, logger)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		producer = nil
	}
	defer closeKafka(producer, logger)

	serviceOpts := []orders.Option{
		orders.WithLogger(logger.WithField("layer", "orders")),
		orders.WithMetrics(metrics.NewOrderMetricsWithRegisterer(reg)),
		orders.WithConcurrency(cfg.CreateConcurrency),
		orders.WithTransactor(deps.transactor),
	}
	if producer != nil {
		serviceOpts = append(serviceOpts, orders.WithOutbox(deps.outboxRepo))
	}
	orderService, err := orders.NewService(orders.Dependencies{
		LineItems: deps.lineItems,
		Orders:    deps.orders,
		Catalog:   deps.catalog,
		Users:     deps.users,
	}, serviceOpts...)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(orderService, httptransport.Config{
		APIPrefix:          cfg.APIPrefix,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		IdempotencyTTL:     cfg.IdempotencyTTL,
	},
		httptransport.WithLogger(logger.WithField("layer", "http")),
		httptransport.WithMetrics(metrics.NewHTTPMetrics(reg)),
		httptransport.WithIdempotency(deps.idempotencyRepo),
	)

	healthHandler := newHealthHandler(deps, producer)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	var workers sync.WaitGroup
	startWorkers(workerCtx, &workers, cfg, deps, producer, reg, logger)
	defer func() {
		stopWorkers()
		workers.Wait()
	}()

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler, gatherer)

	if lis == nil {
		lis, err = net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			shutdownHTTP(metricsSrv, logger, cfg.ShutdownTimeout)
			return err
		}
	}
	apiSrv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("version", version.String()).Infof("HTTP API слушает %s", lis.Addr())
		errCh <- apiSrv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		shutdownHTTP(apiSrv, logger, cfg.ShutdownTimeout)
		shutdownHTTP(metricsSrv, logger, cfg.ShutdownTimeout)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger, cfg.ShutdownTimeout)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func newHealthHandler(deps *runtimeDependencies, producer *kafka.Producer) *healthcheck.Handler {
	h := healthcheck.NewHandler(version.Current().Version)
	if deps.store != nil {
		h.Register(healthcheck.NewChecker("postgres", deps.store.Ping))
	}
	if producer != nil {
		h.Register(healthcheck.NewOptionalChecker("kafka", func(context.Context) error {
			return producer.Ping()
		}))
	}
	return h
}

// startWorkers запускает outbox worker (только с Kafka) и очистку idempotency-ключей.
func startWorkers(ctx context.Context, wg *sync.WaitGroup, cfg Config, deps *runtimeDependencies, producer *kafka.Producer, reg prometheus.Registerer, logger *log.Entry) {
	if producer != nil {
		worker := outbox.NewWorker(deps.outboxRepo,
			kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
			outbox.WithLogger(logger.WithField("worker", "outbox")),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetter)),
			outbox.WithMetrics(metrics.NewOutboxMetrics(reg)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}

	cleanup := idempotency.NewCleanupWorker(deps.idempotencyRepo,
		idempotency.WithLogger(logger.WithField("worker", "idempotency_cleanup")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
		idempotency.WithMetrics(metrics.NewCleanupMetrics(reg)),
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		cleanup.Run(ctx)
	}()
}

// newMetricsMux собирает обработчики метрик и health checks.
func newMetricsMux(healthHandler *healthcheck.Handler, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	return mux
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus. Пустой addr отключает сервер.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler, gatherer prometheus.Gatherer) *http.Server {
	if addr == "" {
		return nil
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           newMetricsMux(healthHandler, gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger, 0)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry, timeout time.Duration) {
	if srv == nil {
		return
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
