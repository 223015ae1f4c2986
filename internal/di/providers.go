package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	domrepo "Moatline/internal/domain/repository"
	"Moatline/internal/domain/service"
	"Moatline/internal/handler/api"
	internalrepo "Moatline/internal/repository"
	"Moatline/internal/services/pipeline"
	"Moatline/internal/services/rules"
	"Moatline/internal/services/snapshotsource"
	"Moatline/internal/usecase"
	"Moatline/pkg/cache"
	pkgch "Moatline/pkg/clickhouse"
	"Moatline/pkg/config"
	xhttp "Moatline/pkg/http"
	pkgkafka "Moatline/pkg/kafka"
	applogger "Moatline/pkg/logger"
	"Moatline/pkg/metrics"
	"Moatline/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("service", "moatline"), applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry shared by every collector.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pkgkafka.SetMetricsRegisterer(reg)
	return reg
}

// ProvideMetrics creates the analysis metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.New(reg)
}

// ProvideAnalysis compiles the analysis section and times every stage.
func ProvideAnalysis(cfg *config.Config, rec *metrics.Recorder) (*config.Built, error) {
	b, err := cfg.Analysis.Build(pipeline.WithObserver(func(stage string, d time.Duration, err error) {
		rec.RecordStage(stage, d.Seconds(), err)
	}))
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	return b, nil
}

func ProvidePipeline(b *config.Built) *pipeline.Pipeline { return b.Pipeline }

func ProvideEvaluator(b *config.Built) *rules.Evaluator { return b.Evaluator }

// ProvideReportStore uses ClickHouse when enabled, otherwise keeps reports
// in memory.
func ProvideReportStore(cfg *config.Config, l *applogger.Logger) (domrepo.ReportStore, func(), error) {
	if !cfg.ClickHouse.Enabled {
		l.Warn("clickhouse disabled: reports kept in memory")
		s := internalrepo.NewMemoryReportStore(100)
		return s, func() {}, nil
	}

	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
		pkgch.WithMaxExecutionTime(ch.MaxExecTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	store := internalrepo.NewCHReportStore(client, ch.Database, l)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse ready", applogger.String("database", ch.Database))

	return store, func() {
		if err := store.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}, nil
}

// ProvideVerdictPublisher publishes verdicts to Kafka when enabled.
func ProvideVerdictPublisher(cfg *config.Config, l *applogger.Logger) (domrepo.VerdictPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopVerdictPublisher{}, func() {}, nil
	}
	k := cfg.Kafka
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(k.Brokers),
		pkgkafka.WithCompression(k.Compression),
		pkgkafka.WithRequiredAcks(k.RequiredAcks),
		pkgkafka.WithBatch(k.Producer.BatchSize, k.Producer.Linger),
		pkgkafka.WithTimeouts(k.Producer.WriteTimeout, k.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(k.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaVerdictPublisher(producer, k.VerdictTopic)
	return pub, func() {
		if err := pub.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}, nil
}

// ProvideCache returns nil when caching is disabled, a layered cache over
// Redis when Redis is enabled, and a memory cache otherwise.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	c := cfg.Cache
	if !c.Enabled {
		return nil, func() {}, nil
	}
	var svc cache.Service
	if cfg.Redis.Enabled {
		r := cfg.Redis
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(r.Host),
			cache.WithRedisPort(r.Port),
			cache.WithRedisPassword(r.Password),
			cache.WithRedisDB(r.DB),
			cache.WithRedisPrefix(r.Prefix),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		svc = cache.NewLayeredCache(rc,
			cache.WithLayeredMemorySize(c.MemorySize),
			cache.WithLayeredMemoryTTL(c.MemoryTTL),
		)
	} else {
		svc = cache.NewMemoryCache(
			cache.WithMemoryMaxSize(c.MemorySize),
			cache.WithMemoryDefaultTTL(c.TTL),
		)
	}
	return svc, func() {
		if err := svc.Close(); err != nil {
			l.Warn("cache close error", applogger.Error(err))
		}
	}, nil
}

func ProvideReportCache(cfg *config.Config, svc cache.Service) domrepo.ReportCache {
	if svc == nil {
		return nil
	}
	return internalrepo.NewCachedReports(svc, cfg.Cache.TTL)
}

// ProvideSnapshotSource returns nil when no data-quality service is configured.
func ProvideSnapshotSource(cfg *config.Config) service.SnapshotSource {
	s := cfg.SnapshotService
	if s.URL == "" {
		return nil
	}
	return snapshotsource.New(s.URL,
		snapshotsource.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(s.Timeout))),
		snapshotsource.WithRetry(s.Retries, s.Backoff),
	)
}

func ProvideAnalysisUseCase(
	cfg *config.Config,
	p *pipeline.Pipeline,
	store domrepo.ReportStore,
	pub domrepo.VerdictPublisher,
	rec *metrics.Recorder,
	rc domrepo.ReportCache,
	src service.SnapshotSource,
	l *applogger.Logger,
) *usecase.AnalysisUseCase {
	opts := []usecase.AnalysisOption{
		usecase.WithLogger(l),
		usecase.WithBatchWorkers(cfg.Analysis.BatchWorkers),
	}
	if rc != nil {
		opts = append(opts, usecase.WithReportCache(rc))
	}
	if src != nil {
		opts = append(opts, usecase.WithSnapshotSource(src))
	}
	return usecase.NewAnalysisUseCase(p, store, pub, rec, opts...)
}

func ProvideRulesUseCase(ev *rules.Evaluator, p *pipeline.Pipeline) *usecase.RulesUseCase {
	return usecase.NewRulesUseCase(ev, p)
}

// ProvideKafkaConsumer returns nil unless Kafka and the consumer are enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	k := cfg.Kafka
	if !k.Enabled || !k.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(k.Brokers),
		pkgkafka.WithConsumerGroupID(k.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(k.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(k.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(k.Consumer.RetryMax, k.Consumer.BackoffMin, k.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(k.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.RejectEmptyHook(), pkgkafka.TraceHook()))
	return consumer, nil
}

func ProvideKafkaAnalysisHandler(cfg *config.Config, uc *usecase.AnalysisUseCase, rec *metrics.Recorder, l *applogger.Logger) *usecase.KafkaAnalysisHandler {
	return usecase.NewKafkaAnalysisHandler(cfg.Kafka.RequestTopic, uc, rec, l)
}

// ProvideHealthHandler checks the report store and, when enabled, the cache.
func ProvideHealthHandler(store domrepo.ReportStore, svc cache.Service) *api.HealthHandler {
	checks := map[string]api.HealthCheck{"store": store.Health}
	if svc != nil {
		checks["cache"] = func(ctx context.Context) error {
			_, err := svc.Exists(ctx, "health")
			return err
		}
	}
	return api.NewHealthHandler(checks)
}

func ProvideAnalysisHandler(l *applogger.Logger, uc *usecase.AnalysisUseCase, ru *usecase.RulesUseCase) *api.AnalysisHandler {
	return api.NewAnalysisHandler(l, uc, ru)
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, reg *prometheus.Registry, ah *api.AnalysisHandler, hh *api.HealthHandler) *xhttp.Server {
	s := cfg.Server
	return xhttp.NewServer([]xhttp.Handler{ah, hh},
		xhttp.WithHost(s.Host),
		xhttp.WithPort(s.Port),
		xhttp.WithTimeouts(s.ReadTimeout, s.WriteTimeout, s.ShutdownTimeout),
		xhttp.WithCORS(len(s.CORSOrigins) > 0, s.CORSOrigins...),
		xhttp.WithRateLimit(s.RateLimit, s.RateBurst),
		xhttp.WithSlowThreshold(s.SlowThreshold),
		xhttp.WithLogger(l),
		xhttp.WithMetrics(reg, metricsGatherer(cfg, reg)),
	)
}

// metricsGatherer serves an empty registry when metrics are disabled.
func metricsGatherer(cfg *config.Config, reg *prometheus.Registry) prometheus.Gatherer {
	if !cfg.Metrics.Enabled {
		return prometheus.NewRegistry()
	}
	return reg
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server, consumer *pkgkafka.Consumer, kh *usecase.KafkaAnalysisHandler) *server.App {
	if consumer == nil {
		return server.New(l, srv, nil, cfg.Server.ShutdownTimeout)
	}
	return server.New(l, srv, consumer, cfg.Server.ShutdownTimeout, kh)
}
