package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/FilmTrack/config"
	"github.com/BearBump/FilmTrack/internal/broker/kafka"
	"github.com/BearBump/FilmTrack/internal/broker/messages"
	"github.com/BearBump/FilmTrack/internal/cache/rediscache"
	"github.com/BearBump/FilmTrack/internal/integrations/status"
	"github.com/BearBump/FilmTrack/internal/integrations/status/vendors"
	"github.com/BearBump/FilmTrack/internal/logging"
	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/BearBump/FilmTrack/internal/services/batch"
	"github.com/BearBump/FilmTrack/internal/services/orders"
	"github.com/BearBump/FilmTrack/internal/storage/pgorders"
)

type apiApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     apiOpts
	svc      *orders.Service
	consumer *kafka.Consumer
	closers  []func()
}

func mustBootstrapAPI() *apiApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("config parse error: %v", err))
	}
	logging.Init(cfg.Logging.Level, cfg.Logging.Format)

	httpAddr := cfg.FilmTrack.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.FilmTrack.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "filmtrack-api"
	}
	topic := cfg.Kafka.StatusUpdatedTopic
	if topic == "" {
		topic = messages.DefaultStatusUpdatedTopic
	}
	swaggerPath := cfg.FilmTrack.SwaggerPath
	if env := os.Getenv("swaggerPath"); env != "" {
		swaggerPath = env
	}

	st := mustOpenPostgresWithRetry(postgresConnString(cfg.Database), 60*time.Second)

	reg, closeRL, err := newAPIRegistry(cfg)
	if err != nil {
		panic(fmt.Sprintf("providers: %v", err))
	}
	slog.Info("status providers registered", "ids", reg.IDs())

	fetcher := batch.New(reg).WithConcurrency(cfg.FilmTrack.FetchConcurrency)
	svc := orders.New(st, fetcher, models.NewStoreCatalog(models.DefaultStoreModels()))

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	consumer := kafka.NewConsumer(brokers, topic, consumerGroup)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &apiApp{
		ctx:    ctx,
		cancel: cancel,
		opts: apiOpts{
			httpAddr:      httpAddr,
			swaggerPath:   swaggerPath,
			topic:         topic,
			consumerGroup: consumerGroup,
		},
		svc:      svc,
		consumer: consumer,
		closers: []func(){
			closeRL,
			st.Close,
		},
	}
}

// newAPIRegistry builds the providers used by live checks. Without a Redis
// host the providers run unthrottled.
func newAPIRegistry(cfg *config.Config) (*status.Registry, func(), error) {
	var rl status.RateLimiter
	closeRL := func() {}
	if cfg.Redis.Host != "" {
		r := rediscache.NewRateLimiter(fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port))
		rl = r
		closeRL = func() { _ = r.Close() }
	}

	reg, err := vendors.NewRegistry(cfg.Providers, rl)
	if err != nil {
		closeRL()
		return nil, nil, err
	}
	return reg, closeRL, nil
}

func postgresConnString(db config.DatabaseConfig) string {
	sslMode := db.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.Username, db.Password, db.Host, db.Port, db.DBName, sslMode)
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgorders.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgorders.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *apiApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	for _, c := range a.closers {
		c()
	}
}

func (a *apiApp) Run() error {
	return runAPI(a.ctx, a.opts, a.svc, a.consumer)
}
