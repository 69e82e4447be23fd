package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/FilmTrack/config"
	"github.com/BearBump/FilmTrack/internal/broker/kafka"
	"github.com/BearBump/FilmTrack/internal/broker/messages"
	"github.com/BearBump/FilmTrack/internal/cache/rediscache"
	"github.com/BearBump/FilmTrack/internal/integrations/status"
	"github.com/BearBump/FilmTrack/internal/integrations/status/vendors"
	"github.com/BearBump/FilmTrack/internal/services/batch"
	"github.com/BearBump/FilmTrack/internal/services/poller"
	"github.com/BearBump/FilmTrack/internal/storage/pgorders"
)

type workerFactories struct {
	newStorage     func(cfg *config.Config) (repo poller.Repository, closeFn func(), err error)
	newProducer    func(cfg *config.Config) (producer poller.Producer, closeFn func())
	newRateLimiter func(cfg *config.Config) (rl status.RateLimiter, closeFn func())
	newRegistry    func(cfg *config.Config, rl status.RateLimiter) (*status.Registry, error)
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (poller.Repository, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pgorders.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) (poller.Producer, func()) {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			p := kafka.NewProducer(brokers)
			return p, func() { _ = p.Close() }
		},
		newRateLimiter: func(cfg *config.Config) (status.RateLimiter, func()) {
			if cfg.Redis.Host == "" {
				return nil, nil
			}
			rl := rediscache.NewRateLimiter(fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port))
			return rl, func() { _ = rl.Close() }
		},
		newRegistry: func(cfg *config.Config, rl status.RateLimiter) (*status.Registry, error) {
			return vendors.NewRegistry(cfg.Providers, rl)
		},
	}
}

// workerSettings are the effective poller settings after defaults.
type workerSettings struct {
	Topic            string `json:"topic"`
	PollInterval     string `json:"pollInterval"`
	BatchSize        int    `json:"batchSize"`
	FetchConcurrency int    `json:"fetchConcurrency"`
	Lease            string `json:"lease"`

	NextCheckProcessingMin string `json:"nextCheckProcessingMin"`
	NextCheckProcessingMax string `json:"nextCheckProcessingMax"`
	NextCheckUnknown       string `json:"nextCheckUnknown"`
	NextCheckError         string `json:"nextCheckError"`
	NextCheckDone          string `json:"nextCheckDone"`

	Providers []string `json:"providers"`
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func buildPoller(cfg *config.Config, repo poller.Repository, producer poller.Producer, reg *status.Registry) (*poller.Poller, workerSettings) {
	topic := cfg.Kafka.StatusUpdatedTopic
	if topic == "" {
		topic = messages.DefaultStatusUpdatedTopic
	}
	pollInterval := seconds(cfg.FilmTrack.WorkerPollIntervalSeconds)
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	batchSize := cfg.FilmTrack.WorkerBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	concurrency := cfg.FilmTrack.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	lease := seconds(cfg.FilmTrack.WorkerLeaseSeconds)
	if lease <= 0 {
		lease = 120 * time.Second
	}

	// normalized once so /config shows the delays actually in use
	pc := poller.NewPlanner(poller.PlannerConfig{
		DoneDelay:          seconds(cfg.FilmTrack.WorkerNextCheckDoneSeconds),
		ProcessingMinDelay: seconds(cfg.FilmTrack.WorkerNextCheckProcessingMinSeconds),
		ProcessingMaxDelay: seconds(cfg.FilmTrack.WorkerNextCheckProcessingMaxSeconds),
		UnknownDelay:       seconds(cfg.FilmTrack.WorkerNextCheckUnknownSeconds),
		ErrorDelay:         seconds(cfg.FilmTrack.WorkerNextCheckErrorSeconds),
	}, nil).Config()

	fetcher := batch.New(reg).WithConcurrency(concurrency)
	p := poller.New(repo, fetcher, producer, topic).
		WithSettings(pollInterval, batchSize, lease).
		WithPlanner(pc)

	return p, workerSettings{
		Topic:                  topic,
		PollInterval:           pollInterval.String(),
		BatchSize:              batchSize,
		FetchConcurrency:       concurrency,
		Lease:                  lease.String(),
		NextCheckProcessingMin: pc.ProcessingMinDelay.String(),
		NextCheckProcessingMax: pc.ProcessingMaxDelay.String(),
		NextCheckUnknown:       pc.UnknownDelay.String(),
		NextCheckError:         pc.ErrorDelay.String(),
		NextCheckDone:          pc.DoneDelay.String(),
		Providers:              reg.IDs(),
	}
}

func RunWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	repo, closeStorage, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeStorage != nil {
		defer closeStorage()
	}

	producer, closeProducer := f.newProducer(cfg)
	if closeProducer != nil {
		defer closeProducer()
	}
	rl, closeRL := f.newRateLimiter(cfg)
	if closeRL != nil {
		defer closeRL()
	}

	reg, err := f.newRegistry(cfg, rl)
	if err != nil {
		return err
	}

	p, settings := buildPoller(cfg, repo, producer, reg)
	slog.Info("filmtrack worker started",
		"topic", settings.Topic,
		"poll_interval", settings.PollInterval,
		"batch_size", settings.BatchSize,
		"providers", settings.Providers)

	if cfg.FilmTrack.WorkerHTTPAddr == "" {
		return p.Run(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpErr := make(chan error, 1)
	go func() {
		err := runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr: cfg.FilmTrack.WorkerHTTPAddr,
			poller:   p,
			settings: &settings,
		})
		if err != nil && ctx.Err() == nil {
			slog.Error("worker http server", "error", err.Error())
			cancel()
		}
		httpErr <- err
	}()

	err = p.Run(ctx)
	cancel()
	if hErr := <-httpErr; hErr != nil {
		return hErr
	}
	return err
}
