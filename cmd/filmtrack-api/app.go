package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/FilmTrack/internal/api/ordersapi"
	"github.com/BearBump/FilmTrack/internal/broker/messages"
	"github.com/BearBump/FilmTrack/internal/services/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type apiOpts struct {
	httpAddr    string
	swaggerPath string

	topic         string
	consumerGroup string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

func runAPI(ctx context.Context, opts apiOpts, svc *orders.Service, consumer kafkaConsumer) error {
	if opts.swaggerPath != "" {
		if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
			return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
		}
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runHTTPServer(ctx, lis, newRouter(ordersapi.New(svc), opts.swaggerPath))
	}()

	consumerErr := make(chan error, 1)
	go func() {
		slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
		consumerErr <- consumer.Consume(ctx, statusUpdateHandler(ctx, svc))
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return err
	case err := <-consumerErr:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(err, "kafka consumer")
	}
}

// statusUpdateHandler applies worker results. Messages that cannot be decoded
// are logged and skipped so they do not block the partition.
func statusUpdateHandler(ctx context.Context, svc *orders.Service) func(key, value []byte) error {
	return func(key, value []byte) error {
		var m messages.FilmStatusUpdated
		if err := json.Unmarshal(value, &m); err != nil {
			slog.Warn("skip undecodable status update", "key", string(key), "error", err.Error())
			return nil
		}
		if err := svc.ApplyStatusUpdate(ctx, m); err != nil {
			if errors.Is(err, orders.ErrValidation) {
				slog.Warn("skip invalid status update", "event_id", m.EventID, "error", err.Error())
				return nil
			}
			return err
		}
		return nil
	}
}

func newRouter(api *ordersapi.OrdersAPI, swaggerPath string) http.Handler {
	r := chi.NewRouter()
	r.Use(ordersapi.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(ordersapi.AccessLog)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if swaggerPath != "" {
		r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, swaggerPath)
		})
		r.Get("/docs/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger.json"),
		))
	}

	api.Routes(r)
	return r
}

func runHTTPServer(ctx context.Context, lis net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
