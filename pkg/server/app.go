package server

import (
	"context"
	"time"

	xhttp "Moatline/pkg/http"
	pkgkafka "Moatline/pkg/kafka"
	applogger "Moatline/pkg/logger"
)

// App owns the long-running parts of the service: the HTTP server and,
// when configured, the Kafka consumer.
type App struct {
	l               *applogger.Logger
	httpServer      *xhttp.Server
	consumer        *pkgkafka.Consumer
	handlers        []pkgkafka.MessageHandler
	shutdownTimeout time.Duration
}

// New creates an App. consumer may be nil; handlers are registered on it
// before it starts.
func New(l *applogger.Logger, httpServer *xhttp.Server, consumer *pkgkafka.Consumer, shutdownTimeout time.Duration, handlers ...pkgkafka.MessageHandler) *App {
	if l == nil {
		l = applogger.Nop()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &App{
		l:               l,
		httpServer:      httpServer,
		consumer:        consumer,
		handlers:        handlers,
		shutdownTimeout: shutdownTimeout,
	}
}

// Run starts every component and blocks until ctx is cancelled or the HTTP
// server fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	if a.consumer != nil && len(a.handlers) > 0 {
		topics := make([]string, 0, len(a.handlers))
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			topics = append(topics, h.Topic())
		}
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.l.Info("kafka consumer started", applogger.Strings("topics", topics))
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		a.shutdown()
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
	case runErr = <-a.httpServer.Errors():
		a.l.Error("http server failed", applogger.Error(runErr))
	}
	a.shutdown()
	return runErr
}

// shutdown stops HTTP, then Kafka. Stores, caches and producers are closed
// by the DI cleanup.
func (a *App) shutdown() {
	a.l.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	a.l.Info("shutdown complete")
}
