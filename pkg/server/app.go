package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"WindowOpt/internal/usecase"
	"WindowOpt/pkg/config"
	xhttp "WindowOpt/pkg/http"
	pkgkafka "WindowOpt/pkg/kafka"
	applogger "WindowOpt/pkg/logger"
	"WindowOpt/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	queue      *queue.RedisQueue
	svc        *usecase.OptimizedSymbolService
	l          *applogger.Logger

	cancel context.CancelFunc
	warm   sync.WaitGroup
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	q *queue.RedisQueue,
	svc *usecase.OptimizedSymbolService,
	l *applogger.Logger,
) *App {
	return &App{
		cfg:        cfg,
		httpServer: httpServer,
		consumer:   consumer,
		kh:         kh,
		queue:      q,
		svc:        svc,
		l:          l,
	}
}

// Start launches the consumers, the HTTP server and the warm-up pass.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	if a.consumer != nil && a.kh != nil {
		if err := a.consumer.RegisterHandler(a.kh); err != nil {
			return fmt.Errorf("register refresh handler: %w", err)
		}
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			return fmt.Errorf("refresh queue: %w", err)
		}
	}

	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	if len(a.cfg.Optimizer.Symbols) > 0 {
		a.warm.Add(1)
		go func() {
			defer a.warm.Done()
			a.warmUp(ctx)
		}()
	}
	return nil
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := a.Start(context.Background()); err != nil {
		a.l.Error("startup failed", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// warmUp resolves every configured symbol so the first API reads hit the store.
func (a *App) warmUp(ctx context.Context) {
	period := a.cfg.Optimizer.DefaultPeriod
	start := time.Now()
	ok := 0
	for _, sym := range a.cfg.Optimizer.Symbols {
		if ctx.Err() != nil {
			return
		}
		if _, err := a.svc.Resolve(ctx, sym, period); err != nil {
			a.l.Warn("warm-up failed", applogger.String("symbol", sym), applogger.Error(err))
			continue
		}
		ok++
	}
	a.l.Info("warm-up complete",
		applogger.Int("symbols", len(a.cfg.Optimizer.Symbols)),
		applogger.Int("resolved", ok),
		applogger.Duration("took", time.Since(start)))
}

// Shutdown gracefully stops all services. Infrastructure clients are closed by
// the cleanup returned from the injector.
func (a *App) Shutdown(ctx context.Context) error {
	a.l.Info("shutting down...")
	if a.cancel != nil {
		a.cancel()
	}

	var firstErr error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		firstErr = err
	}

	if a.consumer != nil {
		stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.consumer.Stop(stopCtx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if a.queue != nil {
		stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.queue.Stop(stopCtx); err != nil {
			a.l.Warn("refresh queue stop error", applogger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	a.warm.Wait()
	a.l.Info("shutdown complete")
	return firstErr
}
