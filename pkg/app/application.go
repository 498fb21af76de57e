package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/sync/errgroup"

	"parkly/pkg/auth"
	"parkly/pkg/config"
	"parkly/pkg/contracts"
	"parkly/pkg/middleware"
)

// Worker is a long-running background loop such as a queue consumer. It
// must return when ctx is cancelled.
type Worker struct {
	Name string
	Run  func(ctx context.Context) error
}

type closer struct {
	name string
	fn   func() error
}

type Application struct {
	cfg              *config.Config
	server           *http.Server
	idempotencyStore middleware.IdempotencyStore
	rateLimiter      *middleware.ClientRateLimiter
	healthHandler    http.Handler
	appHttpHandler   http.Handler
	readiness        []ReadinessCheck
	workers          []Worker
	closers          []closer
}

func NewApplication(cfg *config.Config) *Application {
	return &Application{cfg: cfg}
}

func (a *Application) AddReadinessCheck(check ReadinessCheck) {
	a.readiness = append(a.readiness, check)
}

func (a *Application) AddWorker(w Worker) {
	a.workers = append(a.workers, w)
}

// OnShutdown registers fn to run after the server and workers stopped.
// Closers run in reverse registration order.
func (a *Application) OnShutdown(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// SetApp wires the HTTP surface. A nil appHandler serves health endpoints
// only.
func (a *Application) SetApp(appHandler contracts.Handler) {
	a.setHealthHandler()
	if appHandler != nil {
		a.setAppHandler(appHandler)
	}
	a.setAppServer()
}

func (a *Application) setHealthHandler() {
	healthRouter := httprouter.New()
	healthHandler := NewHealthHandler(a.cfg.Client.Mongo, a.cfg.Log, a.readiness...)
	healthHandler.RegisterRoutes(healthRouter)

	var healthHTTPHandler http.Handler = healthRouter
	healthHTTPHandler = middleware.RequestLogging(a.cfg.Log)(healthHTTPHandler)
	healthHTTPHandler = middleware.Recovery(a.cfg.Log)(healthHTTPHandler)
	a.healthHandler = healthHTTPHandler
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(appHandler contracts.Handler) {
	cfg := a.cfg
	if cfg.JWTSecret == "" {
		cfg.Log.Fatal("JWT_SECRET is required for services exposing an API")
	}

	appRouter := httprouter.New()
	appHandler.RegisterRoutes(appRouter)

	if cfg.Client.Redis != nil {
		a.idempotencyStore = middleware.NewRedisIdempotencyStore(cfg.Client.Redis, cfg.IdempotencyTTL, cfg.Log)
		cfg.Log.Info("Idempotency records stored in Redis")
	} else {
		a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(cfg.IdempotencyTTL)
		cfg.Log.Info("Idempotency records stored in memory")
	}
	a.rateLimiter = middleware.NewClientRateLimiter(
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
		identityOrAddr,
		cfg.Log,
	)

	var appHttpHandler http.Handler = appRouter
	appHttpHandler = middleware.Idempotency(a.idempotencyStore, middleware.DefaultIdempotencyHeader, auth.Subject)(appHttpHandler)
	appHttpHandler = middleware.RequestTimeout(cfg.RequestTimeout, cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.RateLimit(a.rateLimiter)(appHttpHandler)
	appHttpHandler = auth.Authenticate(auth.NewVerifier(cfg.JWTSecret), cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.ContentTypeValidation(cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.MaxRequestSize(int64(cfg.MaxRequestSize))(appHttpHandler)
	appHttpHandler = middleware.RequestLogging(cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.Recovery(cfg.Log)(appHttpHandler)
	a.appHttpHandler = appHttpHandler
	cfg.Log.Info("Application endpoints configured with full security middleware stack")
}

func identityOrAddr(r *http.Request) string {
	if s := auth.Subject(r); s != "" {
		return s
	}
	return middleware.RemoteAddrExtractor(r)
}

func (a *Application) setAppServer() {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	if a.appHttpHandler != nil {
		mux.Handle("/", a.appHttpHandler)
	}

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Run serves HTTP and runs workers until a signal arrives or any of them
// fails, then shuts everything down.
func (a *Application) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	for _, w := range a.workers {
		w := w
		g.Go(func() error {
			a.cfg.Log.Info("Starting background worker", "worker", w.Name)
			err := w.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				a.cfg.Log.Error("Background worker stopped", "worker", w.Name, "error", err)
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.cfg.Log.Info("Shutdown signal received")
		a.gracefulShutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		a.runClosers()
		a.cfg.Log.Fatal("Application stopped with error", "error", err)
	}
	a.runClosers()
	a.cfg.Log.Info("Application stopped")
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Error("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Stopping background workers...")
	if a.idempotencyStore != nil {
		a.idempotencyStore.Stop()
	}
	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}
	a.cfg.Log.Info("Server stopped gracefully")
}

func (a *Application) runClosers() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.cfg.Log.Error("Shutdown hook failed", "hook", c.name, "error", err)
		}
	}
	a.cfg.GracefulShutdown()
}
