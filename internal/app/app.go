package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"go-ecoforum/internal/config"
	"go-ecoforum/internal/database"
	"go-ecoforum/internal/event"
	"go-ecoforum/internal/handler"
	"go-ecoforum/internal/middleware"
	"go-ecoforum/internal/model"
	"go-ecoforum/internal/repository"
	"go-ecoforum/internal/router"
	"go-ecoforum/internal/service"
	"go-ecoforum/internal/websocket"
)

type App struct {
	server       *http.Server
	bus          event.Bus
	hub          *websocket.Hub
	forwarder    *event.AMQPForwarder
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), database.Options{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	recycleRepo := repository.NewRecycleRepository(pool)
	reportRepo := repository.NewReportRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	threadRepo := repository.NewThreadRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	entityRepo, err := repository.NewEntityRepository(pool, cfg.SoftDeleteTables)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to register soft-deletable tables: %w", err)
	}
	slog.Info("database ready", "soft_delete_tables", entityRepo.Tables())

	cleanupFuncs := []func(){}

	bus := event.NewBus()
	hub := websocket.NewHub(bus)

	var forwarder *event.AMQPForwarder
	if cfg.AMQPURL != "" {
		forwarder, err = event.DialAMQP(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to broker: %w", err)
		}
		cleanupFuncs = append(cleanupFuncs, func() {
			if err := forwarder.Close(); err != nil {
				slog.Warn("close broker connection", "error", err)
			}
		})
		slog.Info("forwarding events to broker", "queue", cfg.AMQPQueue)
	}

	tokenService := service.NewTokenService(cfg.JWTSecret)
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	clock := service.RealClock{}
	recycleService := service.NewRecycleService(db.TxManager(), recycleRepo, entityRepo, bus, clock)
	reportService := service.NewReportService(reportRepo, threadRepo, commentRepo, bus, clock)
	commentService := service.NewCommentService(commentRepo, threadRepo, bus, clock)
	auditService := service.NewAuditService(auditRepo, clock)
	authorizer := service.NewAuthorizer(commentRepo, entityRepo)

	paging := model.PageLimits{Default: cfg.DefaultPageSize, Max: cfg.MaxPageSize}
	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Recycle: handler.NewRecycleHandler(recycleService, authorizer, auditService, paging),
		Report:  handler.NewReportHandler(reportService, authorizer, auditService, paging),
		Comment: handler.NewCommentHandler(commentService, authorizer, auditService, paging),
		Audit:   handler.NewAuditHandler(auditService, authorizer, paging),
		Feed:    handler.NewFeedHandler(hub, authorizer, cfg.CORSOrigins),
		Health:  handler.NewHealthHandler(pool),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:       server,
		bus:          bus,
		hub:          hub,
		forwarder:    forwarder,
		cleanupFuncs: append(cleanupFuncs, db.Close),
	}, nil
}

// Run serves until SIGINT/SIGTERM or until the server or a background worker
// fails, then shuts down in order: HTTP first, workers next, the pool last.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})
	if a.forwarder != nil {
		g.Go(func() error {
			a.forwarder.Run(gctx, a.bus)
			return nil
		})
	}

	g.Go(func() error {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	runErr := g.Wait()

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if runErr != nil {
		return runErr
	}

	slog.Info("server stopped")
	return nil
}
