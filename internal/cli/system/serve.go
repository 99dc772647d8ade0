package system

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/keeprun/internal/auth"
	"github.com/julianstephens/keeprun/internal/cleanup"
	"github.com/julianstephens/keeprun/internal/cli"
	"github.com/julianstephens/keeprun/internal/config"
	"github.com/julianstephens/keeprun/internal/habit"
	"github.com/julianstephens/keeprun/internal/logger"
	"github.com/julianstephens/keeprun/internal/metrics"
	"github.com/julianstephens/keeprun/internal/server"
	"github.com/julianstephens/keeprun/internal/settings"
)

type ServeCmd struct {
	Listen string `help:"Listen address (overrides the config file)."`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	cfg, err := config.Load(ctx.ConfigPath)
	if err != nil {
		return err
	}
	if c.Listen != "" {
		cfg.Server.Listen = c.Listen
	}

	if err := logger.Init(logger.Config{
		Debug:     ctx.Debug,
		ConfigDir: ctx.ConfigDir,
		JSON:      cfg.Server.JSONLogs,
		Stderr:    true,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if !ctx.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	secret, err := cfg.JWTSecret(os.Getenv)
	if err != nil {
		return err
	}
	verifier, err := auth.NewVerifier(secret, auth.Options{
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		Leeway:   cfg.Auth.Leeway,
	})
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cache settings.Cache = settings.NewMemoryCache(cfg.Cache.TTL, nil)
	if cfg.Cache.RedisAddr != "" {
		rc, err := settings.NewRedisCache(runCtx, cfg.Cache.RedisAddr, cfg.Cache.TTL)
		if err != nil {
			return err
		}
		defer rc.Close()
		cache = rc
		logger.Info("Using redis settings cache", "addr", cfg.Cache.RedisAddr)
	}

	rec := metrics.NewPrometheusRecorder()
	svc := settings.NewService(ctx.Store, cache)
	engine := habit.NewEngine(ctx.Store, habit.Options{
		Settings:           svc,
		Recorder:           rec,
		UnlockAfterAbandon: cfg.Habits.UnlockAfterAbandon,
	})

	router := server.NewRouter(server.RouterConfig{
		Verifier:        verifier,
		Users:           ctx.Store,
		Observer:        rec,
		Metrics:         rec.Handler(),
		CORSOrigins:     cfg.Server.CORSOrigins,
		Ready:           ctx.Store.Ping,
		HabitHandler:    server.NewHabitHandler(engine),
		SettingsHandler: server.NewSettingsHandler(svc),
		PlannerHandler:  server.NewPlannerHandler(ctx.Store, svc, nil),
	})
	srv := server.NewServer(cfg.Server.Listen, router, cfg.Server.ShutdownTimeout)

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if cfg.Cleanup.Enabled {
		runner := cleanup.NewRunner(ctx.Store, cfg.Cleanup.RetentionDays, nil, rec)
		g.Go(func() error {
			return runner.Start(gctx, cfg.Cleanup.Interval)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
