package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/HackGT12/app-view-sub000/internal/assistant"
	"github.com/HackGT12/app-view-sub000/internal/auth"
	"github.com/HackGT12/app-view-sub000/internal/config"
	cronrunner "github.com/HackGT12/app-view-sub000/internal/cron"
	"github.com/HackGT12/app-view-sub000/internal/db"
	"github.com/HackGT12/app-view-sub000/internal/docstore"
	"github.com/HackGT12/app-view-sub000/internal/feed"
	"github.com/HackGT12/app-view-sub000/internal/guard"
	"github.com/HackGT12/app-view-sub000/internal/handler"
	"github.com/HackGT12/app-view-sub000/internal/logger"
	"github.com/HackGT12/app-view-sub000/internal/repository"
	"github.com/HackGT12/app-view-sub000/internal/scoring"
	"github.com/HackGT12/app-view-sub000/internal/service"
	"github.com/HackGT12/app-view-sub000/internal/sponsor"
	"github.com/HackGT12/app-view-sub000/internal/vote"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("LB_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("LB_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log, "livebetd")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var checks []handler.Check
	var store docstore.Store
	if strings.EqualFold(cfg.DB.Driver, "memory") {
		logger.Warn("using in-memory document store; data is lost on exit")
		store = docstore.NewMemoryStore()
	} else {
		dbConn, err := db.Open(cfg.DB, logger)
		if err != nil {
			logger.Fatal("db open failed", zap.Error(err))
		}
		defer dbConn.Close()

		if err := dbConn.SetTimezone(cfg.DB.Timezone); err != nil {
			logger.Warn("failed to set timezone", zap.Error(err))
		}
		if err := dbConn.AutoMigrate(); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
		store = docstore.NewPostgresStore(dbConn.Gorm)
		checks = append(checks, handler.Check{Name: "db", Ping: dbConn.Ping})
	}

	var claims guard.Guard
	if addr := strings.TrimSpace(cfg.Redis.Addr); addr != "" {
		rg := guard.NewRedisGuard(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Redis.GuardTTL)
		defer rg.Close()
		claims = rg
		checks = append(checks, handler.Check{Name: "redis", Ping: rg.Ping})
	} else {
		claims = guard.NewMemoryGuard(cfg.Redis.GuardTTL)
	}

	hub := feed.NewHub(feed.HubOptions{
		Buffer:         cfg.Feed.Buffer,
		WriteTimeout:   cfg.Feed.SendTimeout,
		OriginPatterns: cfg.Feed.OriginPatterns,
		Logger:         logger,
	})

	repo := repository.New(store, sponsor.NewRotation(cfg.Sponsors))
	roundSvc := &service.RoundService{Repo: repo, Publisher: hub, Guard: claims, Logger: logger, Config: cfg.Round}
	accountSvc := &service.AccountService{Repo: repo, Guard: claims, Logger: logger, StartingCoins: cfg.Round.StartingCoins}
	voteSvc := &vote.Service{Repo: repo, Guard: claims, Logger: logger}
	scoringSvc := &scoring.Service{Repo: repo, Logger: logger}
	if loc, err := time.LoadLocation(cfg.DB.Timezone); err == nil {
		scoringSvc.Location = loc
	}

	if err := accountSvc.SeedRewards(context.Background(), cfg.Rewards); err != nil {
		logger.Warn("seed rewards failed", zap.Error(err))
	}

	jwt := auth.JWT{Secret: []byte(cfg.Auth.JWTSecret), TokenTTL: cfg.Auth.TokenTTL}
	if cfg.Auth.Disabled {
		logger.Warn("auth disabled; X-Player-Id is trusted and every caller is admin")
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{Checks: checks}
	healthHandler.Register(engine)
	feedHandler := &handler.FeedHandler{Hub: hub}
	feedHandler.RegisterSocket(engine)

	api := engine.Group("/api/v1", auth.Middleware(jwt, cfg.Auth.Disabled))
	roundHandler := &handler.RoundHandler{Repo: repo, Rounds: roundSvc, Votes: voteSvc, Accounts: accountSvc}
	roundHandler.Register(api)
	teamHandler := &handler.TeamHandler{Repo: repo, Votes: voteSvc, Scoring: scoringSvc}
	teamHandler.Register(api)
	accountHandler := &handler.AccountHandler{Accounts: accountSvc, Scoring: scoringSvc, JWT: &jwt}
	accountHandler.Register(api)
	feedHandler.Register(api)
	ask := &assistant.Assistant{Timeout: cfg.Assist.Timeout, Logger: logger}
	if strings.TrimSpace(cfg.Assist.APIKey) != "" {
		ask.Completer = assistant.NewOpenAICompleter(cfg.Assist.APIKey, cfg.Assist.BaseURL, cfg.Assist.Model)
	}
	assistantHandler := &handler.AssistantHandler{Assistant: ask, Hub: hub}
	assistantHandler.Register(api)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled && cfg.Round.MaxOpen > 0 {
		_, err = cronRunner.Add("stale_sweep", cfg.Cron.StaleSweep, 30*time.Second, func(ctx context.Context) error {
			n, err := roundSvc.SweepStale(ctx)
			if n > 0 {
				logger.Info("stale rounds voided", zap.Int("count", n))
			}
			return err
		})
		if err != nil {
			logger.Warn("cron stale sweep add failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("http server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info("http server stopped")
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Player-Id,X-Player-Name")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Next()
	}
}
