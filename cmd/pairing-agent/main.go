package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/rustinsight/pairing-agent/handlers"
	"github.com/rustinsight/pairing-agent/internal/capture"
	"github.com/rustinsight/pairing-agent/internal/cloudsync"
	"github.com/rustinsight/pairing-agent/internal/config"
	"github.com/rustinsight/pairing-agent/internal/engine"
	"github.com/rustinsight/pairing-agent/internal/notify"
	"github.com/rustinsight/pairing-agent/internal/pairing"
	"github.com/rustinsight/pairing-agent/internal/session"
	"github.com/rustinsight/pairing-agent/internal/surface"
	"github.com/rustinsight/pairing-agent/pkg/logger"
	"github.com/rustinsight/pairing-agent/pkg/metrics"
	"github.com/rustinsight/pairing-agent/pkg/middleware"
)

var startTime = time.Now()

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: cloud=%v engine=%v redis=%v", cfg.Cloud.AuthURL != "", cfg.Engine.Command != "", cfg.Redis.Host != "")

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// The UI runs on a different local origin than the agent, so commands
	// arrive as cross-origin requests. The API binds to loopback only.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})

	// Global middlewares: logging + recovery
	r.Use(gin.Logger(), gin.Recovery())

	// Connect to Redis early; the repositories and the rate limiter share it.
	var importedRedis *redis.Client
	if cfg.Redis.Host != "" {
		importedRedis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := importedRedis.Ping(context.Background()).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v, falling back to in-memory state", cfg.Redis.Host, cfg.Redis.Port, err)
			importedRedis = nil
		} else {
			logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && importedRedis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(importedRedis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Choose persistence: Redis when available, process memory otherwise.
	var sessionRepo session.Repository
	var pairRepo pairing.Repository
	if importedRedis != nil {
		sessionRepo = session.NewRedisRepository(importedRedis, "cloud:session")
		pairRepo = pairing.NewRedisRepository(importedRedis, "pairing:")
		logger.Infof("Using Redis for session and pairing storage")
	} else {
		sessionRepo = session.NewMemoryRepository()
		pairRepo = pairing.NewMemoryRepository()
		logger.Infof("Using in-memory session and pairing storage (state is lost on exit)")
	}

	userDataDir := ""
	if cacheDir, err := os.UserCacheDir(); err == nil {
		userDataDir = filepath.Join(cacheDir, "pairing-agent", "surface")
	}
	browser := surface.NewBrowser(userDataDir, cfg.Capture.Headless)

	capturer := capture.New(browser, cfg.Capture.Timeout, cfg.Capture.Grace)
	sessions := session.NewManager(sessionRepo, browser, cfg.Cloud.WebAppURL, cfg.Cloud.AuthURL, cfg.Cloud.AnonKey)
	notifier := notify.NewNotifier()
	orch := pairing.NewOrchestrator(
		pairRepo,
		notifier,
		capturer,
		engine.ProcessFactory(cfg.Engine.Command, cfg.Engine.Args...),
		cfg.Capture.LoginURL,
	)
	syncClient := cloudsync.NewClient(sessionRepo, sessions, pairRepo)

	api := r.Group("/api")
	handlers.NewAuthHandler(sessions).Register(api)
	handlers.NewPairingHandler(orch, pairRepo).Register(api)
	handlers.NewSyncHandler(syncClient, cfg.Cloud.WebAppURL).Register(api)
	handlers.NewEventsHandler(notifier).Register(api)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"state":   orch.State().String(),
			"uptime":  time.Since(startTime).String(),
			"version": version,
		})
	})

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	// No write timeout: login requests and the event stream stay open for
	// as long as the user takes.
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting pairing agent on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Infof("shutting down")

	// The engine helper must not outlive the agent.
	if err := orch.Close(); err != nil {
		logger.Warnf("shutdown: stopping pairing: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
