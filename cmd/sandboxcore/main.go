package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sandboxcore/internal/cache"
	"sandboxcore/internal/config"
	"sandboxcore/internal/coordinator"
	"sandboxcore/internal/health"
	"sandboxcore/internal/logging"
	"sandboxcore/internal/objectstore"
	"sandboxcore/internal/pool"
	"sandboxcore/internal/runtime"
	"sandboxcore/internal/sandbox"
	"sandboxcore/internal/session"
)

// app bundles every assembled component. The HTTP surface this binary
// owns is limited to /healthz and /metrics; app.Coordinator is exported
// for an execution-routing surface that lives outside this repo's
// boundary to drive.
type app struct {
	Adapter     *runtime.DockerAdapter
	Manager     *sandbox.Manager
	Pool        *pool.Pool
	Sessions    *session.Registry
	Store       *objectstore.Client
	Health      *health.Service
	Coordinator *coordinator.Coordinator
	redis       *cache.GoRedisAdapter
}

func assemble(ctx context.Context, log *zap.Logger) (*app, error) {
	runtimeCfg := config.DefaultRuntimeConfig()
	sandboxCfg := config.DefaultSandboxConfig()
	poolCfg := config.DefaultPoolConfig()
	healthCfg := config.DefaultHealthConfig()
	objectStoreCfg := config.DefaultObjectStoreConfig()
	redisCfg := config.DefaultRedisConfig()

	resolver := runtime.ImageResolverConfig{
		Configured:   map[string]string{},
		LocalPrefix:  sandboxCfg.ImagePrefixLocal,
		PublicPrefix: sandboxCfg.ImagePrefixPublic,
	}
	adapter, err := runtime.NewDockerAdapter(runtimeCfg.DockerHost, resolver)
	if err != nil {
		return nil, err
	}

	mgr := sandbox.New(adapter, sandboxCfg, runtimeCfg)

	p := pool.New(mgr, adapter, poolCfg)
	p.Warmup(ctx)
	go p.RunRefillLoop(ctx)

	sessions := session.New(30 * time.Minute)

	store, err := objectstore.New(ctx, objectStoreCfg)
	if err != nil {
		return nil, err
	}

	var redisAdapter *cache.GoRedisAdapter
	var healthCache *cache.TTLCache
	if redisCfg.URL != "" {
		redisAdapter, err = cache.NewGoRedisClient(redisCfg.URL)
		if err != nil {
			log.Warn("redis unavailable, health/result cache running in-memory only", logging.Err(err)...)
			healthCache = cache.New(cache.DefaultConfig())
		} else {
			healthCache = cache.NewWithClient(redisAdapter, cache.DefaultConfig())
		}
	} else {
		healthCache = cache.New(cache.DefaultConfig())
	}

	var kvProbe health.KV
	if redisAdapter != nil {
		kvProbe = redisAdapter
	}
	healthSvc := health.New(kvProbe, store, adapter, p, healthCfg, healthCache)

	coord := coordinator.New(p, sessions, store)

	return &app{
		Adapter:     adapter,
		Manager:     mgr,
		Pool:        p,
		Sessions:    sessions,
		Store:       store,
		Health:      healthSvc,
		Coordinator: coord,
		redis:       redisAdapter,
	}, nil
}

func (a *app) router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		report, err := a.Health.CheckAll(c.Request.Context(), true)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		status := http.StatusOK
		if report.Overall == health.Unhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func (a *app) close(ctx context.Context) {
	a.Pool.Close(ctx)
	_ = a.Adapter.Close()
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			// No .env file anywhere in scope; continue on the real
			// process environment, same as the teacher's bootstrap.
		}
	}

	logging.Init()
	defer logging.Sync()
	log := logging.L()
	log.Info("starting sandboxcore execution dispatch core")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := assemble(ctx, log)
	if err != nil {
		log.Fatal("assembly failed", logging.Err(err)...)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http surface listening", zap.String("port", port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", logging.Err(err)...)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	a.close(shutdownCtx)
}
