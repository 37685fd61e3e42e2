package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autograder/internal/common/cache"
	commonmw "autograder/internal/common/http/middleware"
	"autograder/internal/common/storage"
	"autograder/internal/grader/controller"
	"autograder/internal/grader/metadata"
	"autograder/internal/grader/sandbox"
	"autograder/internal/grader/sandbox/config"
	"autograder/internal/grader/sandbox/engine"
	"autograder/internal/grader/sandbox/runner"
	"autograder/internal/grader/service"
	"autograder/internal/grader/source"
	"autograder/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/grader_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	envFile := flag.String("env", ".env", "Optional dotenv file with secrets")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(appCfg); err != nil {
		logger.Error(context.Background(), "grader service stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(appCfg *AppConfig) error {
	ctx := context.Background()
	if err := os.MkdirAll(appCfg.Grader.WorkRoot, 0755); err != nil {
		return fmt.Errorf("create work root failed: %w", err)
	}

	langRepo := config.NewLocalRepository(appCfg.Languages)
	eng := engine.NewEngine(engine.Config{
		MaxOutputBytes: appCfg.Grader.MaxOutputBytes,
		WaitDelay:      appCfg.Grader.WaitDelay,
	})
	worker := sandbox.NewWorker(runner.NewRunner(eng), langRepo, sandbox.WorkerConfig{
		CaseTimeout:    appCfg.Grader.CaseTimeout,
		CompileTimeout: appCfg.Grader.CompileTimeout,
	})

	var archive source.Materializer
	if appCfg.MinIO.Endpoint != "" {
		objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
		if err != nil {
			return fmt.Errorf("init minio failed: %w", err)
		}
		archive = source.NewArchiveMaterializer(objStorage, appCfg.Archive.MaxBytes, appCfg.Archive.MaxExtractedBytes)
	}
	materializer := source.NewRouter(source.NewGitMaterializer(appCfg.Git), archive)

	github := metadata.NewGitHubFetcher(appCfg.GitHub)
	var fetcher metadata.Fetcher = github
	if appCfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCacheWithConfig(appCfg.Redis)
		if err != nil {
			return fmt.Errorf("init redis failed: %w", err)
		}
		defer func() {
			_ = redisCache.Close()
		}()
		fetcher = metadata.NewCachedFetcher(github, redisCache, appCfg.GitHub.CacheTTL)
	}

	graderSvc, err := service.NewService(service.Config{
		Grader:      worker,
		Languages:   langRepo,
		Source:      materializer,
		Metadata:    fetcher,
		WorkRoot:    appCfg.Grader.WorkRoot,
		PoolSize:    appCfg.Grader.PoolSize,
		AcquireWait: appCfg.Grader.AcquireWait,
	})
	if err != nil {
		return fmt.Errorf("init grader service failed: %w", err)
	}

	httpServer := buildHTTPServer(appCfg, controller.NewGraderController(graderSvc))
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("init http listener failed: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "grader http server started",
			zap.String("addr", appCfg.Server.Addr),
			zap.Strings("languages", langRepo.IDs()),
			zap.Int("pool_size", appCfg.Grader.PoolSize),
		)
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server stopped: %w", err)
		}
		return nil
	case <-shutdownCtx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

func buildHTTPServer(appCfg *AppConfig, graderController *controller.GraderController) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(commonmw.CORSMiddleware(appCfg.CORS))
	router.Use(requestLogger())

	controller.RegisterRoutes(router, graderController)

	return &http.Server{
		Addr:         appCfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  appCfg.Server.ReadTimeout,
		WriteTimeout: appCfg.Server.WriteTimeout,
		IdleTimeout:  appCfg.Server.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
