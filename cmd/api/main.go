package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanwahyu/reqverify/internal/application"
	appanalysis "github.com/bryanwahyu/reqverify/internal/application/analysis"
	"github.com/bryanwahyu/reqverify/internal/config"
	domain "github.com/bryanwahyu/reqverify/internal/domain/analysis"
	"github.com/bryanwahyu/reqverify/internal/infra/ai/ollama"
	"github.com/bryanwahyu/reqverify/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/reqverify/internal/infra/storage"
	"github.com/bryanwahyu/reqverify/internal/logging"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("dotenv error: %v", err)
	}

	path := os.Getenv("CONFIG_PATH")
	flag.StringVar(&path, "config", path, "path to config.yaml (empty = defaults + env)")
	flag.Parse()

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, closer, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		log.Fatalf("logging init error: %v", err)
	}
	defer closer.Close()

	ctx := context.Background()

	repo, db, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("repository init failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	var reports domain.ReportStore
	if cfg.Minio.Enabled() {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			logger.Error("minio init failed", "error", err)
			os.Exit(1)
		}
		reports = store
	}

	svc := &appanalysis.Service{
		Selector:  appanalysis.NewSelector(cfg.Providers, logger),
		Repo:      repo,
		Reports:   reports,
		Clock:     application.SystemClock{},
		Log:       logger.With("component", "analysis"),
		OutputDir: cfg.Output.Dir,
	}

	daemon := ollama.NewClient(cfg.Providers.Ollama.BaseURL, cfg.Providers.Ollama.Model, cfg.Providers.Ollama.Timeout)
	handler := httpserver.NewRouter(svc, httpserver.Options{
		APIKeys:        cfg.Server.APIKeys,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadMB:    cfg.Server.MaxUploadMB,
		SourceRoots:    cfg.Server.SourceRoots,
		Checkers:       healthCheckers(db, daemon),
		OptionalChecks: []string{"ollama"},
		Log:            logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		// an analysis may wait on the local daemon for its full timeout
		WriteTimeout: cfg.Providers.Ollama.Timeout + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
