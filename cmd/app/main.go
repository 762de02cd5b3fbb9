package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	cfgpkg "github.com/Wislan-Pablo/resumopro.com.br/internal/config"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/httpapi"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/imageextract"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/limiter"
	logpkg "github.com/Wislan-Pablo/resumopro.com.br/internal/logger"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/metrics"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/storage"
	"github.com/Wislan-Pablo/resumopro.com.br/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	summaries, err := store.NewSummaryStore(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer summaries.Close()
	projects := store.NewProjectStore(summaries.Client())

	var blobs storage.BlobStore
	switch cfg.Storage.Backend {
	case "s3":
		blobs, err = storage.NewS3Store(context.Background(), cfg.Storage.S3Bucket, cfg.Storage.S3Prefix)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init s3 storage")
		}
	default:
		blobs, err = storage.NewLocalStore(cfg.Storage.LocalDir)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init local storage")
		}
	}

	extractor := imageextract.New(blobs, cfg.Editor.ExtractDPI)
	limits := limiter.New(summaries.Client(), limiter.Options{})

	api := httpapi.NewServer(blobs, summaries, projects, extractor, limits, cfg.Editor.MaxUploadMB)
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		log.Info().Msgf("HTTP server listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info().Msg("shutdown complete")
}
