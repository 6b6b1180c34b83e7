package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"gymatlas/internal/env"
	"gymatlas/internal/gymapi"
	"gymatlas/internal/handlers/gyms"
	"gymatlas/internal/logger"
	"gymatlas/internal/storage"
	"gymatlas/internal/store"
	"gymatlas/pkg/graceful"
)

func main() {
	env.Load()
	log := logger.New()

	ctx, cancel := graceful.Context(context.Background())
	defer cancel()

	base, err := url.Parse(env.MustGet("GYM_API_URL"))
	if err != nil {
		log.WithError(err).Fatal("invalid GYM_API_URL")
	}
	provider := gymapi.NewClient(base, nil)

	var annotations gyms.AnnotationStore
	if dsn := env.Get("DATABASE_URL", ""); dsn != "" {
		coordStore, err := store.New(ctx, dsn)
		if err != nil {
			log.WithError(err).Fatal("coordinate store init failed")
		}
		defer coordStore.Close()
		annotations = coordStore
	}

	var exporter gyms.Exporter
	exportBucket := env.Get("EXPORT_BUCKET", "")
	if exportBucket != "" {
		s3Service, err := storage.NewS3Service()
		if err != nil {
			log.WithError(err).Fatal("object storage init failed")
		}
		if err := s3Service.EnsureBucket(ctx, exportBucket, env.Get("MINIO_REGION", "")); err != nil {
			log.WithError(err).Fatal("export bucket init failed")
		}
		exporter = s3Service
	}

	mux := http.NewServeMux()
	handler := gyms.New(provider, annotations, exporter, exportBucket, log)
	handler.Register(mux)

	port := env.Get("PORT", "8080")
	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		log.WithField("port", port).Info("map server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown incomplete")
	}
	log.Info("map server exiting")
}
