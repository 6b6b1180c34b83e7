package main

import (
	"context"
	"net/url"

	"github.com/sirupsen/logrus"

	"gymatlas/internal/cache"
	"gymatlas/internal/enrich"
	"gymatlas/internal/env"
	"gymatlas/internal/gymapi"
	"gymatlas/internal/logger"
	"gymatlas/internal/resolve"
	"gymatlas/internal/service"
	"gymatlas/internal/storage"
	"gymatlas/internal/store"
	"gymatlas/pkg/graceful"
	"gymatlas/pkg/kafkaclient"
	"gymatlas/pkg/location"
)

func main() {
	env.Load()
	log := logger.New()

	ctx, cancel := graceful.Context(context.Background())
	defer cancel()

	kafkaBroker := env.MustGet("KAFKA_BROKER")
	kafkaTopic := env.MustGet("KAFKA_TOPIC")
	kafkaGroupID := env.MustGet("KAFKA_GROUP_ID")
	log.WithFields(logrus.Fields{
		"broker": kafkaBroker,
		"topic":  kafkaTopic,
		"group":  kafkaGroupID,
	}).Info("connecting to kafka")
	consumer := kafkaclient.NewConsumer(kafkaTopic, kafkaGroupID, kafkaBroker)

	s3Service, err := storage.NewS3Service()
	if err != nil {
		log.WithError(err).Fatal("object storage init failed")
	}

	coordStore, err := store.New(ctx, env.MustGet("DATABASE_URL"))
	if err != nil {
		log.WithError(err).Fatal("coordinate store init failed")
	}
	defer coordStore.Close()

	var resolutionCache resolve.ResolutionCache
	if addr := env.Get("REDIS_URL", ""); addr != "" {
		redisCache, err := cache.NewRedisCache(ctx, addr, env.GetDuration("GEOCODE_CACHE_TTL", cache.DefaultTTL))
		if err != nil {
			log.WithError(err).Warn("redis unavailable, resolving without cache")
		} else {
			resolutionCache = redisCache
			defer redisCache.Close()
		}
	}

	geocoder := location.NewClient(
		env.Get("NOMINATIM_URL", ""),
		env.Get("GEOCODE_COUNTRY_CODE", "in"),
		nil,
	)
	resolver := resolve.New(resolve.Config{
		Geocoder: geocoder,
		Cache:    resolutionCache,
		Interval: env.GetDuration("GEOCODE_INTERVAL", resolve.DefaultInterval),
		Country:  env.Get("GEOCODE_COUNTRY", resolve.DefaultCountry),
		Progress: func(current, total int) {
			log.WithFields(logrus.Fields{"current": current, "total": total}).Debug("resolving gym")
		},
		Log: log,
	})

	var apiClient *gymapi.Client
	if raw := env.Get("GYM_API_URL", ""); raw != "" {
		base, err := url.Parse(raw)
		if err != nil {
			log.WithError(err).Fatal("invalid GYM_API_URL")
		}
		apiClient = gymapi.NewClient(base, nil)
	}

	exportBucket := env.Get("EXPORT_BUCKET", "")
	if exportBucket != "" {
		if err := s3Service.EnsureBucket(ctx, exportBucket, env.Get("MINIO_REGION", "")); err != nil {
			log.WithError(err).Fatal("export bucket init failed")
		}
	}

	pipeline := enrich.NewPipeline(
		enrich.NewStage(geocodeStep(resolver, log)),
		enrich.NewStage(
			persistStep(coordStore, apiClient, log),
			exportStep(s3Service, exportBucket, log),
		),
	)

	consumer.Start(ctx)
	iterator := service.NewSnapshotIterator(consumer, s3Service.GetSnapshot)

	jobs := make(chan *job)
	go func() {
		defer close(jobs)
		for fetched := range iterator.Snapshots(ctx) {
			select {
			case jobs <- &job{fetched: fetched}:
			case <-ctx.Done():
				return
			}
		}
	}()
	pipeline.Process(ctx, jobs)

	consumer.Stop()
	log.Info("resolver exiting")
}
