package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"gymatlas/internal/enrich"
	"gymatlas/internal/gymapi"
	"gymatlas/internal/mapview"
	"gymatlas/internal/models"
	"gymatlas/internal/resolve"
	"gymatlas/internal/service"
	"gymatlas/internal/storage"
	"gymatlas/internal/store"
)

// job carries one fetched snapshot through the pipeline. The geocode stage
// fills resolved and summary; the fan-out stage reads them.
type job struct {
	fetched  *service.FetchedSnapshot
	resolved []models.Gym
	summary  resolve.Summary
}

func geocodeStep(resolver *resolve.Resolver, log logrus.FieldLogger) enrich.Step[job] {
	return func(ctx context.Context, item *job) error {
		resolved, summary, err := resolver.ResolveAll(ctx, item.fetched.Snapshot.Gyms)
		item.resolved = resolved
		item.summary = summary
		log.WithFields(logrus.Fields{
			"organization": item.fetched.Snapshot.OrganizationID,
			"total":        summary.Total,
			"resolved":     summary.Resolved,
			"skipped":      summary.Skipped,
			"failed":       summary.Failed,
		}).Info("snapshot resolved")
		return err
	}
}

// persistStep writes back coordinates for gyms that gained them in this run,
// to the annotation store and, when configured, to the gym provider API.
func persistStep(coordStore *store.CoordinateStore, apiClient *gymapi.Client, log logrus.FieldLogger) enrich.Step[job] {
	return func(ctx context.Context, item *job) error {
		orgID := item.fetched.Snapshot.OrganizationID
		for _, gym := range newlyResolved(item.fetched.Snapshot.Gyms, item.resolved) {
			if err := coordStore.Upsert(ctx, orgID, gym.ID, *gym.Coordinates, gym.FormattedAddress); err != nil {
				return fmt.Errorf("upserting coordinates for gym %s: %w", gym.ID, err)
			}
			if apiClient == nil {
				continue
			}
			if err := apiClient.UpdateCoordinates(ctx, orgID, gym.ID, *gym.Coordinates, gym.FormattedAddress); err != nil {
				log.WithError(err).WithField("gym", gym.ID).Warn("provider write-back failed")
			}
		}
		return nil
	}
}

// exportStep publishes the resolved snapshot as GeoJSON. A no-op when no
// export bucket is configured.
func exportStep(s3Service *storage.S3Service, bucket string, log logrus.FieldLogger) enrich.Step[job] {
	return func(ctx context.Context, item *job) error {
		if bucket == "" {
			return nil
		}
		geojson, err := mapview.ExportGeoJSON(item.resolved, nil)
		if err != nil {
			return fmt.Errorf("rendering geojson: %w", err)
		}
		orgID := item.fetched.Snapshot.OrganizationID
		if err := s3Service.StoreExport(ctx, bucket, orgID, geojson); err != nil {
			return fmt.Errorf("storing export for %s: %w", orgID, err)
		}
		log.WithField("organization", orgID).Info("geojson export stored")
		return nil
	}
}

// newlyResolved returns the gyms that lacked coordinates in the input and
// carry them in the output. ResolveAll preserves order and length.
func newlyResolved(before, after []models.Gym) []models.Gym {
	var gained []models.Gym
	for i, gym := range after {
		if i < len(before) && !before[i].HasCoordinates() && gym.HasCoordinates() {
			gained = append(gained, gym)
		}
	}
	return gained
}
