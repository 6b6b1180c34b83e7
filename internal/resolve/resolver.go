// Package resolve implements the geocoding resolver: it walks a gym list and
// attaches coordinates to every gym that lacks them, looking each address up
// against a rate-limited external geocoding service. Lookups are strictly
// sequential with a fixed pause between requests; a cancelled context stops
// the batch between lookups.
package resolve

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"gymatlas/internal/models"
	"gymatlas/pkg/location"
)

// DefaultInterval is the pause between successive geocoding requests. The
// public Nominatim instance allows one request per second.
const DefaultInterval = time.Second

// DefaultCountry is appended to every constructed address and anchors the
// dashboard's deployments.
const DefaultCountry = "India"

// Geocoder resolves a free-text query to coordinates. Satisfied by
// location.Client.
type Geocoder interface {
	Search(ctx context.Context, query string) (*location.Result, error)
}

// ResolutionCache remembers address resolutions across snapshots so repeated
// lookups of the same unresolved gym do not re-hit the geocoding service.
// Both methods are best-effort; a failing cache never fails a resolution.
type ResolutionCache interface {
	GetResolution(ctx context.Context, address string) (*location.Result, bool)
	SetResolution(ctx context.Context, address string, res *location.Result) error
}

// Progress is invoked before each gym is considered, with 1-based position.
type Progress func(current, total int)

// Summary reports the fate of one resolution batch.
type Summary struct {
	Total    int `json:"total"`
	Resolved int `json:"resolved"` // includes cache hits and gyms that already had coordinates
	Skipped  int `json:"skipped"`  // no usable address text
	Failed   int `json:"failed"`   // lookup failure or no match
}

// Config carries resolver collaborators and tuning.
type Config struct {
	Geocoder Geocoder
	Cache    ResolutionCache // optional
	Interval time.Duration   // zero means DefaultInterval
	Country  string          // zero means DefaultCountry
	Progress Progress        // optional
	Log      logrus.FieldLogger
}

// Resolver runs resolution batches. Safe for reuse across batches, not for
// concurrent use: the inter-request pacing is per Resolver.
type Resolver struct {
	geocoder Geocoder
	cache    ResolutionCache
	interval time.Duration
	country  string
	progress Progress
	log      logrus.FieldLogger
}

// New constructs a Resolver from cfg. cfg.Geocoder is required.
func New(cfg Config) *Resolver {
	r := &Resolver{
		geocoder: cfg.Geocoder,
		cache:    cfg.Cache,
		interval: cfg.Interval,
		country:  cfg.Country,
		progress: cfg.Progress,
		log:      cfg.Log,
	}
	if r.interval == 0 {
		r.interval = DefaultInterval
	}
	if r.country == "" {
		r.country = DefaultCountry
	}
	if r.log == nil {
		r.log = logrus.StandardLogger()
	}
	return r
}

// BuildAddress concatenates the gym's address fields in order, dropping empty
// parts and terminating with the country literal. It returns "" when the gym
// carries no usable address text (the bare country does not count).
func BuildAddress(gym models.Gym, country string) string {
	parts := make([]string, 0, 5)
	for _, p := range []string{gym.Address, gym.Location, gym.City, gym.State} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(append(parts, country), ", ")
}

// ResolveAll returns a copy of gyms with coordinates attached wherever
// resolution succeeded. Gyms that already carry coordinates are passed through
// untouched and never trigger a lookup. A gym whose lookup fails stays
// coordinate-less; the error is logged and the batch continues. ResolveAll
// returns early with ctx.Err() if the context is cancelled, along with the
// gyms processed so far.
func (r *Resolver) ResolveAll(ctx context.Context, gyms []models.Gym) ([]models.Gym, Summary, error) {
	out := make([]models.Gym, 0, len(gyms))
	summary := Summary{Total: len(gyms)}
	requested := false

	for i, gym := range gyms {
		if r.progress != nil {
			r.progress(i+1, len(gyms))
		}

		if gym.HasCoordinates() {
			summary.Resolved++
			out = append(out, gym)
			continue
		}

		address := BuildAddress(gym, r.country)
		if address == "" {
			r.log.WithField("gym", gym.Name).Debug("no address information, skipping")
			summary.Skipped++
			out = append(out, gym)
			continue
		}

		if r.cache != nil {
			if res, ok := r.cache.GetResolution(ctx, address); ok {
				attach(&gym, res)
				summary.Resolved++
				out = append(out, gym)
				continue
			}
		}

		// Pace requests against the shared public service. The pause sits
		// before every request except the first so a cancelled context can
		// stop the batch without burning the remaining delay.
		if requested {
			if err := wait(ctx, r.interval); err != nil {
				return out, summary, err
			}
		}
		requested = true

		res, err := r.geocoder.Search(ctx, address)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return out, summary, err
		case errors.Is(err, location.ErrNoMatch):
			r.log.WithFields(logrus.Fields{"gym": gym.Name, "address": address}).Info("no geocoding match")
			summary.Failed++
			out = append(out, gym)
			continue
		case err != nil:
			r.log.WithFields(logrus.Fields{"gym": gym.Name, "address": address}).WithError(err).Warn("geocoding lookup failed")
			summary.Failed++
			out = append(out, gym)
			continue
		}

		attach(&gym, res)
		summary.Resolved++
		out = append(out, gym)

		if r.cache != nil {
			if err := r.cache.SetResolution(ctx, address, res); err != nil {
				r.log.WithError(err).Warn("caching resolution failed")
			}
		}
	}

	return out, summary, nil
}

func attach(gym *models.Gym, res *location.Result) {
	gym.Coordinates = &models.Coordinates{Lat: res.Lat, Lng: res.Lng}
	gym.FormattedAddress = res.DisplayName
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
