// Package gyms implements the map server's HTTP handlers: the faceted gym
// list, nearest-gym queries, the rendered map view and the GeoJSON export.
package gyms

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"gymatlas/internal/gymset"
	"gymatlas/internal/mapview"
	"gymatlas/internal/models"
	"gymatlas/internal/store"
	"gymatlas/pkg/geo"
)

// defaultNearestRadiusKm is used when a nearest query does not set max_km.
const defaultNearestRadiusKm = 50.0

// GymProvider supplies the canonical gym list. Satisfied by gymapi.Client.
type GymProvider interface {
	ListGyms(ctx context.Context, organizationID string) ([]models.Gym, error)
}

// AnnotationStore supplies stored coordinate annotations. Satisfied by
// store.CoordinateStore; may be nil, in which case only provider-supplied
// coordinates appear.
type AnnotationStore interface {
	ForOrganization(ctx context.Context, organizationID string) (map[string]store.Annotation, error)
}

// Exporter persists map exports. Satisfied by storage.S3Service; may be nil.
type Exporter interface {
	StoreExport(ctx context.Context, bucketName, organizationID string, geojson []byte) error
}

// Handler serves the map feature's endpoints.
type Handler struct {
	provider     GymProvider
	annotations  AnnotationStore
	exporter     Exporter
	exportBucket string
	log          logrus.FieldLogger
}

// New constructs a Handler. annotations and exporter are optional.
func New(provider GymProvider, annotations AnnotationStore, exporter Exporter, exportBucket string, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		provider:     provider,
		annotations:  annotations,
		exporter:     exporter,
		exportBucket: exportBucket,
		log:          log,
	}
}

// Register attaches the handler's routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /orgs/{org}/gyms", h.List)
	mux.HandleFunc("GET /orgs/{org}/gyms/nearest", h.Nearest)
	mux.HandleFunc("GET /orgs/{org}/map", h.Map)
	mux.HandleFunc("GET /orgs/{org}/map/export", h.Export)
}

// List serves the faceted gym list: filter, search and sort query parameters
// compose over the canonical list, and a lat/lng pair adds distance
// annotations.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	gyms, ok := h.loadGyms(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	user := parseLocation(q.Get("lat"), q.Get("lng"))
	facets := gymset.Facets{
		Filter: gymset.ParseFilter(q.Get("filter")),
		Search: q.Get("search"),
		Sort:   gymset.ParseSort(q.Get("sort")),
	}

	displayed := gymset.Apply(gyms, user, facets)
	if user != nil {
		writeJSON(w, h.log, map[string]any{
			"gyms":  gymset.Annotate(displayed, *user),
			"total": len(displayed),
		})
		return
	}
	writeJSON(w, h.log, map[string]any{"gyms": displayed, "total": len(displayed)})
}

// Nearest serves gyms within max_km of the supplied location, closest first.
// Without a usable location the result is empty, not an error.
func (h *Handler) Nearest(w http.ResponseWriter, r *http.Request) {
	gyms, ok := h.loadGyms(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	user := parseLocation(q.Get("lat"), q.Get("lng"))
	if user == nil {
		writeJSON(w, h.log, map[string]any{"gyms": []models.DistanceGym{}})
		return
	}

	maxKm := defaultNearestRadiusKm
	if raw := q.Get("max_km"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			maxKm = parsed
		}
	}

	near := geo.Nearest(*user, gyms, maxKm)
	if near == nil {
		near = []models.DistanceGym{}
	}
	writeJSON(w, h.log, map[string]any{"gyms": near})
}

// Map serves the rendered map view: tile layer, viewport and marker set.
func (h *Handler) Map(w http.ResponseWriter, r *http.Request) {
	gyms, ok := h.loadGyms(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	user := parseLocation(q.Get("lat"), q.Get("lng"))

	view := mapview.NewViewState()
	session := mapview.NewSession(mapview.Config{Widget: view, PopupDelay: -1})
	session.SetMarkers(gyms, user, q.Get("selected"))

	writeJSON(w, h.log, view)
}

// Export serves the organization's map as a GeoJSON FeatureCollection and,
// when an exporter is configured, stores a copy alongside.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	gyms, ok := h.loadGyms(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	user := parseLocation(q.Get("lat"), q.Get("lng"))

	data, err := mapview.ExportGeoJSON(gyms, user)
	if err != nil {
		h.log.WithError(err).Error("rendering geojson export")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if h.exporter != nil {
		orgID := r.PathValue("org")
		if err := h.exporter.StoreExport(r.Context(), h.exportBucket, orgID, data); err != nil {
			h.log.WithError(err).WithField("organization", orgID).Warn("storing map export failed")
		}
	}

	w.Header().Set("Content-Type", "application/geo+json")
	if _, err := w.Write(data); err != nil {
		h.log.WithError(err).Error("writing export response")
	}
}

// loadGyms fetches the organization's gyms and merges stored coordinate
// annotations. On provider failure it writes a 502 and returns ok=false.
func (h *Handler) loadGyms(w http.ResponseWriter, r *http.Request) ([]models.Gym, bool) {
	orgID := r.PathValue("org")

	gyms, err := h.provider.ListGyms(r.Context(), orgID)
	if err != nil {
		h.log.WithError(err).WithField("organization", orgID).Error("listing gyms from provider")
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return nil, false
	}

	if h.annotations != nil {
		stored, err := h.annotations.ForOrganization(r.Context(), orgID)
		if err != nil {
			// The map can still render provider-supplied coordinates.
			h.log.WithError(err).WithField("organization", orgID).Warn("loading coordinate annotations")
		} else {
			gyms = store.Merge(gyms, stored)
		}
	}
	return gyms, true
}

// parseLocation turns lat/lng query values into a user location. Anything
// missing or unparseable yields nil: distance features degrade, they never
// error.
func parseLocation(latRaw, lngRaw string) *models.UserLocation {
	if latRaw == "" || lngRaw == "" {
		return nil
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return nil
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil {
		return nil
	}
	loc := models.UserLocation{Lat: lat, Lng: lng}
	if !(&models.Coordinates{Lat: lat, Lng: lng}).Valid() {
		return nil
	}
	return &loc
}

func writeJSON(w http.ResponseWriter, log logrus.FieldLogger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("encoding response")
	}
}
