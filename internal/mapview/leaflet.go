package mapview

import (
	"math"

	"gymatlas/internal/models"
)

const (
	tileURL         = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	tileAttribution = "© OpenStreetMap contributors"
	tileMaxZoom     = 19
)

// Default viewport before any markers are placed.
var defaultCenter = models.Coordinates{Lat: 11.1271, Lng: 78.6569}

const defaultZoom = 8

// ViewState is the serializable Leaflet view a frontend hydrates: tile layer,
// current viewport and the full marker set. It implements Widget, so a
// Session can own one directly.
type ViewState struct {
	TileURL     string             `json:"tileUrl"`
	Attribution string             `json:"attribution"`
	MaxZoom     int                `json:"maxZoom"`
	Center      models.Coordinates `json:"center"`
	ZoomLevel   int                `json:"zoom"`
	Markers     []Marker           `json:"markers"`
	OpenPopupID string             `json:"openPopupId,omitempty"`
}

// NewViewState returns a view centered on the deployment's home region.
func NewViewState() *ViewState {
	return &ViewState{
		TileURL:     tileURL,
		Attribution: tileAttribution,
		MaxZoom:     tileMaxZoom,
		Center:      defaultCenter,
		ZoomLevel:   defaultZoom,
	}
}

// AddMarker appends m to the view.
func (v *ViewState) AddMarker(m Marker) {
	v.Markers = append(v.Markers, m)
}

// RemoveMarker drops the marker with the given ID, if present.
func (v *ViewState) RemoveMarker(id string) {
	for i, m := range v.Markers {
		if m.ID == id {
			v.Markers = append(v.Markers[:i], v.Markers[i+1:]...)
			return
		}
	}
}

// FitBounds centers the view on the bounds and picks the deepest zoom level
// that still shows the whole box.
func (v *ViewState) FitBounds(b Bounds) {
	v.Center = models.Coordinates{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lng: (b.MinLng + b.MaxLng) / 2,
	}
	v.ZoomLevel = zoomForBounds(b)
}

// SetView recenters the viewport.
func (v *ViewState) SetView(center models.Coordinates, zoom int) {
	v.Center = center
	v.ZoomLevel = zoom
}

// Zoom returns the current zoom level.
func (v *ViewState) Zoom() int { return v.ZoomLevel }

// SetZoom sets the zoom level directly.
func (v *ViewState) SetZoom(zoom int) { v.ZoomLevel = zoom }

// OpenPopup marks the popup the frontend should open on load.
func (v *ViewState) OpenPopup(markerID string) { v.OpenPopupID = markerID }

// zoomForBounds approximates the web-mercator zoom at which a bounds span
// fills a typical viewport. A degenerate (single point) bounds maps to the
// tile layer's deepest zoom; the session clamps it afterwards.
func zoomForBounds(b Bounds) int {
	span := math.Max(b.MaxLat-b.MinLat, b.MaxLng-b.MinLng)
	if span <= 0 {
		return tileMaxZoom
	}
	zoom := int(math.Floor(math.Log2(360 / span)))
	if zoom < 0 {
		zoom = 0
	}
	if zoom > tileMaxZoom {
		zoom = tileMaxZoom
	}
	return zoom
}
