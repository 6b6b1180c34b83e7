// Package mapview renders the gym map: one marker per positioned gym, colored
// by status, plus an optional user-location marker, with the viewport fit to
// the full marker set. All widget mutation is funneled through a Session so a
// re-render fully replaces the previous marker set instead of leaking markers.
package mapview

import (
	"fmt"
	"html"
	"strings"
	"time"

	"gymatlas/internal/models"
)

const (
	colorActive      = "#10B981"
	colorMaintenance = "#F59E0B"
	colorClosed      = "#EF4444"
	colorUnknown     = "#6B7280"
	colorUser        = "#3B82F6"

	// userMarkerID identifies the requester's own position marker.
	userMarkerID = "user-location"

	// boundsPadding is the fraction of the marker bounds added on each side
	// when fitting the viewport.
	boundsPadding = 0.1
	// maxFitZoom caps how far fitting a small marker set may zoom in.
	maxFitZoom = 15
	// defaultPopupDelay gives a freshly placed marker time to mount before
	// its popup auto-opens.
	defaultPopupDelay = 500 * time.Millisecond
)

// Marker is one point annotation handed to the widget.
type Marker struct {
	ID        string             `json:"id"`
	GymID     string             `json:"gymId,omitempty"`
	Position  models.Coordinates `json:"position"`
	Color     string             `json:"color"`
	IconHTML  string             `json:"iconHtml"`
	PopupHTML string             `json:"popupHtml"`
}

// Bounds is an axis-aligned box around a set of points.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MinLng float64 `json:"minLng"`
	MaxLat float64 `json:"maxLat"`
	MaxLng float64 `json:"maxLng"`
}

// BoundsAt returns a degenerate bounds containing only p.
func BoundsAt(p models.Coordinates) Bounds {
	return Bounds{MinLat: p.Lat, MaxLat: p.Lat, MinLng: p.Lng, MaxLng: p.Lng}
}

// Extend grows the bounds to include p.
func (b *Bounds) Extend(p models.Coordinates) {
	if p.Lat < b.MinLat {
		b.MinLat = p.Lat
	}
	if p.Lat > b.MaxLat {
		b.MaxLat = p.Lat
	}
	if p.Lng < b.MinLng {
		b.MinLng = p.Lng
	}
	if p.Lng > b.MaxLng {
		b.MaxLng = p.Lng
	}
}

// Pad widens the bounds by fraction on each side, the same way Leaflet's
// bounds.pad does.
func (b Bounds) Pad(fraction float64) Bounds {
	dLat := (b.MaxLat - b.MinLat) * fraction
	dLng := (b.MaxLng - b.MinLng) * fraction
	return Bounds{
		MinLat: b.MinLat - dLat,
		MinLng: b.MinLng - dLng,
		MaxLat: b.MaxLat + dLat,
		MaxLng: b.MaxLng + dLng,
	}
}

// Widget is the surface the session draws on. Implementations own the actual
// map handle (a Leaflet view state, a test fake); the session owns which
// markers exist on it.
type Widget interface {
	AddMarker(m Marker)
	RemoveMarker(id string)
	FitBounds(b Bounds)
	SetView(center models.Coordinates, zoom int)
	Zoom() int
	SetZoom(zoom int)
	OpenPopup(markerID string)
}

// Session owns one widget and the marker set on it. It is the only writer to
// the widget; callers re-render by calling SetMarkers again.
type Session struct {
	widget     Widget
	onSelect   func(gymID string)
	popupDelay time.Duration

	placed map[string]string // marker ID -> gym ID
}

// Config carries session collaborators. Widget is required; OnSelect may be
// nil; a negative PopupDelay opens popups synchronously (used by tests),
// zero means the default.
type Config struct {
	Widget     Widget
	OnSelect   func(gymID string)
	PopupDelay time.Duration
}

// NewSession constructs a Session over cfg.Widget.
func NewSession(cfg Config) *Session {
	delay := cfg.PopupDelay
	if delay == 0 {
		delay = defaultPopupDelay
	}
	return &Session{
		widget:     cfg.Widget,
		onSelect:   cfg.OnSelect,
		popupDelay: delay,
		placed:     make(map[string]string),
	}
}

// SetMarkers replaces the full marker set: every previously placed marker is
// removed, then one marker is added per coordinate-bearing gym and, when
// present, one for the user's location. The viewport is then fit to all
// markers with padding, clamping the zoom. If selectedGymID names a rendered
// gym, its popup opens after the configured delay.
func (s *Session) SetMarkers(gyms []models.Gym, user *models.UserLocation, selectedGymID string) {
	for id := range s.placed {
		s.widget.RemoveMarker(id)
		delete(s.placed, id)
	}

	var bounds Bounds
	any := false
	extend := func(p models.Coordinates) {
		if !any {
			bounds = BoundsAt(p)
			any = true
			return
		}
		bounds.Extend(p)
	}

	for _, gym := range gyms {
		if !gym.HasCoordinates() {
			continue
		}
		m := gymMarker(gym)
		s.widget.AddMarker(m)
		s.placed[m.ID] = gym.ID
		extend(m.Position)

		if selectedGymID != "" && gym.ID == selectedGymID {
			s.openPopupSoon(m.ID)
		}
	}

	if user != nil {
		m := userMarker(*user)
		s.widget.AddMarker(m)
		s.placed[m.ID] = ""
		extend(m.Position)
	}

	if any {
		s.FitTo(bounds)
	}
}

// FitTo fits the viewport to bounds with the standard padding, then clamps
// the zoom so a single marker does not land at street level.
func (s *Session) FitTo(b Bounds) {
	s.widget.FitBounds(b.Pad(boundsPadding))
	if s.widget.Zoom() > maxFitZoom {
		s.widget.SetZoom(maxFitZoom)
	}
}

// CenterOn recenters the viewport on p at the maximum fit zoom.
func (s *Session) CenterOn(p models.Coordinates) {
	s.widget.SetView(p, maxFitZoom)
}

// HandleClick is invoked by the widget layer when a marker is clicked. Clicks
// on the user-location marker carry no gym and are ignored.
func (s *Session) HandleClick(markerID string) {
	gymID, ok := s.placed[markerID]
	if !ok || gymID == "" || s.onSelect == nil {
		return
	}
	s.onSelect(gymID)
}

func (s *Session) openPopupSoon(markerID string) {
	if s.popupDelay < 0 {
		s.widget.OpenPopup(markerID)
		return
	}
	time.AfterFunc(s.popupDelay, func() {
		s.widget.OpenPopup(markerID)
	})
}

// StatusColor maps a gym status to its marker color.
func StatusColor(status models.Status) string {
	switch status {
	case models.StatusActive:
		return colorActive
	case models.StatusMaintenance:
		return colorMaintenance
	case models.StatusClosed:
		return colorClosed
	default:
		return colorUnknown
	}
}

func gymMarker(gym models.Gym) Marker {
	color := StatusColor(gym.Status)
	return Marker{
		ID:        "gym-" + gym.ID,
		GymID:     gym.ID,
		Position:  *gym.Coordinates,
		Color:     color,
		IconHTML:  iconHTML(color, 20),
		PopupHTML: popupHTML(gym, color),
	}
}

func userMarker(user models.UserLocation) Marker {
	return Marker{
		ID:        userMarkerID,
		Position:  user.Point(),
		Color:     colorUser,
		IconHTML:  iconHTML(colorUser, 16),
		PopupHTML: "<strong>Your Location</strong>",
	}
}

func iconHTML(color string, size int) string {
	return fmt.Sprintf(
		`<div style="background-color:%s;width:%dpx;height:%dpx;border-radius:50%%;border:3px solid white;box-shadow:0 2px 4px rgba(0,0,0,0.3);"></div>`,
		color, size, size,
	)
}

func popupHTML(gym models.Gym, color string) string {
	place := gym.FormattedAddress
	if place == "" {
		place = orNA(gym.Location)
	}
	return fmt.Sprintf(
		`<div class="gym-popup"><h3>%s</h3>`+
			`<p><strong>Location:</strong> %s</p>`+
			`<p><strong>City:</strong> %s</p>`+
			`<p><strong>Capacity:</strong> %s</p>`+
			`<p><strong>Hours:</strong> %s - %s</p>`+
			`<span class="status-badge" style="background:%s">%s</span></div>`,
		html.EscapeString(gym.Name),
		html.EscapeString(place),
		html.EscapeString(orNA(gym.City)),
		capacityLabel(gym.Capacity),
		html.EscapeString(orNA(gym.OpeningTime)),
		html.EscapeString(orNA(gym.ClosingTime)),
		color,
		statusLabel(gym.Status),
	)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func capacityLabel(capacity int) string {
	if capacity <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%d", capacity)
}

func statusLabel(status models.Status) string {
	if status == "" {
		status = models.StatusUnknown
	}
	return html.EscapeString(strings.ToUpper(string(status)))
}
