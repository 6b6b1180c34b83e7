package mapview

import (
	"strings"
	"testing"

	"gymatlas/internal/models"
)

func positioned(id string, status models.Status, lat, lng float64) models.Gym {
	return models.Gym{
		ID:          id,
		Name:        "Gym " + id,
		Status:      status,
		Coordinates: &models.Coordinates{Lat: lat, Lng: lng},
	}
}

func newTestSession(onSelect func(string)) (*Session, *ViewState) {
	view := NewViewState()
	s := NewSession(Config{Widget: view, OnSelect: onSelect, PopupDelay: -1})
	return s, view
}

func TestSetMarkers_OneMarkerPerPositionedGym(t *testing.T) {
	s, view := newTestSession(nil)
	gyms := []models.Gym{
		positioned("1", models.StatusActive, 13.08, 80.27),
		{ID: "2", Name: "Unmapped"},
		positioned("3", models.StatusClosed, 11.01, 76.95),
	}

	s.SetMarkers(gyms, nil, "")
	if len(view.Markers) != 2 {
		t.Fatalf("placed %d markers, want 2", len(view.Markers))
	}
}

func TestSetMarkers_ReplacesPreviousMarkers(t *testing.T) {
	s, view := newTestSession(nil)

	s.SetMarkers([]models.Gym{
		positioned("1", models.StatusActive, 13.08, 80.27),
		positioned("2", models.StatusActive, 13.09, 80.28),
	}, nil, "")
	if len(view.Markers) != 2 {
		t.Fatalf("first render placed %d markers, want 2", len(view.Markers))
	}

	s.SetMarkers([]models.Gym{
		positioned("3", models.StatusActive, 11.01, 76.95),
	}, nil, "")
	if len(view.Markers) != 1 {
		t.Fatalf("second render leaked markers: %d, want 1", len(view.Markers))
	}
	if view.Markers[0].GymID != "3" {
		t.Errorf("remaining marker is for gym %s, want 3", view.Markers[0].GymID)
	}
}

func TestSetMarkers_StatusColors(t *testing.T) {
	tests := []struct {
		status models.Status
		want   string
	}{
		{models.StatusActive, "#10B981"},
		{models.StatusMaintenance, "#F59E0B"},
		{models.StatusClosed, "#EF4444"},
		{models.StatusUnknown, "#6B7280"},
		{"something-else", "#6B7280"},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			s, view := newTestSession(nil)
			s.SetMarkers([]models.Gym{positioned("1", tt.status, 13, 80)}, nil, "")
			if got := view.Markers[0].Color; got != tt.want {
				t.Errorf("color for %s = %s, want %s", tt.status, got, tt.want)
			}
		})
	}
}

func TestSetMarkers_UserLocationMarker(t *testing.T) {
	s, view := newTestSession(nil)
	user := &models.UserLocation{Lat: 13.0, Lng: 80.2}

	s.SetMarkers([]models.Gym{positioned("1", models.StatusActive, 13.08, 80.27)}, user, "")
	if len(view.Markers) != 2 {
		t.Fatalf("placed %d markers, want gym + user", len(view.Markers))
	}

	var userM *Marker
	for i := range view.Markers {
		if view.Markers[i].ID == userMarkerID {
			userM = &view.Markers[i]
		}
	}
	if userM == nil {
		t.Fatal("no user-location marker placed")
	}
	if userM.Color != "#3B82F6" {
		t.Errorf("user marker color = %s, want #3B82F6", userM.Color)
	}
	if !strings.Contains(userM.PopupHTML, "Your Location") {
		t.Errorf("user marker popup = %q", userM.PopupHTML)
	}
}

func TestSetMarkers_PopupContent(t *testing.T) {
	s, view := newTestSession(nil)
	gym := models.Gym{
		ID:          "1",
		Name:        "FitCore <Downtown>",
		Status:      models.StatusActive,
		Capacity:    120,
		Location:    "Anna Nagar",
		City:        "Chennai",
		OpeningTime: "06:00",
		ClosingTime: "22:00",
		Coordinates: &models.Coordinates{Lat: 13.08, Lng: 80.27},
	}

	s.SetMarkers([]models.Gym{gym}, nil, "")
	popup := view.Markers[0].PopupHTML
	for _, want := range []string{"FitCore &lt;Downtown&gt;", "Anna Nagar", "Chennai", "120", "06:00", "22:00", "ACTIVE"} {
		if !strings.Contains(popup, want) {
			t.Errorf("popup missing %q: %s", want, popup)
		}
	}
}

func TestSetMarkers_SelectedGymOpensPopup(t *testing.T) {
	s, view := newTestSession(nil)
	s.SetMarkers([]models.Gym{
		positioned("1", models.StatusActive, 13.08, 80.27),
		positioned("2", models.StatusActive, 11.01, 76.95),
	}, nil, "2")

	if view.OpenPopupID != "gym-2" {
		t.Errorf("OpenPopupID = %q, want gym-2", view.OpenPopupID)
	}
}

func TestSetMarkers_FitsViewportWithZoomClamp(t *testing.T) {
	s, view := newTestSession(nil)

	// A single marker would zoom to street level without the clamp.
	s.SetMarkers([]models.Gym{positioned("1", models.StatusActive, 13.08, 80.27)}, nil, "")
	if view.Zoom() > 15 {
		t.Errorf("zoom = %d, want clamped to 15", view.Zoom())
	}
	if view.Center.Lat != 13.08 || view.Center.Lng != 80.27 {
		t.Errorf("center = %v, want the marker position", view.Center)
	}
}

func TestSetMarkers_NoMarkersKeepsDefaultView(t *testing.T) {
	s, view := newTestSession(nil)
	s.SetMarkers([]models.Gym{{ID: "1", Name: "Unmapped"}}, nil, "")
	if len(view.Markers) != 0 {
		t.Fatalf("placed %d markers, want 0", len(view.Markers))
	}
	if view.Center != defaultCenter || view.Zoom() != defaultZoom {
		t.Errorf("viewport moved without markers: center %v zoom %d", view.Center, view.Zoom())
	}
}

func TestHandleClick(t *testing.T) {
	var selected []string
	s, _ := newTestSession(func(id string) { selected = append(selected, id) })
	user := &models.UserLocation{Lat: 13, Lng: 80}
	s.SetMarkers([]models.Gym{positioned("1", models.StatusActive, 13.08, 80.27)}, user, "")

	s.HandleClick("gym-1")
	s.HandleClick(userMarkerID) // no gym behind it
	s.HandleClick("gym-404")    // unknown marker

	if len(selected) != 1 || selected[0] != "1" {
		t.Errorf("selection callback got %v, want [1]", selected)
	}
}

func TestCenterOn(t *testing.T) {
	s, view := newTestSession(nil)
	s.CenterOn(models.Coordinates{Lat: 13.08, Lng: 80.27})
	if view.Center.Lat != 13.08 || view.Zoom() != 15 {
		t.Errorf("CenterOn set center %v zoom %d", view.Center, view.Zoom())
	}
}

func TestBoundsPad(t *testing.T) {
	b := Bounds{MinLat: 10, MaxLat: 20, MinLng: 70, MaxLng: 80}
	padded := b.Pad(0.1)
	if padded.MinLat != 9 || padded.MaxLat != 21 || padded.MinLng != 69 || padded.MaxLng != 81 {
		t.Errorf("Pad(0.1) = %+v", padded)
	}
}
