package mapview

import (
	"encoding/json"
	"testing"

	"gymatlas/internal/models"
)

func TestExportGeoJSON(t *testing.T) {
	gyms := []models.Gym{
		positioned("1", models.StatusActive, 13.08, 80.27),
		{ID: "2", Name: "Unmapped"},
	}
	user := &models.UserLocation{Lat: 13.0, Lng: 80.2}

	data, err := ExportGeoJSON(gyms, user)
	if err != nil {
		t.Fatalf("ExportGeoJSON: %v", err)
	}

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string     `json:"type"`
				Coordinates [2]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}

	if fc.Type != "FeatureCollection" {
		t.Errorf("type = %s", fc.Type)
	}
	// One positioned gym plus the user location; the unmapped gym is absent.
	if len(fc.Features) != 2 {
		t.Fatalf("got %d features, want 2", len(fc.Features))
	}

	gymFeature := fc.Features[0]
	// GeoJSON order is [lng, lat].
	if gymFeature.Geometry.Coordinates != [2]float64{80.27, 13.08} {
		t.Errorf("coordinates = %v, want [80.27 13.08]", gymFeature.Geometry.Coordinates)
	}
	if gymFeature.Properties["color"] != "#10B981" {
		t.Errorf("color = %v", gymFeature.Properties["color"])
	}
}

func TestExportGeoJSON_EmptyListIsValid(t *testing.T) {
	data, err := ExportGeoJSON(nil, nil)
	if err != nil {
		t.Fatalf("ExportGeoJSON: %v", err)
	}
	if string(data) != `{"type":"FeatureCollection","features":[]}` {
		t.Errorf("empty export = %s", data)
	}
}
