package mapview

import (
	"encoding/json"

	"gymatlas/internal/models"
)

// geometry is a GeoJSON point. Coordinates are in GeoJSON [lng, lat] order.
type geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type feature struct {
	Type       string         `json:"type"`
	Geometry   geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

// ExportGeoJSON renders the positioned gyms (and the user location, when
// present) as a GeoJSON FeatureCollection. Coordinate-less gyms are left out,
// the same as on the map itself.
func ExportGeoJSON(gyms []models.Gym, user *models.UserLocation) ([]byte, error) {
	fc := featureCollection{Type: "FeatureCollection", Features: []feature{}}

	for _, gym := range gyms {
		if !gym.HasCoordinates() {
			continue
		}
		props := map[string]any{
			"id":     gym.ID,
			"name":   gym.Name,
			"status": string(gym.Status),
			"color":  StatusColor(gym.Status),
		}
		if gym.Capacity > 0 {
			props["capacity"] = gym.Capacity
		}
		if gym.City != "" {
			props["city"] = gym.City
		}
		if gym.FormattedAddress != "" {
			props["formattedAddress"] = gym.FormattedAddress
		}
		fc.Features = append(fc.Features, feature{
			Type:       "Feature",
			Geometry:   geometry{Type: "Point", Coordinates: [2]float64{gym.Coordinates.Lng, gym.Coordinates.Lat}},
			Properties: props,
		})
	}

	if user != nil {
		fc.Features = append(fc.Features, feature{
			Type:       "Feature",
			Geometry:   geometry{Type: "Point", Coordinates: [2]float64{user.Lng, user.Lat}},
			Properties: map[string]any{"name": "Your Location", "color": colorUser},
		})
	}

	return json.Marshal(fc)
}
