// Package geo implements the distance math behind the map feature: great-
// circle distance between two points and nearest-gym queries over a gym list.
package geo

import (
	"math"
	"sort"

	"gymatlas/internal/models"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// Distance computes the great-circle distance between two points in
// kilometers using the haversine formula. It is symmetric and returns zero
// for identical points.
func Distance(a, b models.Coordinates) float64 {
	latA := degreesToRadians(a.Lat)
	latB := degreesToRadians(b.Lat)
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// Nearest returns the gyms within maxKm of user, sorted ascending by
// distance. Gyms without valid coordinates are excluded, not errored. The
// sort is stable, so gyms at equal distance keep their input order.
func Nearest(user models.UserLocation, gyms []models.Gym, maxKm float64) []models.DistanceGym {
	var annotated []models.DistanceGym
	for _, gym := range gyms {
		if !gym.HasCoordinates() {
			continue
		}
		d := Distance(user.Point(), *gym.Coordinates)
		if d <= maxKm {
			annotated = append(annotated, models.DistanceGym{Gym: gym, DistanceKm: d})
		}
	}

	sort.SliceStable(annotated, func(i, j int) bool {
		return annotated[i].DistanceKm < annotated[j].DistanceKm
	})
	return annotated
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
