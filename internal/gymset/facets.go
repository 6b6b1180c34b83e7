// Package gymset computes the displayed gym set from the canonical gym list
// and the three active facets: filter, free-text search, and sort key. The
// facets are independent, pure transforms applied filter, then search, then
// sort; nothing here mutates or caches the input list, so switching a facet
// back always restores what the others alone would produce.
package gymset

import (
	"sort"
	"strings"

	"gymatlas/internal/models"
	"gymatlas/pkg/geo"
)

// Filter narrows the candidate set before search and sort run.
type Filter string

const (
	FilterAll                Filter = "all"
	FilterActive             Filter = "active"
	FilterMaintenance        Filter = "maintenance"
	FilterClosed             Filter = "closed"
	FilterMappable           Filter = "mappable"
	FilterWithCoordinates    Filter = "with-coordinates"
	FilterWithoutCoordinates Filter = "without-coordinates"
	FilterNearby             Filter = "nearby"
)

// SortKey orders the final result. SortNone leaves input order untouched.
type SortKey string

const (
	SortNone     SortKey = ""
	SortName     SortKey = "name"
	SortCapacity SortKey = "capacity"
	SortLocation SortKey = "location"
	SortStatus   SortKey = "status"
	SortDistance SortKey = "distance"
)

const (
	// nearbyRadiusKm bounds the "nearby" filter.
	nearbyRadiusKm = 50.0
	// nearbyLimit truncates "nearby" to the closest gyms.
	nearbyLimit = 10
)

// ParseFilter maps a raw query value onto a known filter, falling back to
// FilterAll for anything unrecognized.
func ParseFilter(s string) Filter {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case FilterActive, FilterMaintenance, FilterClosed, FilterMappable,
		FilterWithCoordinates, FilterWithoutCoordinates, FilterNearby:
		return Filter(strings.ToLower(strings.TrimSpace(s)))
	default:
		return FilterAll
	}
}

// ParseSort maps a raw query value onto a known sort key, falling back to
// SortNone for anything unrecognized.
func ParseSort(s string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortName, SortCapacity, SortLocation, SortStatus, SortDistance:
		return SortKey(strings.ToLower(strings.TrimSpace(s)))
	default:
		return SortNone
	}
}

// Facets is the full display state of the gym list view.
type Facets struct {
	Filter Filter
	Search string
	Sort   SortKey
}

// Apply computes the displayed gym set: filter, then search, then sort, all
// over a fresh copy of gyms. user may be nil; distance-based facets degrade
// (nearby yields nothing to rank, distance sort is a no-op).
func Apply(gyms []models.Gym, user *models.UserLocation, f Facets) []models.Gym {
	result := applyFilter(gyms, user, f.Filter)
	result = applySearch(result, f.Search)
	return applySort(result, user, f.Sort)
}

func applyFilter(gyms []models.Gym, user *models.UserLocation, filter Filter) []models.Gym {
	switch filter {
	case FilterAll, "":
		return append([]models.Gym(nil), gyms...)
	case FilterActive, FilterMaintenance, FilterClosed:
		return filterGyms(gyms, func(g models.Gym) bool {
			return g.Status == models.Status(filter)
		})
	case FilterMappable:
		return filterGyms(gyms, models.Gym.Mappable)
	case FilterWithCoordinates:
		return filterGyms(gyms, models.Gym.HasCoordinates)
	case FilterWithoutCoordinates:
		return filterGyms(gyms, func(g models.Gym) bool {
			return !g.HasCoordinates()
		})
	case FilterNearby:
		// Proximity cannot be ranked without a location; the facet yields an
		// empty set rather than an error.
		if user == nil {
			return nil
		}
		near := geo.Nearest(*user, gyms, nearbyRadiusKm)
		if len(near) > nearbyLimit {
			near = near[:nearbyLimit]
		}
		out := make([]models.Gym, len(near))
		for i, dg := range near {
			out[i] = dg.Gym
		}
		return out
	default:
		return append([]models.Gym(nil), gyms...)
	}
}

func applySearch(gyms []models.Gym, term string) []models.Gym {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return gyms
	}
	return filterGyms(gyms, func(g models.Gym) bool {
		return strings.Contains(strings.ToLower(g.Name), term) ||
			strings.Contains(strings.ToLower(g.Location), term) ||
			strings.Contains(strings.ToLower(g.City), term)
	})
}

func applySort(gyms []models.Gym, user *models.UserLocation, key SortKey) []models.Gym {
	switch key {
	case SortName:
		sort.SliceStable(gyms, func(i, j int) bool {
			return strings.ToLower(gyms[i].Name) < strings.ToLower(gyms[j].Name)
		})
	case SortCapacity:
		// Largest first, matching the dashboard's capacity ordering.
		sort.SliceStable(gyms, func(i, j int) bool {
			return gyms[i].Capacity > gyms[j].Capacity
		})
	case SortLocation:
		sort.SliceStable(gyms, func(i, j int) bool {
			return strings.ToLower(gyms[i].Location) < strings.ToLower(gyms[j].Location)
		})
	case SortStatus:
		sort.SliceStable(gyms, func(i, j int) bool {
			return gyms[i].Status < gyms[j].Status
		})
	case SortDistance:
		if user == nil {
			return gyms
		}
		return sortByDistance(gyms, *user)
	}
	return gyms
}

// sortByDistance orders coordinate-bearing gyms ascending by distance from
// user and appends coordinate-less gyms afterwards in their input order.
func sortByDistance(gyms []models.Gym, user models.UserLocation) []models.Gym {
	var positioned, unpositioned []models.Gym
	for _, g := range gyms {
		if g.HasCoordinates() {
			positioned = append(positioned, g)
		} else {
			unpositioned = append(unpositioned, g)
		}
	}

	annotated := geo.Nearest(user, positioned, maxRadius(positioned, user))
	out := make([]models.Gym, 0, len(gyms))
	for _, dg := range annotated {
		out = append(out, dg.Gym)
	}
	return append(out, unpositioned...)
}

// maxRadius returns a radius wide enough to keep every positioned gym.
func maxRadius(gyms []models.Gym, user models.UserLocation) float64 {
	max := 0.0
	for _, g := range gyms {
		if d := geo.Distance(user.Point(), *g.Coordinates); d > max {
			max = d
		}
	}
	return max
}

// Annotate pairs each gym in the displayed set with its distance from user.
// Gyms without coordinates carry a negative distance to mark it unknown.
func Annotate(gyms []models.Gym, user models.UserLocation) []models.DistanceGym {
	out := make([]models.DistanceGym, len(gyms))
	for i, g := range gyms {
		dg := models.DistanceGym{Gym: g, DistanceKm: -1}
		if g.HasCoordinates() {
			dg.DistanceKm = geo.Distance(user.Point(), *g.Coordinates)
		}
		out[i] = dg
	}
	return out
}

func filterGyms(gyms []models.Gym, keep func(models.Gym) bool) []models.Gym {
	var out []models.Gym
	for _, g := range gyms {
		if keep(g) {
			out = append(out, g)
		}
	}
	return out
}
