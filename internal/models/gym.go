package models

import (
	"math"
	"strings"
)

// Status enumerates the operational states a gym can be in. Anything the
// backend sends outside this set is treated as StatusUnknown.
type Status string

const (
	StatusActive      Status = "active"
	StatusMaintenance Status = "maintenance"
	StatusClosed      Status = "closed"
	StatusUnknown     Status = "unknown"
)

// ParseStatus normalizes a raw status string from the gym provider.
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive
	case StatusMaintenance:
		return StatusMaintenance
	case StatusClosed:
		return StatusClosed
	default:
		return StatusUnknown
	}
}

// Coordinates is a latitude/longitude pair in degrees. A gym either has both
// values or carries a nil *Coordinates.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the pair is a usable position on the globe.
func (c *Coordinates) Valid() bool {
	if c == nil {
		return false
	}
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Gym is one gym record as supplied by the organization backend. The mapping
// feature treats it as read-only; Coordinates and FormattedAddress may be
// attached after geocoding as derived annotations.
type Gym struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      Status `json:"status"`
	Capacity    int    `json:"capacity"`
	Address     string `json:"address,omitempty"`
	Location    string `json:"location,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	OpeningTime string `json:"openingTime,omitempty"`
	ClosingTime string `json:"closingTime,omitempty"`

	Coordinates      *Coordinates `json:"coordinates,omitempty"`
	FormattedAddress string       `json:"formattedAddress,omitempty"`
}

// HasCoordinates reports whether the gym already carries a valid position.
func (g Gym) HasCoordinates() bool {
	return g.Coordinates.Valid()
}

// Mappable reports whether the gym can appear on the map at all: it either has
// coordinates, or enough address text (address, location or city) to attempt
// geocoding. State on its own is too coarse to geocode against.
func (g Gym) Mappable() bool {
	if g.HasCoordinates() {
		return true
	}
	return g.Address != "" || g.Location != "" || g.City != ""
}

// UserLocation is the requester's position, obtained once per request (or
// once per session in the dashboard). Absent when the client declined or
// could not supply one; every distance feature degrades without it.
type UserLocation struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy,omitempty"`
}

// Point returns the location as coordinates for distance math.
func (u UserLocation) Point() Coordinates {
	return Coordinates{Lat: u.Lat, Lng: u.Lng}
}

// DistanceGym pairs a gym with its computed distance from the user. Ephemeral:
// recomputed per query, never persisted.
type DistanceGym struct {
	Gym
	DistanceKm float64 `json:"distanceKm"`
}

// Snapshot is one organization's gym list as dropped into the snapshot bucket
// by the dashboard backend. The resolver consumes these.
type Snapshot struct {
	OrganizationID string `json:"organizationId"`
	Gyms           []Gym  `json:"gyms"`
}
