// Package location is a client for the Nominatim geocoding service. It
// resolves free-text addresses to coordinates and is deliberately minimal:
// one search endpoint, first result only.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

var userAgent = "gymatlas-geocoder/1.0"

// ErrNoMatch is returned when the geocoding service finds no result for a
// query. Callers treat it as a skip, not a failure.
var ErrNoMatch = fmt.Errorf("geocoding: no match")

// Result is the subset of a Nominatim search hit the map feature consumes.
type Result struct {
	Lat         float64
	Lng         float64
	DisplayName string
}

// nominatimHit is shaped for the raw API response. Latitude and longitude
// arrive as strings.
type nominatimHit struct {
	PlaceID     int64  `json:"place_id"`
	OsmType     string `json:"osm_type"`
	OsmID       int64  `json:"osm_id"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Class       string `json:"class"`
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
}

// Client issues search requests against a Nominatim-compatible endpoint.
type Client struct {
	baseURL     string
	countryCode string
	httpClient  *http.Client
}

// NewClient returns a geocoding client. countryCode restricts results to one
// country (e.g. "in") and may be empty; a nil httpClient falls back to
// http.DefaultClient. baseURL is overridable so tests can point at a local
// server.
func NewClient(baseURL, countryCode string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, countryCode: countryCode, httpClient: httpClient}
}

// Search geocodes a free-text query and returns the first hit. It returns
// ErrNoMatch when the service has no result for the query.
func (c *Client) Search(ctx context.Context, query string) (*Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	if c.countryCode != "" {
		params.Set("countrycodes", c.countryCode)
	}

	u := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding: unexpected status %s", resp.Status)
	}

	var hits []nominatimHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("geocoding: decoding response: %w", err)
	}
	if len(hits) == 0 {
		return nil, ErrNoMatch
	}

	first := hits[0]
	lat, err := strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("geocoding: parsing latitude %q: %w", first.Lat, err)
	}
	lng, err := strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("geocoding: parsing longitude %q: %w", first.Lon, err)
	}

	return &Result{Lat: lat, Lng: lng, DisplayName: first.DisplayName}, nil
}
