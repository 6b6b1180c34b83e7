// Package gymapi implements the client for the external gym data provider:
// the REST backend that owns organizations and their gyms. The mapping
// feature reads gym lists from it and, for providers that accept it, writes
// resolved coordinates back.
package gymapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"gymatlas/internal/models"
)

var userAgent = "gymatlas/1.0"

// Client holds configuration for the provider API and provides the methods
// that interact with it.
type Client struct {
	BaseURL *url.URL

	userAgent string
	client    *http.Client
}

// NewClient returns a provider API client. If a nil httpClient is provided,
// http.DefaultClient is used; pass a client that performs authentication when
// the provider requires it.
func NewClient(baseURL *url.URL, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: baseURL, userAgent: userAgent, client: httpClient}
}

// NewRequest creates an HTTP request against the provider. A non-nil body is
// JSON encoded.
func (c *Client) NewRequest(ctx context.Context, method, urlStr string, body interface{}) (*http.Request, error) {
	u, err := c.BaseURL.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	var buf io.ReadWriter
	if body != nil {
		buf = new(bytes.Buffer)
		enc := json.NewEncoder(buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// Do sends a request and decodes the JSON response body into v when v is
// non-nil. Any non-2xx status is returned as an error.
func (c *Client) Do(req *http.Request, v interface{}) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return resp, err
	}

	if resp.StatusCode >= 300 {
		return resp, fmt.Errorf("gym provider: %s", http.StatusText(resp.StatusCode))
	}

	if v != nil && len(data) != 0 {
		if err := json.Unmarshal(data, v); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

// gymListResponse is the provider's gym listing envelope.
type gymListResponse struct {
	Gyms []models.Gym `json:"gyms"`
}

// ListGyms fetches the full gym list for an organization, in the provider's
// order.
func (c *Client) ListGyms(ctx context.Context, organizationID string) ([]models.Gym, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, fmt.Sprintf("organizations/%s/gyms", organizationID), nil)
	if err != nil {
		return nil, err
	}

	var list gymListResponse
	if _, err := c.Do(req, &list); err != nil {
		return nil, fmt.Errorf("listing gyms for organization %s: %w", organizationID, err)
	}

	for i := range list.Gyms {
		list.Gyms[i].Status = models.ParseStatus(string(list.Gyms[i].Status))
	}
	return list.Gyms, nil
}

// coordinatesUpdate is the write-back payload for a resolved gym.
type coordinatesUpdate struct {
	Coordinates      models.Coordinates `json:"coordinates"`
	FormattedAddress string             `json:"formattedAddress,omitempty"`
}

// UpdateCoordinates writes resolved coordinates back to the provider. Callers
// decide whether their provider supports this; the resolver treats failures
// as non-fatal.
func (c *Client) UpdateCoordinates(ctx context.Context, organizationID, gymID string, coords models.Coordinates, formattedAddress string) error {
	path := fmt.Sprintf("organizations/%s/gyms/%s/coordinates", organizationID, gymID)
	req, err := c.NewRequest(ctx, http.MethodPut, path, coordinatesUpdate{
		Coordinates:      coords,
		FormattedAddress: formattedAddress,
	})
	if err != nil {
		return err
	}
	if _, err := c.Do(req, nil); err != nil {
		return fmt.Errorf("updating coordinates for gym %s: %w", gymID, err)
	}
	return nil
}
