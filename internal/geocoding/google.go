package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the Google Maps Geocoding endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// ErrNoResults is returned when Google has no address for a coordinate.
var ErrNoResults = errors.New("geocoding returned no results")

// Address holds the parts of a reverse geocoding answer a report cares about.
type Address struct {
	Street    string `json:"street"`
	Area      string `json:"area"`
	City      string `json:"city"`
	State     string `json:"state"`
	Formatted string `json:"formatted"`
}

// Detailed renders "street, area, city, state", skipping empty parts.
func (a Address) Detailed() string {
	var parts []string
	for _, p := range []string{a.Street, a.Area, a.City, a.State} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Client wraps the Google Maps Geocoding API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient returns nil when apiKey is empty so callers can skip geocoding.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// WithBaseURL points the client at another endpoint, e.g. a test server.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

type geocodeResponse struct {
	Results      []geocodeResult `json:"results"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message"`
}

type geocodeResult struct {
	AddressComponents []addressComponent `json:"address_components"`
	FormattedAddress  string             `json:"formatted_address"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// ReverseGeocode looks up the address closest to lat,lng.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (Address, error) {
	q := url.Values{}
	q.Set("latlng", fmt.Sprintf("%f,%f", lat, lng))
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Address{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Address{}, fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Address{}, fmt.Errorf("geocoding API returned HTTP %d", resp.StatusCode)
	}

	var geoResp geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&geoResp); err != nil {
		return Address{}, fmt.Errorf("decoding response: %w", err)
	}

	switch geoResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return Address{}, ErrNoResults
	default:
		return Address{}, fmt.Errorf("geocoding failed: status=%s %s", geoResp.Status, geoResp.ErrorMessage)
	}
	if len(geoResp.Results) == 0 {
		return Address{}, ErrNoResults
	}

	result := geoResp.Results[0]
	out := Address{Formatted: result.FormattedAddress}

	// Only the primary type of each component counts.
	for _, comp := range result.AddressComponents {
		if len(comp.Types) == 0 {
			continue
		}
		switch comp.Types[0] {
		case "route":
			out.Street = comp.LongName
		case "sublocality_level_1":
			out.Area = comp.LongName
		case "locality":
			out.City = comp.LongName
		case "administrative_area_level_1":
			out.State = comp.LongName
		}
	}

	return out, nil
}
