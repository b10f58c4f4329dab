package geocoding

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lagosResponse = `{
  "status": "OK",
  "results": [{
    "formatted_address": "12 Allen Ave, Ikeja, Lagos, Nigeria",
    "address_components": [
      {"long_name": "12", "short_name": "12", "types": ["street_number"]},
      {"long_name": "Allen Avenue", "short_name": "Allen Ave", "types": ["route"]},
      {"long_name": "Ikeja", "short_name": "Ikeja", "types": ["sublocality_level_1", "sublocality", "political"]},
      {"long_name": "Lagos", "short_name": "Lagos", "types": ["locality", "political"]},
      {"long_name": "Lagos State", "short_name": "LA", "types": ["administrative_area_level_1", "political"]},
      {"long_name": "Nigeria", "short_name": "NG", "types": ["country", "political"]}
    ]
  }]
}`

func fakeGoogle(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "6.601800,3.351500", r.URL.Query().Get("latlng"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClientWithoutKey(t *testing.T) {
	assert.Nil(t, NewClient(""))
}

func TestReverseGeocode(t *testing.T) {
	srv := fakeGoogle(t, http.StatusOK, lagosResponse)
	c := NewClient("test-key").WithBaseURL(srv.URL)

	addr, err := c.ReverseGeocode(context.Background(), 6.6018, 3.3515)
	require.NoError(t, err)

	assert.Equal(t, "Allen Avenue", addr.Street)
	assert.Equal(t, "Ikeja", addr.Area)
	assert.Equal(t, "Lagos", addr.City)
	assert.Equal(t, "Lagos State", addr.State)
	assert.Equal(t, "12 Allen Ave, Ikeja, Lagos, Nigeria", addr.Formatted)
	assert.Equal(t, "Allen Avenue, Ikeja, Lagos, Lagos State", addr.Detailed())
}

func TestReverseGeocodeZeroResults(t *testing.T) {
	srv := fakeGoogle(t, http.StatusOK, `{"status":"ZERO_RESULTS","results":[]}`)
	c := NewClient("test-key").WithBaseURL(srv.URL)

	_, err := c.ReverseGeocode(context.Background(), 6.6018, 3.3515)
	assert.True(t, errors.Is(err, ErrNoResults))
}

func TestReverseGeocodeFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusForbidden, `{}`},
		{"denied", http.StatusOK, `{"status":"REQUEST_DENIED","error_message":"bad key","results":[]}`},
		{"garbage", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeGoogle(t, tt.status, tt.body)
			c := NewClient("test-key").WithBaseURL(srv.URL)

			_, err := c.ReverseGeocode(context.Background(), 6.6018, 3.3515)
			assert.Error(t, err)
			assert.False(t, errors.Is(err, ErrNoResults))
		})
	}
}

func TestAddressDetailedSkipsEmptyParts(t *testing.T) {
	assert.Equal(t, "Lagos, Lagos State", Address{City: "Lagos", State: "Lagos State"}.Detailed())
	assert.Equal(t, "", Address{}.Detailed())
}
