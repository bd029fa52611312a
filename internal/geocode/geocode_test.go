package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/electronjoe/photometa/internal/photo"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/", UserAgent: "photometa-test"}, zaptest.NewLogger(t))
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Golden Gate", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "photometa-test", r.Header.Get("User-Agent"))
		w.Write([]byte(`[
			{"lat": "37.8199", "lon": "-122.4783", "display_name": "Golden Gate Bridge"},
			{"lat": "bad", "lon": "0", "display_name": "Broken"},
			{"lat": "37.7694", "lon": "-122.4862", "display_name": "Golden Gate Park"}
		]`))
	})

	places, err := c.Search(context.Background(), "  Golden Gate ")
	require.NoError(t, err)
	assert.Equal(t, []Place{
		{Name: "Golden Gate Bridge", Latitude: 37.8199, Longitude: -122.4783},
		{Name: "Golden Gate Park", Latitude: 37.7694, Longitude: -122.4862},
	}, places)
}

func TestSearch_NoResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := c.Search(context.Background(), "xyzzy nowhere")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestSearch_ShortTextSkipsRequest(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	})

	places, err := c.Search(context.Background(), " a ")
	require.NoError(t, err)
	assert.Empty(t, places)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestReverse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "48.8584", r.URL.Query().Get("lat"))
		assert.Equal(t, "2.2945", r.URL.Query().Get("lon"))
		w.Write([]byte(`{"lat": "48.85826", "lon": "2.29450", "display_name": "Tour Eiffel, Paris"}`))
	})

	p, err := c.Reverse(context.Background(), 48.8584, 2.2945)
	require.NoError(t, err)
	assert.Equal(t, "Tour Eiffel, Paris", p.Name)
	assert.Equal(t, photo.GeoCoordinate{Latitude: 48.85826, Longitude: 2.2945}, p.Coordinate())
}

func TestReverse_Ocean(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "Unable to geocode"}`))
	})

	_, err := c.Reverse(context.Background(), 0, -30)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestSuggest_ServerErrorGivesEmptyList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	assert.Empty(t, c.Suggest(context.Background(), "Paris"))
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	for i := 0; i < 5; i++ {
		_, err := c.Search(context.Background(), "Paris")
		assert.Error(t, err)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestBreakerIgnoresMisses(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`[]`))
	})

	for i := 0; i < 5; i++ {
		_, err := c.Search(context.Background(), "Nowhere")
		assert.ErrorIs(t, err, ErrNoMatch)
	}
	assert.Equal(t, int32(5), atomic.LoadInt32(&hits))
}

func TestFormatCoordinate(t *testing.T) {
	assert.Equal(t, "-33.868800, 151.209300", FormatCoordinate(photo.GeoCoordinate{Latitude: -33.8688, Longitude: 151.2093}))
}
