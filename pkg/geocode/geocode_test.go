package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "foodshare-test", 1000)
}

func TestClient_Search(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "MG Road", r.URL.Query().Get("q"))
		assert.Equal(t, "foodshare-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[{"lat":"12.97","lon":"77.60","display_name":"MG Road, Bengaluru"},{"lat":"bad","lon":"1"}]`))
	})

	locs, err := c.Search(context.Background(), "MG Road")
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.InDelta(t, 12.97, locs[0].Lat, 1e-9)
	assert.InDelta(t, 77.60, locs[0].Lng, 1e-9)
	assert.Equal(t, "MG Road, Bengaluru", locs[0].Address)
}

func TestClient_SearchNoResults(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.Search(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestClient_SearchServerError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Search(context.Background(), "anything")
	assert.Error(t, err)
}

func TestClient_Reverse(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "12.5", r.URL.Query().Get("lat"))
		_, _ = w.Write([]byte(`{"display_name":"Somewhere"}`))
	})

	addr, err := c.Reverse(context.Background(), 12.5, 77.1)
	require.NoError(t, err)
	assert.Equal(t, "Somewhere", addr)
}
