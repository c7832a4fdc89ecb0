package metricsource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantpulse/plantpulse-backend/config"
)

func TestClient_NotConfigured(t *testing.T) {
	client := NewClient(config.MetricsSourceConfig{})

	assert.False(t, client.Configured())

	err := client.Health(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = client.Datasources(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)

	stats := client.Stats()
	assert.False(t, stats.Configured)
	assert.Zero(t, stats.Calls)
}

func TestClient_BearerTokenAndCounters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/api/health":
			fmt.Fprint(w, `{"status":"ok"}`)
		case "/api/datasources":
			fmt.Fprint(w, `[{"name":"prometheus"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(config.MetricsSourceConfig{URL: server.URL, APIToken: "secret-token"})

	require.NoError(t, client.Health(context.Background()))

	body, err := client.Datasources(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"prometheus"}]`, string(body))

	stats := client.Stats()
	assert.True(t, stats.Configured)
	assert.Equal(t, int64(2), stats.Calls)
	assert.Equal(t, int64(0), stats.Errors)
}

func TestClient_QueryRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/query_range", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, `rate(good_count[5m])`, q.Get("query"))
		assert.Equal(t, "60", q.Get("step"))
		fmt.Fprint(w, `{"status":"success","data":{}}`)
	}))
	defer server.Close()

	client := NewClient(config.MetricsSourceConfig{URL: server.URL})

	body, err := client.QueryRange(context.Background(), `rate(good_count[5m])`, "1700000000", "1700003600", "60")
	require.NoError(t, err)
	assert.Contains(t, string(body), "success")
}

func TestClient_UpstreamErrorsCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(config.MetricsSourceConfig{URL: server.URL})

	err := client.Health(context.Background())
	require.Error(t, err)

	_, err = client.Datasources(context.Background())
	require.Error(t, err)

	stats := client.Stats()
	assert.Equal(t, int64(2), stats.Calls)
	assert.Equal(t, int64(2), stats.Errors)
}
