package legislation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"parlwatch-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestServerEndpoints(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:legislation")
	defer cleanup()

	site := newFixtureSite(t)
	dir := t.TempDir()
	service := newTestService(t, site, Config{
		DataDir:     dir,
		AccessToken: "secret",
	})

	mux := http.NewServeMux()
	service.RegisterHandlers(mux)
	api := httptest.NewServer(mux)
	defer api.Close()

	t.Run("rejects missing token", func(t *testing.T) {
		res, err := http.Get(api.URL + "/api/status")
		require.NoError(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	authed := func(method string, path string) *http.Response {
		req, err := http.NewRequest(method, api.URL+path, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer secret")
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return res
	}

	t.Run("status", func(t *testing.T) {
		res := authed(http.MethodGet, "/api/status")
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		require.Equal(t, false, body["running"])
	})

	t.Run("legislation for an unscraped year is empty", func(t *testing.T) {
		res := authed(http.MethodGet, "/api/legislation?year=2025")
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)

		var dataset Dataset
		require.NoError(t, json.NewDecoder(res.Body).Decode(&dataset))
		require.Equal(t, 0, dataset.TotalCount)
	})

	t.Run("scrape is accepted", func(t *testing.T) {
		res := authed(http.MethodPost, "/api/scrape")
		defer res.Body.Close()
		require.Equal(t, http.StatusAccepted, res.StatusCode)
	})
}
