package command

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, upstream http.Handler, args ...string) (string, error) {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	t.Setenv("RESPOND_API_URL", srv.URL)
	t.Setenv("LOG_LEVEL", "error")

	root := RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--env", filepath.Join(t.TempDir(), "missing.env")}, args...))

	err := root.Execute()
	return out.String(), err
}

func TestHealthCommand(t *testing.T) {
	out, err := runCommand(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok"}`)
	}), "health")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
}

func TestHealthCommandFails(t *testing.T) {
	_, err := runCommand(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}), "health")
	assert.Error(t, err)
}

func TestLatestMetricsCommand(t *testing.T) {
	out, err := runCommand(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("n"))
		fmt.Fprint(w, `{"data": [
			{"month": "2024-12", "leads": 900, "cpl": 7.1, "roi": 1.4},
			{"month": "2025-01", "leads": 950, "cpl": null, "roi": 1.5}
		]}`)
	}), "latest-metrics", "--months", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "2025-01")
	assert.Contains(t, out, "950")
	assert.Contains(t, out, "—")
	assert.Contains(t, out, "1.50")
}

func TestLatestMetricsEmpty(t *testing.T) {
	out, err := runCommand(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": []}`)
	}), "latest-metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "Нет данных")
}

func TestUnknownSurfaceRejected(t *testing.T) {
	_, err := runCommand(t, http.NotFoundHandler(), "--surface", "slack", "once")
	assert.Error(t, err)
}
