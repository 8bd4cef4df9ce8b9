package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ivr-analytics/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	srv := httptest.NewServer(newRouter(st))
	t.Cleanup(srv.Close)
	return srv, st
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}

func TestStepWebhook_GET(t *testing.T) {
	srv, st := newTestServer(t)

	resp, err := http.Get(srv.URL + "/webhook/ivr/language?CallSid=CA600&digits=%221%22&From=%2B919876543210")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "CA600", body["call_sid"])
	assert.Equal(t, "1", body["digit"])

	rec, err := st.GetPath(context.Background(), "CA600")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "1----", rec.CompletePath)
}

func TestStepWebhook_POST(t *testing.T) {
	srv, st := newTestServer(t)

	form := url.Values{
		"CallSid": {"CA601"},
		"digits":  {"2"},
		"From":    {"+919000000001"},
	}
	resp, err := http.Post(srv.URL+"/webhook/ivr/state",
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	rec, err := st.GetPath(context.Background(), "CA601")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "-2---", rec.CompletePath)
}

func TestStepWebhook_MissingCallSid(t *testing.T) {
	srv, st := newTestServer(t)

	resp, err := http.Get(srv.URL + "/webhook/ivr/language?digits=1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "CallSid is required", decodeBody(t, resp)["error"])

	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalCalls)
}

func TestStepWebhook_UnknownStep(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/webhook/ivr/pincode?CallSid=CA602&digits=1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeBody(t, resp)["error"], "unknown IVR step")
}

func TestStepWebhook_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/webhook/ivr/language?CallSid=CA603", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWebhookTest(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/webhook/test")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "active", decodeBody(t, resp)["status"])
}

func TestListPathsAPI(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, q := range []string{
		"CallSid=CA604&digits=1",
		"CallSid=CA605&digits=2",
	} {
		resp, err := http.Get(srv.URL + "/webhook/ivr/language?" + q)
		require.NoError(t, err)
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/api/ivr/paths")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 2, body["count"])

	// Date filters pass through to the store.
	resp, err = http.Get(srv.URL + "/api/ivr/paths?start_date=2030-01-01")
	require.NoError(t, err)
	body = decodeBody(t, resp)
	assert.EqualValues(t, 0, body["count"])
}

func TestStatsAPI(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/webhook/ivr/language?CallSid=CA606&digits=1")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/ivr/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.EqualValues(t, 1, body["total_calls"])
}
