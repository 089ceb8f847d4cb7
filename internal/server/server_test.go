package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frame-datalogger/pkg/config"
	"github.com/frame-datalogger/pkg/datalogger"
)

type fixedStatus datalogger.Status

func (f fixedStatus) Status() datalogger.Status { return datalogger.Status(f) }

func newTestServer(t *testing.T, status StatusProvider) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "datalogger_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	s := NewHTTPServer(config.NewDefaultConfig().Server, reg, status)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	code, body := get(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body)
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t, nil)
	code, body := get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "datalogger_test_total 1")
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t, fixedStatus{RunID: "run-1", Running: true, Sequence: 7, LastFilename: "frame_000006"})
	code, body := get(t, ts.URL+"/status")
	assert.Equal(t, http.StatusOK, code)

	var got datalogger.Status
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, uint64(7), got.Sequence)
	assert.Equal(t, "frame_000006", got.LastFilename)
}

func TestStatusWhenStopped(t *testing.T) {
	ts := newTestServer(t, fixedStatus{RunID: "run-2"})
	code, _ := get(t, ts.URL+"/status")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = get(t, newTestServer(t, nil).URL+"/status")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, nil)
	code, _ := get(t, ts.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, code)
}
