package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/flowmesh/flowmesh/internal/activity"
	"github.com/flowmesh/flowmesh/internal/client"
	"github.com/flowmesh/flowmesh/internal/durable"
	"github.com/flowmesh/flowmesh/internal/engine"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
	"github.com/flowmesh/flowmesh/internal/quorum"
	"github.com/flowmesh/flowmesh/internal/store/manifeststore"
	"github.com/flowmesh/flowmesh/internal/store/storetest"
)

const greeterManifestYAML = `
app: greeter
version: "1"
graph:
  entry: start
  activities:
    start:
      id: start
      kind: trigger
      transitions:
        - to: finish
    finish:
      id: finish
      kind: signal
      signal_id: greeter.done
`

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&manifeststore.Record{}))
	repo := manifeststore.NewRepo(db, log)
	cache := manifeststore.NewCache(repo)

	fake := storetest.New()
	kinds := activity.NewRegistryWithDurable(durable.NewFuncRegistry())
	eng := engine.New(fake, cache, kinds, log)
	bus := quorum.NewBus(fake, log)
	c := client.New(fake, repo, cache, eng, bus, nil, log)

	return NewRouter(c, log)
}

func TestDeployActivateAndPub(t *testing.T) {
	h := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/deploy", bytes.NewBufferString(greeterManifestYAML))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/v1/apps/greeter/activate", bytes.NewBufferString(`{"version":"1"}`))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	pubBody := `{"app":"greeter","version":"1","entry":"start","payload":{"name":"ada"}}`
	req = httptest.NewRequest(http.MethodPost, "/v1/pub", bytes.NewBufferString(pubBody))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var out struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.NotEmpty(t, out.JobID)
}

func TestPubSubAndQueryState(t *testing.T) {
	h := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/deploy", bytes.NewBufferString(greeterManifestYAML))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/v1/apps/greeter/activate", bytes.NewBufferString(`{"version":"1"}`))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	pubSubBody := `{"app":"greeter","version":"1","entry":"start","payload":{"name":"ada"},"timeout_ms":1000}`
	req = httptest.NewRequest(http.MethodPost, "/v1/pubsub", bytes.NewBufferString(pubSubBody))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var out struct {
		Job struct {
			JobID  string `json:"jid"`
			Status int    `json:"status"`
		} `json:"job"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.NotEmpty(t, out.Job.JobID)

	req = httptest.NewRequest(http.MethodGet, "/v1/jobs/"+out.Job.JobID+"/query?fields=md.name", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var state struct {
		State map[string]any `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.Equal(t, "ada", state.State["md.name"])
}

func TestInterruptUnknownJobReturnsNotFound(t *testing.T) {
	h := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/does-not-exist/interrupt", bytes.NewBufferString(`{"reason":"test"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSignalDeliversPayload(t *testing.T) {
	h := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/signals/approvals.order-1", bytes.NewBufferString(`{"payload":{"approved":true}}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var out struct {
		StreamID string `json:"stream_id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.NotEmpty(t, out.StreamID)
}

func TestThrottleWithoutConfiguredCacheAlwaysAllows(t *testing.T) {
	h := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/throttle/some-key?window_ms=1000", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var out struct {
		Allowed bool `json:"allowed"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.True(t, out.Allowed)
}

func TestHealthz(t *testing.T) {
	h := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
