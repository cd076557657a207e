package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eryxon/uns-gateway/internal/model"
)

// stubBroker points a BrokerConfig at a httptest server.
func stubBroker(t *testing.T, srv *httptest.Server) model.BrokerConfig {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return model.BrokerConfig{ID: "brk_test", Host: u.Hostname(), Port: port}
}

func TestBridgeProbesUntilFirst2xx(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/api/v1/mqtt/publish" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	br := NewBridge(time.Second)
	err := br.Publish(context.Background(), stubBroker(t, srv), "acme/plant/topic", []byte(`{"k":"v"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/v5/publish", "/api/v1/mqtt/publish"}, paths)
}

func TestBridgeReusesLastGoodCandidate(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/publish" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	br := NewBridge(time.Second)
	b := stubBroker(t, srv)

	require.NoError(t, br.Publish(context.Background(), b, "t", []byte(`{}`)))
	require.Len(t, paths, 4) // probed everything once

	require.NoError(t, br.Publish(context.Background(), b, "t", []byte(`{}`)))
	assert.Equal(t, "/publish", paths[4]) // second call goes straight to the winner
	assert.Len(t, paths, 5)
}

func TestBridgePinnedVendorTriesOnlyThatShape(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	br := NewBridge(time.Second)
	b := stubBroker(t, srv)
	b.Transport = model.TransportEMQX

	err := br.Publish(context.Background(), b, "t", []byte(`{}`))
	require.Error(t, err)
	assert.Equal(t, []string{"/api/v5/publish"}, paths)
	assert.Contains(t, err.Error(), "status=403")
}

func TestBridgeSetsBasicAuthAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "svc", user)
		assert.Equal(t, "secret", pass)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "acme/main/operation/started", body["topic"])
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	b := stubBroker(t, srv)
	b.Username = "svc"
	b.Password = "secret"
	b.Transport = model.TransportEMQX

	br := NewBridge(time.Second)
	require.NoError(t, br.Publish(context.Background(), b, "acme/main/operation/started", []byte(`{"event":"operation.started"}`)))
}

func TestBridgeAllCandidatesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	br := NewBridge(time.Second)
	err := br.Publish(context.Background(), stubBroker(t, srv), "t", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4 bridge endpoint(s)")
	assert.Contains(t, err.Error(), "emqx: status=502")
	assert.Contains(t, err.Error(), "generic: status=502")
}

func TestAdapterMeasuresWholeCallAndNeverErrors(t *testing.T) {
	// Connection refused fast on a closed port.
	b := model.BrokerConfig{ID: "brk_down", Host: "127.0.0.1", Port: 1}

	a := NewAdapter(500 * time.Millisecond)
	res := a.Publish(context.Background(), b, "t", []byte(`{}`))
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.GreaterOrEqual(t, res.LatencyMs, int64(0))
}
