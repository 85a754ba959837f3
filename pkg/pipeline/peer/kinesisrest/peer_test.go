package kinesisrest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/edgeflare/postemu/pkg/httputil"
	"github.com/edgeflare/postemu/pkg/pipeline"
	"github.com/edgeflare/postemu/pkg/record"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type captured struct {
	method      string
	path        string
	contentType string
	apiKey      string
	body        []byte
}

func newServer(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var reqs []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqs = append(reqs, captured{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			apiKey:      r.Header.Get("X-API-Key"),
			body:        body,
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func config(base string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"streamPrefix": "streaming-0a1b2c",
		"endpoints": {
			"pin": "%[1]s/streams/streaming-0a1b2c-pin/record",
			"geo": "%[1]s/streams/streaming-0a1b2c-geo/record",
			"user": "%[1]s/streams/streaming-0a1b2c-user/record"
		},
		"auth": {"type": "apikey", "apiKey": "k"}
	}`, base))
}

func TestPeerKinesisRESTPub(t *testing.T) {
	srv, reqs := newServer(t, http.StatusOK)
	p := &PeerKinesisREST{newKey: func() string { return "7c9e6679-7425-40de-944b-e07fc1f90ae7" }}
	require.NoError(t, p.Connect(config(srv.URL)))

	geo := &record.Geo{
		Ind:       7528,
		Timestamp: time.Date(2020, 8, 28, 3, 52, 47, 0, time.UTC),
		Latitude:  -89.9787,
		Longitude: -173.293,
		Country:   "Albania",
	}
	require.NoError(t, p.Pub(context.Background(), geo))

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/streams/streaming-0a1b2c-geo/record", req.path)
	assert.Equal(t, ContentType, req.contentType)
	assert.Equal(t, "k", req.apiKey)
	assert.JSONEq(t, `{
		"StreamName": "streaming-0a1b2c-geo",
		"Data": {"ind":7528,"timestamp":"2020-08-28T03:52:47","latitude":-89.9787,"longitude":-173.293,"country":"Albania"},
		"PartitionKey": "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	}`, string(req.body))
}

func TestPeerKinesisRESTFreshPartitionKeys(t *testing.T) {
	srv, reqs := newServer(t, http.StatusOK)
	p := &PeerKinesisREST{}
	require.NoError(t, p.Connect(config(srv.URL)))

	for range 2 {
		require.NoError(t, p.Pub(context.Background(), &record.Pin{}))
	}

	keys := make([]string, 0, 2)
	for _, req := range *reqs {
		var body record.KinesisRequest
		require.NoError(t, json.Unmarshal(req.body, &body))
		_, err := uuid.Parse(body.PartitionKey)
		require.NoError(t, err)
		keys = append(keys, body.PartitionKey)
	}
	assert.NotEqual(t, keys[0], keys[1])
}

func TestPeerKinesisRESTStatusLogs(t *testing.T) {
	testCases := []struct {
		message string
		status  int
	}{
		{status: 200, message: "Data sent successfully!"},
		{status: 401, message: "Status Code: 401 Authentication error. Check your API key or token."},
		{status: 403, message: "Status Code: 403 Authorization error. Insufficient permissions."},
		{status: 404, message: "Status Code: 404 API endpoint not found."},
		{status: 500, message: "Status Code: 500 Internal server error. Check the API server logs."},
		{status: 503, message: "Unexpected error: 503"},
	}

	for _, tc := range testCases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			core, logs := observer.New(zap.InfoLevel)
			srv, _ := newServer(t, tc.status)
			p := &PeerKinesisREST{}
			require.NoError(t, p.Connect(config(srv.URL), zap.New(core)))

			err := p.Pub(context.Background(), &record.User{})
			if tc.status == http.StatusOK {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, httputil.ErrUnexpectedStatus)
			}

			entries := logs.FilterMessage(tc.message).All()
			require.Len(t, entries, 1)
			assert.Equal(t, "streaming-0a1b2c-user", entries[0].ContextMap()["stream"])
		})
	}
}

func TestPeerKinesisRESTConnectInvalid(t *testing.T) {
	for _, cfg := range []string{
		`{`,
		`{"endpoints":{"pin":"a","geo":"b","user":"c"}}`,
		`{"streamPrefix":"s","endpoints":{"pin":"a","geo":"b"}}`,
	} {
		var ce *pipeline.ConfigError
		assert.ErrorAs(t, (&PeerKinesisREST{}).Connect(json.RawMessage(cfg)), &ce, cfg)
	}
}
