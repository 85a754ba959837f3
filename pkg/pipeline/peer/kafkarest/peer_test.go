package kafkarest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/edgeflare/postemu/pkg/httputil"
	"github.com/edgeflare/postemu/pkg/pipeline"
	"github.com/edgeflare/postemu/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type captured struct {
	method      string
	path        string
	contentType string
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
			body:        body,
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func connect(t *testing.T, invokeURL string, logger *zap.Logger) *PeerKafkaREST {
	t.Helper()
	p := &PeerKafkaREST{}
	cfg := fmt.Sprintf(`{"invokeURL":%q,"topicPrefix":"0a1b2c3d4e5f"}`, invokeURL)
	require.NoError(t, p.Connect(json.RawMessage(cfg), logger))
	return p
}

func TestPeerKafkaRESTPub(t *testing.T) {
	srv, reqs := newServer(t, http.StatusOK)
	p := connect(t, srv.URL+"/prod/topics/", zap.NewNop())

	user := &record.User{
		Ind:        7528,
		FirstName:  "Abigail",
		LastName:   "Ali",
		Age:        20,
		DateJoined: time.Date(2015, 10, 24, 11, 23, 51, 0, time.UTC),
	}
	require.NoError(t, p.Pub(context.Background(), user))

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/prod/topics/0a1b2c3d4e5f.user", req.path)
	assert.Equal(t, ContentType, req.contentType)
	assert.JSONEq(t,
		`{"records":[{"value":{"ind":7528,"first_name":"Abigail","last_name":"Ali","age":20,"date_joined":"2015-10-24 11:23:51"}}]}`,
		string(req.body))
}

func TestPeerKafkaRESTURL(t *testing.T) {
	p := connect(t, "https://example.com/prod/topics/", nil)
	assert.Equal(t, "https://example.com/prod/topics/0a1b2c3d4e5f.pin", p.URL(record.KindPin))
	assert.Equal(t, "0a1b2c3d4e5f.geo", p.Topic(record.KindGeo))

	// the invoke URL is used verbatim
	p = connect(t, "https://example.com/prod/topics", nil)
	assert.Equal(t, "https://example.com/prod/topics0a1b2c3d4e5f.user", p.URL(record.KindUser))
}

func TestPeerKafkaRESTStatusLogs(t *testing.T) {
	testCases := []struct {
		message string
		status  int
	}{
		{status: 200, message: "Data sent successfully!"},
		{status: 401, message: "Status Code: 401 Authentication error. Check your API key or token."},
		{status: 403, message: "Status Code: 403 Authorization error. Insufficient permissions."},
		{status: 404, message: "Status Code: 404 API endpoint not found."},
		{status: 500, message: "Status Code: 500 Internal server error. Check the API server logs."},
		{status: 418, message: "Unexpected error: 418"},
	}

	for _, tc := range testCases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			core, logs := observer.New(zap.InfoLevel)
			srv, _ := newServer(t, tc.status)
			p := connect(t, srv.URL+"/", zap.New(core))

			err := p.Pub(context.Background(), &record.Pin{Index: 1})
			if tc.status == http.StatusOK {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, httputil.ErrUnexpectedStatus)
			}

			entries := logs.FilterMessage(tc.message).All()
			require.Len(t, entries, 1)
			assert.Equal(t, "0a1b2c3d4e5f.pin", entries[0].ContextMap()["topic"])
		})
	}
}

func TestPeerKafkaRESTNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	core, logs := observer.New(zap.InfoLevel)
	p := connect(t, url+"/", zap.New(core))

	err := p.Pub(context.Background(), &record.Geo{})
	require.Error(t, err)

	entries := logs.All()
	require.Len(t, entries, 2, "connect log and failure log")
	assert.True(t, strings.HasPrefix(entries[1].Message, "Request failed: Post "), entries[1].Message)
	assert.NotContains(t, entries[1].Message, "request failed")
}

func TestPeerKafkaRESTConnectInvalid(t *testing.T) {
	for _, cfg := range []string{
		`{`,
		`{"topicPrefix":"x"}`,
		`{"invokeURL":"http://localhost/"}`,
		`{"invokeURL":"http://localhost/","topicPrefix":"x","timeout":"?"}`,
	} {
		var ce *pipeline.ConfigError
		assert.ErrorAs(t, (&PeerKafkaREST{}).Connect(json.RawMessage(cfg)), &ce, cfg)
	}
}

func TestPeerKafkaRESTNotConnected(t *testing.T) {
	assert.ErrorIs(t, (&PeerKafkaREST{}).Pub(context.Background(), &record.Pin{}), pipeline.ErrNotConnected)
}
