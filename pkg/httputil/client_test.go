package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	neturl "net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequest(t *testing.T) {
	var gotMethod, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"offsets":[]}`))
	}))
	defer srv.Close()

	cfg := DefaultRequestConfig(http.MethodPut, srv.URL)
	resp, err := Request(context.Background(), cfg, map[string]string{"hello": "world"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"offsets":[]}`, string(resp.Body))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "application/json", gotType)
	assert.JSONEq(t, `{"hello":"world"}`, gotBody)
}

func TestRequestKeepsExplicitContentType(t *testing.T) {
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
	}))
	defer srv.Close()

	cfg := DefaultRequestConfig(http.MethodPost, srv.URL)
	cfg.Headers = map[string][]string{"Content-Type": {"application/vnd.kafka.json.v2+json"}}
	_, err := Request(context.Background(), cfg, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.kafka.json.v2+json", gotType)
}

func TestRequestSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	resp, err := Request(context.Background(), DefaultRequestConfig(http.MethodPost, srv.URL), "x")
	require.NoError(t, err, "status codes are not transport errors")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRequestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	resp, err := Request(context.Background(), DefaultRequestConfig(http.MethodPost, url), "x")
	require.Error(t, err)
	assert.Nil(t, resp)

	var urlErr *neturl.Error
	require.ErrorAs(t, err, &urlErr)
	assert.Equal(t, "Post", urlErr.Op)
	assert.True(t, strings.HasPrefix(FailureMessage(err), "Request failed: Post "), FailureMessage(err))
}

func TestRequestDebugLog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	core, logs := observer.New(zap.DebugLevel)
	cfg := DefaultRequestConfig(http.MethodPost, srv.URL)
	cfg.Logger = zap.New(core)
	_, err := Request(context.Background(), cfg, "abc")
	require.NoError(t, err)

	entries := logs.FilterMessage("sending request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].ContextMap()["bytes"])
}

func TestStatusMessage(t *testing.T) {
	testCases := []struct {
		want string
		code int
	}{
		{code: 200, want: "Data sent successfully!"},
		{code: 401, want: "Status Code: 401 Authentication error. Check your API key or token."},
		{code: 403, want: "Status Code: 403 Authorization error. Insufficient permissions."},
		{code: 404, want: "Status Code: 404 API endpoint not found."},
		{code: 500, want: "Status Code: 500 Internal server error. Check the API server logs."},
		{code: 201, want: "Unexpected error: 201"},
		{code: 502, want: "Unexpected error: 502"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, StatusMessage(tc.code))
	}
}

func TestLogOutcome(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	LogOutcome(logger, &Response{StatusCode: 200}, nil, zap.String("sink", "kafka"))
	LogOutcome(logger, &Response{StatusCode: 403}, nil)
	LogOutcome(logger, nil, errors.New("dial tcp: connection refused"))

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "Data sent successfully!", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "kafka", entries[0].ContextMap()["sink"])
	assert.Equal(t, int64(200), entries[0].ContextMap()["status"])

	assert.Equal(t, "Status Code: 403 Authorization error. Insufficient permissions.", entries[1].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)

	assert.Equal(t, "Request failed: dial tcp: connection refused", entries[2].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}
