package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/edgeflare/postemu/pkg/httputil"
	"github.com/edgeflare/postemu/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSenderAuthHeaders(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("s3cret\n"), 0o600))

	testCases := []struct {
		name   string
		auth   AuthConfig
		header string
		want   string
	}{
		{name: "apikey", auth: AuthConfig{Type: AuthTypeAPIKey, APIKey: "k"}, header: "X-API-Key", want: "k"},
		{name: "apikey custom header", auth: AuthConfig{Type: AuthTypeAPIKey, APIKey: "k", APIKeyName: "x-api-key-2"}, header: "X-Api-Key-2", want: "k"},
		{name: "bearer", auth: AuthConfig{Type: AuthTypeBearer, Token: "t"}, header: "Authorization", want: "Bearer t"},
		{name: "bearer file", auth: AuthConfig{Type: AuthTypeBearer, TokenFile: tokenFile}, header: "Authorization", want: "Bearer s3cret"},
		{name: "basic", auth: AuthConfig{Type: AuthTypeBasic, Username: "u", Password: "p"}, header: "Authorization", want: "Basic dTpw"},
		{name: "none", auth: AuthConfig{}, header: "Authorization", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get(tc.header)
			}))
			defer srv.Close()

			s, err := NewSender("test", ClientConfig{Auth: tc.auth}, nil)
			require.NoError(t, err)
			require.NoError(t, s.Send(context.Background(), http.MethodPost, srv.URL, "application/json", []byte(`{}`)))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSenderCustomHeaders(t *testing.T) {
	var gotTrace, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace = r.Header.Get("X-Trace")
		gotType = r.Header.Get("Content-Type")
	}))
	defer srv.Close()

	s, err := NewSender("test", ClientConfig{
		Headers: map[string]string{"X-Trace": "abc", "Content-Type": "text/plain"},
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), http.MethodPut, srv.URL, "application/json", []byte(`{}`)))

	assert.Equal(t, "abc", gotTrace)
	assert.Equal(t, "application/json", gotType, "content type of the sink wins")
}

func TestSenderNon200(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s, err := NewSender("test", ClientConfig{}, zap.New(core))
	require.NoError(t, err)

	err = s.Send(context.Background(), http.MethodPost, srv.URL, "application/json", []byte(`{}`))
	assert.ErrorIs(t, err, httputil.ErrUnexpectedStatus)
	assert.Equal(t, 1, logs.FilterMessage("Status Code: 404 API endpoint not found.").Len())
}

func TestNewSenderInvalid(t *testing.T) {
	testCases := []ClientConfig{
		{Timeout: "whenever"},
		{Auth: AuthConfig{Type: "oauth"}},
		{Auth: AuthConfig{Type: AuthTypeAPIKey}},
		{Auth: AuthConfig{Type: AuthTypeBasic, Username: "u"}},
		{Auth: AuthConfig{Type: AuthTypeBearer}},
		{Auth: AuthConfig{Type: AuthTypeBearer, TokenFile: "/does/not/exist"}},
	}

	for _, cfg := range testCases {
		_, err := NewSender("test", cfg, nil)
		var ce *pipeline.ConfigError
		assert.ErrorAs(t, err, &ce, "%+v", cfg)
	}
}
