package http

import (
	"encoding/base64"
	"errors"
	"os"
	"strings"
)

// AuthType represents supported authentication methods
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeAPIKey AuthType = "apikey"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeBasic  AuthType = "basic"
)

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Type AuthType `json:"type"`
	// API Key settings
	APIKey     string `json:"apiKey,omitempty"`
	APIKeyName string `json:"apiKeyName,omitempty"` // Header name for API key
	// Basic auth settings
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	// Bearer settings
	Token     string `json:"token,omitempty"`
	TokenFile string `json:"tokenFile,omitempty"` // Path to token file
}

func (a *AuthConfig) setDefaults() {
	if a.Type == "" {
		a.Type = AuthTypeNone
	}
	if a.Type == AuthTypeAPIKey && a.APIKeyName == "" {
		a.APIKeyName = "X-API-Key"
	}
}

func (a *AuthConfig) validate() error {
	switch a.Type {
	case AuthTypeNone:
	case AuthTypeAPIKey:
		if a.APIKey == "" {
			return errors.New("API key authentication requires an API key")
		}
	case AuthTypeBasic:
		if a.Username == "" || a.Password == "" {
			return errors.New("basic authentication requires both username and password")
		}
	case AuthTypeBearer:
		if a.Token == "" && a.TokenFile == "" {
			return errors.New("bearer authentication requires either token or token file")
		}
	default:
		return errors.New("unsupported auth type: " + string(a.Type))
	}
	return nil
}

// loadToken reads the bearer token from TokenFile when no inline token is set.
func (a *AuthConfig) loadToken() error {
	if a.Type != AuthTypeBearer || a.Token != "" {
		return nil
	}
	b, err := os.ReadFile(a.TokenFile)
	if err != nil {
		return err
	}
	a.Token = strings.TrimSpace(string(b))
	return nil
}

func (a *AuthConfig) apply(headers map[string][]string) {
	switch a.Type {
	case AuthTypeAPIKey:
		headers[a.APIKeyName] = []string{a.APIKey}
	case AuthTypeBasic:
		headers["Authorization"] = []string{"Basic " + basicAuth(a.Username, a.Password)}
	case AuthTypeBearer:
		headers["Authorization"] = []string{"Bearer " + a.Token}
	}
}

func basicAuth(username, password string) string {
	auth := username + ":" + password
	return base64.StdEncoding.EncodeToString([]byte(auth))
}
