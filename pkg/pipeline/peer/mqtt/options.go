package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/url"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// TLSOptions holds TLS configuration that can be marshaled from JSON/YAML
type TLSOptions struct {
	InsecureSkipVerify bool   `json:"insecureSkipVerify"`
	ServerName         string `json:"serverName,omitempty"`
	CAFile             string `json:"caFile,omitempty"`
	CertFile           string `json:"certFile,omitempty"`
	KeyFile            string `json:"keyFile,omitempty"`
	CACert             string `json:"caCert,omitempty"`
	ClientCert         string `json:"clientCert,omitempty"`
	ClientKey          string `json:"clientKey,omitempty"`
}

// ClientOptions is the JSON-serializable subset of paho client options.
type ClientOptions struct {
	TLS            *TLSOptions `json:"tls,omitempty"`
	ClientID       string      `json:"clientID"`
	Username       string      `json:"username"`
	Password       string      `json:"password"`
	ConnectTimeout string      `json:"connectTimeout,omitempty"`
	WriteTimeout   string      `json:"writeTimeout,omitempty"`
	KeepAlive      int64       `json:"keepAlive,omitempty"` // seconds
	CleanSession   *bool       `json:"cleanSession,omitempty"`
}

const defaultBroker = "tcp://127.0.0.1:1883"

func convertToPahoOptions(servers []string, opts *ClientOptions) (*mqtt.ClientOptions, error) {
	pahoOpts := mqtt.NewClientOptions()

	if len(servers) == 0 {
		servers = []string{defaultBroker}
	}
	for _, server := range servers {
		if _, err := url.Parse(server); err != nil {
			return nil, fmt.Errorf("failed to parse server URL %s: %w", server, err)
		}
		pahoOpts.AddBroker(server)
	}

	clientID := opts.ClientID
	if clientID == "" {
		clientID = "postemu-" + uuid.NewString()[:8]
	}
	pahoOpts.SetClientID(clientID)

	if opts.Username != "" {
		pahoOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		pahoOpts.SetPassword(opts.Password)
	}
	if opts.TLS != nil {
		tlsConfig, err := createTLSConfig(opts.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		pahoOpts.SetTLSConfig(tlsConfig)
	}
	if opts.KeepAlive > 0 {
		pahoOpts.SetKeepAlive(time.Duration(opts.KeepAlive) * time.Second)
	}
	if opts.ConnectTimeout != "" {
		d, err := time.ParseDuration(opts.ConnectTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid connectTimeout: %w", err)
		}
		pahoOpts.SetConnectTimeout(d)
	}
	if opts.WriteTimeout != "" {
		d, err := time.ParseDuration(opts.WriteTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid writeTimeout: %w", err)
		}
		pahoOpts.SetWriteTimeout(d)
	}
	if opts.CleanSession != nil {
		pahoOpts.SetCleanSession(*opts.CleanSession)
	}

	// publish-only: a lost connection is re-established by paho
	pahoOpts.SetAutoReconnect(true)
	pahoOpts.SetOrderMatters(true)

	return pahoOpts, nil
}

func createTLSConfig(tlsOpts *TLSOptions) (*tls.Config, error) {
	config := &tls.Config{
		InsecureSkipVerify: tlsOpts.InsecureSkipVerify,
		ServerName:         tlsOpts.ServerName,
	}

	if tlsOpts.CAFile != "" || tlsOpts.CACert != "" {
		caCert := []byte(tlsOpts.CACert)
		if tlsOpts.CAFile != "" {
			var err error
			caCert, err = os.ReadFile(tlsOpts.CAFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read CA file: %w", err)
			}
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		config.RootCAs = caCertPool
	}

	var (
		cert tls.Certificate
		err  error
	)
	switch {
	case tlsOpts.CertFile != "" && tlsOpts.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(tlsOpts.CertFile, tlsOpts.KeyFile)
	case tlsOpts.ClientCert != "" && tlsOpts.ClientKey != "":
		cert, err = tls.X509KeyPair([]byte(tlsOpts.ClientCert), []byte(tlsOpts.ClientKey))
	default:
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}
	config.Certificates = []tls.Certificate{cert}

	return config, nil
}
