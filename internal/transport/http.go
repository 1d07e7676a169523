// Package transport builds the HTTP client shared by every network source.
package transport

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// BuildClient creates an HTTP client that negotiates HTTP/2 over TLS and
// falls back to HTTP/1.1 for plain http:// locations.
// A zero timeout means no overall request timeout.
func BuildClient(timeout time.Duration, insecureSkipVerify bool) (*http.Client, error) {
	if timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0, got %s", timeout)
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: insecureSkipVerify,
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   10 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
		MaxIdleConns:          16,
	}

	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("failed to enable HTTP/2: %w", err)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}
