// Package httpclient provides a centralized HTTP client factory with
// unified configuration for all collaborator calls.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

// ClientConfig holds configuration options for creating HTTP clients.
type ClientConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// Timeout is the overall request time limit. Collaborator calls own
	// their timeouts; the orchestrator does not impose one.
	Timeout time.Duration

	DialTimeout         time.Duration
	KeepAlive           time.Duration
	TLSHandshakeTimeout time.Duration
}

// DefaultConfig returns settings sized for blocking model-inference calls.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		Timeout:             120 * time.Second,
		DialTimeout:         30 * time.Second,
		KeepAlive:           30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// New creates an HTTP client with the provided configuration. A nil config
// selects DefaultConfig.
func New(config *ClientConfig) *http.Client {
	if config == nil {
		cfg := DefaultConfig()
		config = &cfg
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}
}

// NewDefault creates an HTTP client with default configuration.
func NewDefault() *http.Client {
	return New(nil)
}
