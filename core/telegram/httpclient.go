package telegram

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
	// Long polling keeps a getUpdates request open for the poll timeout, so the
	// total request budget must exceed it.
	defaultClientTimeout = 30 * time.Second
)

// BuildHTTPClient returns the pooled HTTP client shared by every Telegram API call.
// pollTimeout is the long poll duration; the total request timeout is kept above it.
func BuildHTTPClient(pollTimeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ExpectContinueTimeout: 1 * time.Second,
	}

	timeout := defaultClientTimeout
	if min := pollTimeout + 10*time.Second; timeout < min {
		timeout = min
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
