// Package httputil provides a shared outbound HTTP client with connection
// pooling and safe response reading for the oracle adapter.
package httputil

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// MaxResponseSize is the default cap when reading response bodies.
// Keeps a misbehaving upstream from exhausting memory.
const MaxResponseSize = 10 * 1024 * 1024 // 10MB

// Shared transport with connection pooling. Safe for concurrent use;
// reusing it across clients keeps TCP connections warm between calls.
var sharedTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

var (
	clientsMu sync.Mutex
	clients   = map[time.Duration]*http.Client{}
)

// Client returns a pooled HTTP client with the given overall timeout.
// Clients are cached per timeout and share the package transport; callers
// should use this instead of constructing http.Client per request.
func Client(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clientsMu.Lock()
	defer clientsMu.Unlock()
	if c, ok := clients[timeout]; ok {
		return c
	}
	c := &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
	clients[timeout] = c
	return c
}

// ReadResponseBody reads a response body with a size limit.
//
// Usage:
//
//	body, err := httputil.ReadResponseBody(resp.Body, httputil.MaxResponseSize)
func ReadResponseBody(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = MaxResponseSize
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// DrainAndClose drains and closes a response body so the underlying
// connection can return to the pool.
func DrainAndClose(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxResponseSize))
		_ = body.Close()
	}
}
