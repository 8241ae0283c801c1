// Package httpclient manages pooled HTTP clients for backend traffic.
package httpclient

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"lorebridge/internal/types"

	"github.com/sirupsen/logrus"
)

// Config defines the parameters for creating an HTTP client. It doubles as
// the cache key: clients built from equal configs are shared.
type Config struct {
	ConnectTimeout        time.Duration
	RequestTimeout        time.Duration
	IdleConnTimeout       time.Duration
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	ResponseHeaderTimeout time.Duration
	DisableCompression    bool
}

// Manager creates and caches HTTP clients by configuration fingerprint so
// transports with identical settings share one connection pool.
type Manager struct {
	clients map[string]*http.Client
	lock    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]*http.Client),
	}
}

// RequestConfig builds the client config for buffered request/response
// exchanges against the backend.
func RequestConfig(upstream types.UpstreamConfig) *Config {
	return &Config{
		ConnectTimeout:        upstream.ConnectTimeout,
		RequestTimeout:        upstream.RequestTimeout,
		IdleConnTimeout:       upstream.IdleConnTimeout,
		MaxIdleConns:          upstream.MaxIdleConns,
		MaxIdleConnsPerHost:   upstream.MaxIdleConnsPerHost,
		ResponseHeaderTimeout: upstream.ResponseHeaderTimeout,
	}
}

// StreamConfig builds the client config for SSE responses. The overall
// request timeout is removed because a healthy stream can legitimately
// outlive any fixed deadline, and transparent decompression is disabled so
// bytes are relayed as the backend framed them.
func StreamConfig(upstream types.UpstreamConfig) *Config {
	return &Config{
		ConnectTimeout:        upstream.ConnectTimeout,
		RequestTimeout:        0,
		IdleConnTimeout:       upstream.IdleConnTimeout,
		MaxIdleConns:          upstream.MaxIdleConns,
		MaxIdleConnsPerHost:   upstream.MaxIdleConnsPerHost,
		ResponseHeaderTimeout: upstream.ResponseHeaderTimeout,
		DisableCompression:    true,
	}
}

// GetClient returns an HTTP client matching the given configuration,
// creating and caching it on first use.
func (m *Manager) GetClient(config *Config) *http.Client {
	fingerprint := config.getFingerprint()

	m.lock.RLock()
	client, exists := m.clients[fingerprint]
	m.lock.RUnlock()
	if exists {
		return client
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	// Another goroutine may have created it while we waited for the lock.
	if client, exists = m.clients[fingerprint]; exists {
		return client
	}

	// Allow bursts beyond the idle pool, with a floor so a very small idle
	// pool does not throttle concurrency.
	maxConnsPerHost := config.MaxIdleConnsPerHost * 2
	if maxConnsPerHost < 10 {
		maxConnsPerHost = 10
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		MaxConnsPerHost:       maxConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		DisableCompression:    config.DisableCompression,
	}

	newClient := &http.Client{
		Transport: transport,
		Timeout:   config.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			return nil
		},
	}

	m.clients[fingerprint] = newClient

	logrus.WithFields(logrus.Fields{
		"fingerprint":        fingerprint,
		"timeout":            config.RequestTimeout,
		"max_conns_per_host": maxConnsPerHost,
	}).Debug("Created new HTTP client")

	return newClient
}

// CloseIdleConnections closes idle connections for all managed clients.
// Called during graceful shutdown.
func (m *Manager) CloseIdleConnections() {
	m.lock.RLock()
	defer m.lock.RUnlock()

	for _, client := range m.clients {
		if transport, ok := client.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
	}
	logrus.Debug("Closed idle connections for managed HTTP clients")
}

func (c *Config) getFingerprint() string {
	return fmt.Sprintf(
		"ct:%.0fs|rt:%.0fs|it:%.0fs|mic:%d|mich:%d|rht:%.0fs|dc:%t",
		c.ConnectTimeout.Seconds(),
		c.RequestTimeout.Seconds(),
		c.IdleConnTimeout.Seconds(),
		c.MaxIdleConns,
		c.MaxIdleConnsPerHost,
		c.ResponseHeaderTimeout.Seconds(),
		c.DisableCompression,
	)
}
