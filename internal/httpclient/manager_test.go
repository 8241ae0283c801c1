package httpclient

import (
	"testing"
	"time"

	"lorebridge/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUpstream() types.UpstreamConfig {
	return types.UpstreamConfig{
		ConnectTimeout:        10 * time.Second,
		RequestTimeout:        60 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
	}
}

func TestGetClientReusesByFingerprint(t *testing.T) {
	m := NewManager()
	config := RequestConfig(testUpstream())

	first := m.GetClient(config)
	second := m.GetClient(config)
	require.NotNil(t, first)
	assert.Same(t, first, second)
}

func TestGetClientDistinctConfigs(t *testing.T) {
	m := NewManager()
	upstream := testUpstream()

	request := m.GetClient(RequestConfig(upstream))
	stream := m.GetClient(StreamConfig(upstream))

	assert.NotSame(t, request, stream)
	assert.Equal(t, upstream.RequestTimeout, request.Timeout)
	assert.Zero(t, stream.Timeout)
}

func TestStreamConfigDisablesCompression(t *testing.T) {
	config := StreamConfig(testUpstream())
	assert.True(t, config.DisableCompression)
	assert.Zero(t, config.RequestTimeout)
}

func TestFingerprintStability(t *testing.T) {
	a := RequestConfig(testUpstream())
	b := RequestConfig(testUpstream())
	assert.Equal(t, a.getFingerprint(), b.getFingerprint())
	assert.NotEqual(t, a.getFingerprint(), StreamConfig(testUpstream()).getFingerprint())
}
