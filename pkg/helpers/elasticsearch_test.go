package helpers

import (
	"crypto/tls"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewESClient(t *testing.T) {
	_, err := NewESClient(nil, "", "")
	assert.ErrorIs(t, err, ErrNoESAddrs)

	es, err := NewESClient([]string{"http://localhost:9200"}, "elastic", "changeme")
	require.NoError(t, err)
	assert.NotNil(t, es)

	cfg := esConfig([]string{"http://es-1:9200", "http://es-2:9200"}, "elastic", "changeme")
	assert.Len(t, cfg.Addresses, 2)
	assert.Equal(t, "elastic", cfg.Username)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.ElementsMatch(t, []int{502, 503, 504}, cfg.RetryOnStatus)
	tr, ok := cfg.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, uint16(tls.VersionTLS12), tr.TLSClientConfig.MinVersion)
}
