package httputil

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name        string
		cfg         ClientConfig
		wantTimeout time.Duration
		wantPerHost int
	}{
		{"zero value takes defaults", ClientConfig{}, 30 * time.Second, 0},
		{"graph", GraphClientConfig(), 45 * time.Second, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.cfg)
			assert.Equal(t, tt.wantTimeout, c.Timeout)

			tr, ok := c.Transport.(*http.Transport)
			require.True(t, ok)
			assert.Equal(t, tt.wantPerHost, tr.MaxConnsPerHost)
			assert.Equal(t, 20, tr.MaxIdleConnsPerHost)
			assert.True(t, tr.ForceAttemptHTTP2)
		})
	}
}
