// snapshot/provider_test.go
package snapshot_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	conformd_errors "github.com/conformd/conformd/errors"
	logger "github.com/conformd/conformd/logging"
	"github.com/conformd/conformd/snapshot"
)

func TestStaticProvider(t *testing.T) {
	provider := snapshot.NewStaticProvider(map[string]interface{}{
		"root_mfa_enabled": true,
	})

	snap, err := provider.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, snap.Attributes["root_mfa_enabled"])
	assert.Equal(t, "static", snap.Source)
	assert.False(t, snap.TakenAt.IsZero())
}

func TestStaticProvider_CancelledContext(t *testing.T) {
	provider := snapshot.NewStaticProvider(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provider.Capture(ctx)
	assert.Error(t, err)
}

func TestHTTPProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cloudtrail_enabled": true, "region_count": 4}`))
	}))
	defer server.Close()

	provider := snapshot.NewHTTPProvider(server.URL, time.Second)
	snap, err := provider.Capture(context.Background())
	require.NoError(t, err)

	assert.Equal(t, true, snap.Attributes["cloudtrail_enabled"])
	assert.Equal(t, float64(4), snap.Attributes["region_count"])
	assert.Equal(t, server.URL, snap.Source)
}

func TestHTTPProvider_CollectorError(t *testing.T) {
	logger.InitLogger(t.TempDir())
	defer logger.Sync()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := snapshot.NewHTTPProvider(server.URL, time.Second)
	_, err := provider.Capture(context.Background())
	assert.ErrorIs(t, err, conformd_errors.ErrSnapshotUnavailable)
}

func TestHTTPProvider_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	provider := snapshot.NewHTTPProvider(server.URL, time.Second)
	_, err := provider.Capture(context.Background())
	assert.ErrorIs(t, err, conformd_errors.ErrSnapshotUnavailable)
}
