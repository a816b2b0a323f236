package kakaogateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Behyna/sms-services/creditgateway/pkg/httpclient"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, token string, expiresIn int64, hits *int32) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		time.Sleep(20 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(TokenResponse{AccessToken: token, ExpiresIn: expiresIn})
	}))
}

func TestAuthenticate_ConcurrentCallersShareOneExchange(t *testing.T) {
	var hits int32
	server := tokenServer(t, "opaque", 3600, &hits)
	defer server.Close()

	gw := NewGateway(Config{BaseURL: server.URL, TokenRefreshSkew: 30 * time.Second},
		httpclient.NewHTTPClient(time.Second))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := gw.Authenticate(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "opaque", token)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestAuthenticate_RefreshesNearExpiry(t *testing.T) {
	var hits int32
	server := tokenServer(t, "opaque", 60, &hits)
	defer server.Close()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	gw := NewGateway(Config{BaseURL: server.URL, TokenRefreshSkew: 30 * time.Second},
		httpclient.NewHTTPClient(time.Second)).(*kakaoGateway)
	gw.now = func() time.Time { return now }

	_, err := gw.Authenticate(context.Background())
	require.NoError(t, err)

	now = now.Add(20 * time.Second)
	_, err = gw.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	now = now.Add(15 * time.Second)
	_, err = gw.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestTokenExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("jwt exp claim wins", func(t *testing.T) {
		exp := now.Add(2 * time.Hour)
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		}).SignedString([]byte("provider-secret"))
		require.NoError(t, err)

		assert.Equal(t, exp.Unix(), tokenExpiry(token, 60, now).Unix())
	})

	t.Run("opaque token uses expires_in", func(t *testing.T) {
		assert.Equal(t, now.Add(time.Minute), tokenExpiry("opaque", 60, now))
	})

	t.Run("no hint falls back to default", func(t *testing.T) {
		assert.Equal(t, now.Add(defaultTokenTTL), tokenExpiry("opaque", 0, now))
	})
}
