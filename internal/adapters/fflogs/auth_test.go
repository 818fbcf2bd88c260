package fflogs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "client-id", user)
		require.Equal(t, "client-secret", pass)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.FormValue("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
	}))
}

func TestTokenCachedUntilExpiry(t *testing.T) {
	var hits atomic.Int32
	srv := tokenServer(t, &hits)
	defer srv.Close()

	ts := NewTokenStore("client-id", "client-secret", srv.URL, srv.Client())

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-1", tok)

	tok, err = ts.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-1", tok)

	require.Equal(t, int32(1), hits.Load())
}

func TestTokenRefreshAfterExpiry(t *testing.T) {
	var hits atomic.Int32
	srv := tokenServer(t, &hits)
	defer srv.Close()

	ts := NewTokenStore("client-id", "client-secret", srv.URL, srv.Client())
	now := time.Now()
	ts.now = func() time.Time { return now }

	_, err := ts.Token(context.Background())
	require.NoError(t, err)

	// 3600s lifetime minus the 5 minute margin
	now = now.Add(56 * time.Minute)
	_, err = ts.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())
}

func TestConcurrentTokenCallersShareOneRefresh(t *testing.T) {
	var hits atomic.Int32
	srv := tokenServer(t, &hits)
	defer srv.Close()

	ts := NewTokenStore("client-id", "client-secret", srv.URL, srv.Client())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := ts.Token(context.Background())
			require.NoError(t, err)
			require.Equal(t, "tok-1", tok)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), hits.Load())
}

func TestInvalidateForcesRefresh(t *testing.T) {
	var hits atomic.Int32
	srv := tokenServer(t, &hits)
	defer srv.Close()

	ts := NewTokenStore("client-id", "client-secret", srv.URL, srv.Client())

	_, err := ts.Token(context.Background())
	require.NoError(t, err)
	ts.Invalidate()
	_, err = ts.Token(context.Background())
	require.NoError(t, err)

	require.Equal(t, int32(2), hits.Load())
}
