package oauth

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestRefresherRenewsAheadOfExpiry(t *testing.T) {
	server, cfg := newTokenServer(t)
	store, backend := newTestStore(t, cfg, &fakeAuthorizer{})
	// expires well before the next tick would be safe
	require.NoError(t, backend.Save(&oauth2.Token{
		AccessToken:  "short-lived",
		RefreshToken: "r1",
		Expiry:       time.Now().Add(30 * time.Millisecond),
	}))

	var renewed atomic.Int32
	r := &Refresher{
		Store:    store,
		Interval: 20 * time.Millisecond,
		OnRenew:  func(time.Time) { renewed.Add(1) },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return renewed.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	// The refreshed token lives an hour, so only the first tick exchanged.
	assert.EqualValues(t, 1, server.refreshes.Load())
	tok, err := backend.Load()
	require.NoError(t, err)
	assert.Equal(t, "refreshed-access", tok.AccessToken)
}

func TestRefresherStopsOnRejectedToken(t *testing.T) {
	server, cfg := newTokenServer(t)
	server.reject.Store(true)
	store, backend := newTestStore(t, cfg, &fakeAuthorizer{})
	require.NoError(t, backend.Save(&oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "revoked",
		Expiry:       time.Now().Add(-time.Minute),
	}))

	r := &Refresher{Store: store, Interval: 10 * time.Millisecond}
	err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrRefreshFailed)
}

func TestRefresherStopsWithoutCredential(t *testing.T) {
	_, cfg := newTokenServer(t)
	auth := &fakeAuthorizer{}
	store, _ := newTestStore(t, cfg, auth)

	r := &Refresher{Store: store, Interval: 10 * time.Millisecond}
	err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrNoToken)
	assert.Zero(t, auth.calls.Load())
}
