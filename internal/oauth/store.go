package oauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"go.withmatt.com/otpwatch/internal/log"
)

var (
	// ErrConsentFailed means the interactive grant did not produce a token.
	ErrConsentFailed = errors.New("oauth consent failed")
	// ErrRefreshFailed means the stored refresh token was rejected. The
	// stored credential has been deleted.
	ErrRefreshFailed = errors.New("oauth token refresh failed")
)

// expiryDelta matches oauth2's early-expiry margin.
const expiryDelta = 10 * time.Second

// Authorizer runs an interactive consent flow.
type Authorizer interface {
	Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)
}

// Store owns the persisted credential. All read-modify-write cycles run
// under an in-process mutex and, when LockPath is set, an advisory file
// lock shared with other processes.
type Store struct {
	Backend Backend
	// Config loads the OAuth client identity. It is called at most once
	// per Store, the first time a refresh or consent needs it.
	Config     func() (*oauth2.Config, error)
	Authorizer Authorizer
	LockPath   string
	Clock      func() time.Time

	mu        sync.Mutex
	oauthCfg  *oauth2.Config
	refreshes int
}

func (s *Store) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// LoadOrRefresh returns a usable credential, refreshing or running consent
// as needed. A still-valid credential is returned without any writes.
func (s *Store) LoadOrRefresh(ctx context.Context) (*oauth2.Token, error) {
	return s.withLock(func() (*oauth2.Token, error) {
		return s.loadLocked(ctx, 0, true)
	})
}

// Renew refreshes the stored credential if it expires within ahead. It
// never starts an interactive consent; a missing credential is ErrNoToken.
func (s *Store) Renew(ctx context.Context, ahead time.Duration) (*oauth2.Token, error) {
	return s.withLock(func() (*oauth2.Token, error) {
		return s.loadLocked(ctx, ahead, false)
	})
}

// Current returns the stored credential as is.
func (s *Store) Current() (*oauth2.Token, error) {
	return s.withLock(func() (*oauth2.Token, error) {
		return s.Backend.Load()
	})
}

// Delete removes the stored credential.
func (s *Store) Delete() error {
	_, err := s.withLock(func() (*oauth2.Token, error) {
		return nil, s.Backend.Delete()
	})
	return err
}

// Refreshes reports how many refresh exchanges this Store has performed.
func (s *Store) Refreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

func (s *Store) withLock(fn func() (*oauth2.Token, error)) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := lockFile(s.LockPath)
	if err != nil {
		return nil, fmt.Errorf("unable to lock credential: %w", err)
	}
	defer unlock()
	return fn()
}

func (s *Store) loadLocked(ctx context.Context, ahead time.Duration, consent bool) (*oauth2.Token, error) {
	tok, err := s.Backend.Load()
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			log.Warnf("unable to read stored credential, ignoring it: %v", err)
		}
		tok = nil
	}

	if tok != nil && tok.AccessToken != "" && !s.expiresWithin(tok, ahead) {
		return tok, nil
	}
	if tok != nil && tok.RefreshToken != "" {
		return s.refreshLocked(ctx, tok)
	}
	if !consent {
		return nil, ErrNoToken
	}
	return s.consentLocked(ctx)
}

func (s *Store) expiresWithin(tok *oauth2.Token, ahead time.Duration) bool {
	if tok.Expiry.IsZero() {
		return false
	}
	return !tok.Expiry.After(s.now().Add(expiryDelta + ahead))
}

func (s *Store) config() (*oauth2.Config, error) {
	if s.oauthCfg != nil {
		return s.oauthCfg, nil
	}
	if s.Config == nil {
		return nil, errors.New("missing oauth client config")
	}
	cfg, err := s.Config()
	if err != nil {
		return nil, err
	}
	s.oauthCfg = cfg
	return cfg, nil
}

func (s *Store) refreshLocked(ctx context.Context, stale *oauth2.Token) (*oauth2.Token, error) {
	cfg, err := s.config()
	if err != nil {
		return nil, fmt.Errorf("unable to refresh token: %w", err)
	}

	log.Printf("Refreshing access token (expired %s)", stale.Expiry.Format(time.RFC3339))
	s.refreshes++
	// Only the refresh token is passed so the exchange happens regardless
	// of the wall clock oauth2 sees.
	fresh, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: stale.RefreshToken}).Token()
	if err != nil {
		if delErr := s.Backend.Delete(); delErr != nil {
			log.Warnf("unable to delete rejected credential: %v", delErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if Scope(fresh) == "" && Scope(stale) != "" {
		fresh = fresh.WithExtra(map[string]any{"scope": Scope(stale)})
	}
	if err := s.Backend.Save(fresh); err != nil {
		log.Warnf("unable to persist refreshed token: %v", err)
	}
	return fresh, nil
}

func (s *Store) consentLocked(ctx context.Context) (*oauth2.Token, error) {
	if s.Authorizer == nil {
		return nil, fmt.Errorf("%w: no interactive authorizer", ErrConsentFailed)
	}
	cfg, err := s.config()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConsentFailed, err)
	}

	log.Printf("No stored credential, starting authentication...")
	tok, err := s.Authorizer.Authorize(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConsentFailed, err)
	}
	if err := s.Backend.Save(tok); err != nil {
		log.Warnf("unable to persist oauth token: %v", err)
	}
	return tok, nil
}

// TokenSource returns a source for HTTP transports. When the cached token
// goes stale it re-reads the store, so refreshes made by a Refresher or
// another process are picked up instead of refreshing twice.
func (s *Store) TokenSource(ctx context.Context, initial *oauth2.Token) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(initial, &storeSource{ctx: ctx, store: s})
}

type storeSource struct {
	ctx   context.Context
	store *Store
}

func (s *storeSource) Token() (*oauth2.Token, error) {
	return s.store.Renew(s.ctx, 0)
}
