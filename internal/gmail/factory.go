package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"go.withmatt.com/otpwatch/internal/log"
	"go.withmatt.com/otpwatch/internal/mailtext"
	"go.withmatt.com/otpwatch/internal/rate"
)

// ErrUnavailable is returned when the service could not be built.
var ErrUnavailable = errors.New("gmail service unavailable")

const (
	buildAttempts  = 3
	buildBackoff   = 5 * time.Second
	requestTimeout = 60 * time.Second
)

// Factory builds authenticated clients. Each Build is independent; nothing
// is cached between calls.
type Factory struct {
	// Transport is the base round tripper under the oauth2 transport.
	// Defaults to http.DefaultTransport.
	Transport http.RoundTripper
	// Options are appended to the service options, e.g. a test endpoint.
	Options []option.ClientOption
	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error

	Limiter rate.Limiter
	Content mailtext.Mode
}

// Build constructs a client bound to ts and probes it with a profile
// lookup. Construction is attempted three times with a fixed five second
// pause; the last failure is wrapped in ErrUnavailable.
func (f *Factory) Build(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	sleep := f.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= buildAttempts; attempt++ {
		client, err := f.build(ctx, ts)
		if err == nil {
			return client, nil
		}
		lastErr = err
		if attempt == buildAttempts {
			break
		}
		log.Warnf("unable to create Gmail service, retrying in %s (%d/%d): %v",
			buildBackoff, attempt, buildAttempts, err)
		if err := sleep(ctx, buildBackoff); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrUnavailable, buildAttempts, lastErr)
}

func (f *Factory) build(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	httpClient := &http.Client{
		Timeout: requestTimeout,
		Transport: &oauth2.Transport{
			Source: ts,
			Base:   f.Transport,
		},
	}

	opts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, f.Options...)
	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}

	profile, err := srv.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("probe profile: %w", err)
	}
	log.Printf("Connected to Gmail as %s", profile.EmailAddress)

	client := NewClient(srv)
	if f.Limiter != nil {
		client.Limiter = f.Limiter
	}
	if f.Content != "" {
		client.Content = f.Content
	}
	return client, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
