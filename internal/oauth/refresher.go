package oauth

import (
	"context"
	"errors"
	"time"

	"go.withmatt.com/otpwatch/internal/log"
)

// Refresher renews the stored credential on a fixed interval so the
// foreground never has to refresh mid-fetch. It shares the Store's locks
// with the foreground path.
type Refresher struct {
	Store    *Store
	Interval time.Duration
	// OnRenew, if set, is called after each successful tick.
	OnRenew func(expiry time.Time)
}

// Run ticks until ctx is done. Each tick renews a credential that would
// expire before the next tick. A rejected refresh token or a missing
// credential ends the loop with that error; transient failures are logged
// and retried on the next tick.
func (r *Refresher) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		tok, err := r.Store.Renew(ctx, interval)
		switch {
		case err == nil:
			log.Printf("Credential valid until %s", tok.Expiry.Format(time.RFC3339))
			if r.OnRenew != nil {
				r.OnRenew(tok.Expiry)
			}
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrRefreshFailed), errors.Is(err, ErrNoToken):
			log.Warnf("background token refresh stopped: %v", err)
			return err
		default:
			log.Warnf("background token refresh failed, will retry: %v", err)
		}
	}
}
