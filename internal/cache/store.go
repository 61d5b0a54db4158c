package cache

import (
	"context"
	"log"
	"time"

	"mailprobe/internal/models"
)

// TTL is how long a stored verdict stays fresh. Mailbox state rarely
// changes faster than this, and re-probing sooner mostly burns SMTP quota.
const TTL = 30 * 24 * time.Hour

// Store is the verdict cache contract. Implementations must be safe for
// concurrent use. Errors are advisory: callers treat any failure as a
// miss and run a live verification instead.
type Store interface {
	// Get returns the verdict stored for an address, if still fresh.
	Get(ctx context.Context, email string) (models.Verdict, bool, error)

	// Put stores a verdict for the full TTL, replacing any previous entry.
	Put(ctx context.Context, email string, v models.Verdict) error

	// Purge drops expired entries and reports how many were removed.
	Purge(ctx context.Context) (int64, error)

	// Close releases the backend connection, if any.
	Close()
}

// StartJanitor purges expired entries in the background until ctx is done.
func StartJanitor(ctx context.Context, s Store, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.Purge(ctx)
				if err != nil {
					log.Printf("[ERROR] Cache purge failed: %v", err)
					continue
				}
				if removed > 0 {
					log.Printf("[DEBUG] Cache purge removed %d expired entries", removed)
				}
			}
		}
	}()
}
