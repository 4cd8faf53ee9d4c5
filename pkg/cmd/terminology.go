package cmd

import (
	"context"
	"time"

	"github.com/dukex/curator/pkg/terminology"
)

// DefaultExpansionTTL bounds how long a cached expansion is reused.
const DefaultExpansionTTL = 24 * time.Hour

// NewExpansionCache returns a Redis-backed cache when redisURL is set and a process-local
// cache otherwise.
func NewExpansionCache(ctx context.Context, redisURL string) (terminology.Cache, error) {
	if redisURL == "" {
		return terminology.NewMemoryCache(), nil
	}

	return terminology.NewRedisCacheFromURL(ctx, redisURL, DefaultExpansionTTL)
}
