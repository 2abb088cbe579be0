package middleware

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimit throttles per client IP. rate uses the limiter format ("30-M").
// With a redis client the counters are shared between replicas.
func RateLimit(rate string, client *redis.Client) (func(http.Handler) http.Handler, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}

	store := memory.NewStore()
	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "catering:limiter"})
		if err != nil {
			return nil, fmt.Errorf("redis limiter store: %w", err)
		}
	}

	mw := stdlib.NewMiddleware(limiter.New(store, r),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		}),
	)
	return mw.Handler, nil
}
