package github

import (
	"net/http"

	"golang.org/x/time/rate"
)

// throttledTransport waits on a shared token bucket before every request so
// REST and GraphQL calls together stay under the configured rate.
type throttledTransport struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func newThrottledTransport(limiter *rate.Limiter, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if limiter == nil {
		return next
	}
	return &throttledTransport{limiter: limiter, next: next}
}

func (t *throttledTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}

// newLimiter returns nil (no throttling) when rps is not positive.
func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
