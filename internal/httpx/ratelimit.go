package httpx

import (
	"os"
	"strconv"

	"golang.org/x/time/rate"
)

// newLimiter creates a rate limiter for one upstream, honouring
// <PREFIX>_RPS and <PREFIX>_BURST overrides.
func newLimiter(prefix string, rps float64, burst int) *rate.Limiter {
	if v := os.Getenv(prefix + "_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rps = f
		}
	}
	if v := os.Getenv(prefix + "_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			burst = n
		}
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
