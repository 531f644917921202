// Copyright (c) The Verdictd Authors
// SPDX-License-Identifier: MPL-2.0

package agent

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// Per-client request budgets. Judging endpoints share one budget;
// submissions get a tighter one because they also write to storage.
const (
	runRequestsPerMinute    = 50
	submitRequestsPerMinute = 30

	// limiterCacheSize bounds tracked clients; eviction resets a
	// client's budget, which is acceptable for abuse control.
	limiterCacheSize = 4096
)

// ipLimiter hands out a token-bucket limiter per client address.
type ipLimiter struct {
	limit   rate.Limit
	burst   int
	clients *lru.Cache[string, *rate.Limiter]
}

func newIPLimiter(perMinute int) *ipLimiter {
	clients, _ := lru.New[string, *rate.Limiter](limiterCacheSize)
	return &ipLimiter{
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
		clients: clients,
	}
}

// allow reports whether the client may proceed.
func (l *ipLimiter) allow(addr string) bool {
	limiter, ok := l.clients.Get(addr)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		// a racing insert just means two fresh buckets; harmless
		l.clients.Add(addr, limiter)
	}
	return limiter.Allow()
}
