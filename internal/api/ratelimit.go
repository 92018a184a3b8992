package api

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Quota is a request allowance over a sliding window.
type Quota struct {
	Requests int
	Per      time.Duration
}

// Quotas by route. The stream quota counts connection attempts; scout
// routes include trail reads, which hit the database.
var (
	streamQuota = Quota{Requests: 30, Per: time.Minute}
	scoutQuota  = Quota{Requests: 120, Per: time.Minute}
	adminQuota  = Quota{Requests: 20, Per: time.Minute}
)

// sweepEvery is how many admitted or refused calls pass between sweeps of
// idle clients.
const sweepEvery = 256

type clientKey struct {
	route string
	ip    string
}

// RouteLimiter keeps a log of recent request times per route and client.
// Each route has its own quota, so a client spending its stream allowance
// can still read trails.
type RouteLimiter struct {
	mu     sync.Mutex
	quotas map[string]Quota
	hits   map[clientKey][]time.Time
	calls  int

	now func() time.Time
}

// NewRouteLimiter creates an empty limiter. Routes are added by Wrap.
func NewRouteLimiter() *RouteLimiter {
	return &RouteLimiter{
		quotas: make(map[string]Quota),
		hits:   make(map[clientKey][]time.Time),
		now:    time.Now,
	}
}

// Allow records a request from ip on route and reports whether it fits the
// route's quota. When it does not, wait is how long until the oldest
// counted request leaves the window. Unknown routes are not limited.
func (rl *RouteLimiter) Allow(route, ip string) (ok bool, wait time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	q, known := rl.quotas[route]
	if !known || q.Requests <= 0 {
		return true, 0
	}

	now := rl.now()
	rl.calls++
	if rl.calls%sweepEvery == 0 {
		rl.sweep(now)
	}

	key := clientKey{route: route, ip: ip}
	log := trimBefore(rl.hits[key], now.Add(-q.Per))
	if len(log) >= q.Requests {
		rl.hits[key] = log
		return false, log[0].Add(q.Per).Sub(now)
	}
	rl.hits[key] = append(log, now)
	return true, 0
}

// trimBefore drops times at or before cutoff. log is in ascending order.
func trimBefore(log []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	return log[i:]
}

// sweep forgets clients with nothing left in their window.
func (rl *RouteLimiter) sweep(now time.Time) {
	for key, log := range rl.hits {
		q := rl.quotas[key.route]
		if len(trimBefore(log, now.Add(-q.Per))) == 0 {
			delete(rl.hits, key)
		}
	}
}

// Clients returns the number of route and client pairs being tracked.
func (rl *RouteLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.hits)
}

// Wrap limits next under route with quota q. Refused requests get 429 and a
// Retry-After in whole seconds.
func (rl *RouteLimiter) Wrap(route string, q Quota, next http.HandlerFunc) http.HandlerFunc {
	rl.mu.Lock()
	rl.quotas[route] = q
	rl.mu.Unlock()

	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		ok, wait := rl.Allow(route, ip)
		if !ok {
			secs := int((wait + time.Second - 1) / time.Second)
			slog.Debug("rate limited", "route", route, "ip", ip, "retry_after", secs)
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// clientIP returns the first X-Forwarded-For hop, or the remote host.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
