package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	loginRequestsPerMinute = 10
	loginWindow            = time.Minute
	maxFailedLogins        = 5
	lockoutDuration        = 15 * time.Minute
)

type loginBucket struct {
	count     int
	resetTime time.Time
}

type lockoutEntry struct {
	failures    int
	lockedUntil time.Time
}

// loginLimiter throttles the auth endpoints per client IP and locks an
// IP out after repeated failed logins. There is a single admin
// account, so IP is the only useful key.
type loginLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*loginBucket
	lockouts map[string]*lockoutEntry
}

func newLoginLimiter() *loginLimiter {
	return &loginLimiter{
		buckets:  make(map[string]*loginBucket),
		lockouts: make(map[string]*lockoutEntry),
	}
}

// middleware caps request volume on the auth group.
func (l *loginLimiter) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.allow(c.RealIP()) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
			}
			return next(c)
		}
	}
}

func (l *loginLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	bucket, ok := l.buckets[ip]
	if !ok || now.After(bucket.resetTime) {
		l.buckets[ip] = &loginBucket{count: 1, resetTime: now.Add(loginWindow)}
		return true
	}
	if bucket.count >= loginRequestsPerMinute {
		return false
	}
	bucket.count++
	return true
}

func (l *loginLimiter) isLockedOut(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.lockouts[ip]
	return ok && time.Now().Before(entry.lockedUntil)
}

func (l *loginLimiter) recordFailure(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.lockouts[ip]
	if !ok {
		entry = &lockoutEntry{}
		l.lockouts[ip] = entry
	}
	entry.failures++
	if entry.failures >= maxFailedLogins {
		entry.lockedUntil = time.Now().Add(lockoutDuration)
		entry.failures = 0
	}
}

func (l *loginLimiter) recordSuccess(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.lockouts, ip)
}
