package middleware

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"challenge/utils"
)

// In-memory rate limiting with trusted-proxy support and login lockout
// tracking. Sliding-window timestamps per key, with a periodic cleanup loop.

type timestamps []int64 // unix nanos

func nowUnix() int64 { return time.Now().UnixNano() }

// clientIPGeneric returns the client IP string. If trustedCIDR is provided,
// X-Forwarded-For / X-Real-IP headers are honored when the remote addr is
// inside one of the trusted CIDRs or IPs.
func clientIPGeneric(r *http.Request, trustedCIDR []string) string {
	remoteHost, _, _ := net.SplitHostPort(r.RemoteAddr)
	remoteIP := net.ParseIP(remoteHost)
	trusted := false
	for _, cidr := range trustedCIDR {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		if strings.Contains(cidr, "/") {
			if _, ipnet, err := net.ParseCIDR(cidr); err == nil {
				if remoteIP != nil && ipnet.Contains(remoteIP) {
					trusted = true
					break
				}
			}
			continue
		}
		if ip := net.ParseIP(cidr); ip != nil && remoteIP != nil && ip.Equal(remoteIP) {
			trusted = true
			break
		}
	}
	if trusted {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if len(parts) > 0 {
				return strings.TrimSpace(parts[0])
			}
		}
		if xr := r.Header.Get("X-Real-IP"); xr != "" {
			return strings.TrimSpace(xr)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func trustedProxies() []string {
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		return strings.Split(v, ",")
	}
	return nil
}

// slidingWindow keeps per-key request timestamps inside a window.
type slidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	state  map[string]timestamps
}

func newSlidingWindow(window time.Duration) *slidingWindow {
	sw := &slidingWindow{window: window, state: make(map[string]timestamps)}
	go sw.cleanupLoop()
	return sw
}

// allow records a hit for key and reports whether the count inside the window
// stays at or below max.
func (sw *slidingWindow) allow(key string, max int) (bool, int) {
	now := nowUnix()
	cutoff := now - sw.window.Nanoseconds()
	sw.mu.Lock()
	defer sw.mu.Unlock()
	ts := sw.state[key]
	kept := ts[:0]
	for _, t := range ts {
		if t > cutoff {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	sw.state[key] = kept
	return len(kept) <= max, len(kept)
}

func (sw *slidingWindow) cleanupLoop() {
	tick := time.NewTicker(time.Minute)
	defer tick.Stop()
	for range tick.C {
		cutoff := nowUnix() - sw.window.Nanoseconds()
		sw.mu.Lock()
		for key, ts := range sw.state {
			kept := ts[:0]
			for _, t := range ts {
				if t > cutoff {
					kept = append(kept, t)
				}
			}
			if len(kept) == 0 {
				delete(sw.state, key)
			} else {
				sw.state[key] = kept
			}
		}
		sw.mu.Unlock()
	}
}

// IPRateLimiter applies a per-IP limit over a sliding window.
type IPRateLimiter struct {
	max         int
	win         *slidingWindow
	trustedCIDR []string
}

func NewIPRateLimiter(maxReq int, window time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		max:         maxReq,
		win:         newSlidingWindow(window),
		trustedCIDR: trustedProxies(),
	}
}

func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIPGeneric(r, l.trustedCIDR)
		ok, count := l.win.allow(ip, l.max)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.max))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.win.window.Seconds())))
			utils.WriteError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(l.max-count))
		next.ServeHTTP(w, r)
	})
}

// UserRateLimiter applies per-user limits, with separate read and write
// budgets, falling back to per-IP limiting for unauthenticated requests.
type UserRateLimiter struct {
	readMax     int
	writeMax    int
	win         *slidingWindow
	trustedCIDR []string
}

func NewUserRateLimiter(readMax, writeMax int, windowSec int) *UserRateLimiter {
	return &UserRateLimiter{
		readMax:     readMax,
		writeMax:    writeMax,
		win:         newSlidingWindow(time.Duration(windowSec) * time.Second),
		trustedCIDR: trustedProxies(),
	}
}

func (l *UserRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIPGeneric(r, l.trustedCIDR)
		if uid, ok := utils.GetUserID(r); ok && uid != 0 {
			key = "u:" + strconv.FormatUint(uint64(uid), 10)
		}
		max := l.readMax
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			max = l.writeMax
			key = key + ":w"
		}
		if ok, _ := l.win.allow(key, max); !ok {
			utils.WriteError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Login lockout tracking. Failed attempts accumulate per user id; once the
// threshold is hit the account is locked for the remainder of the window.
var (
	lockoutMu       sync.Mutex
	failedLogins    = make(map[uint]timestamps)
	lockoutMax      = 5
	lockoutWindow   = 15 * time.Minute
	lockoutInitOnce sync.Once
)

func lockoutInit() {
	if v, err := strconv.Atoi(os.Getenv("LOGIN_LOCKOUT_MAX")); err == nil && v > 0 {
		lockoutMax = v
	}
	if v, err := strconv.Atoi(os.Getenv("LOGIN_LOCKOUT_WINDOW_SEC")); err == nil && v > 0 {
		lockoutWindow = time.Duration(v) * time.Second
	}
}

// RecordFailedLogin notes a failed password attempt for lockout tracking.
func RecordFailedLogin(userID uint) {
	lockoutInitOnce.Do(lockoutInit)
	lockoutMu.Lock()
	defer lockoutMu.Unlock()
	failedLogins[userID] = append(failedLogins[userID], nowUnix())
}

// ResetFailedLogin clears the counter after a successful login.
func ResetFailedLogin(userID uint) {
	lockoutMu.Lock()
	defer lockoutMu.Unlock()
	delete(failedLogins, userID)
}

// IsAccountLocked reports whether the user has exhausted login attempts, and
// if so how long until the oldest attempt ages out.
func IsAccountLocked(userID uint) (bool, time.Duration) {
	lockoutInitOnce.Do(lockoutInit)
	cutoff := nowUnix() - lockoutWindow.Nanoseconds()
	lockoutMu.Lock()
	defer lockoutMu.Unlock()
	ts := failedLogins[userID]
	kept := ts[:0]
	for _, t := range ts {
		if t > cutoff {
			kept = append(kept, t)
		}
	}
	failedLogins[userID] = kept
	if len(kept) < lockoutMax {
		return false, 0
	}
	retry := time.Duration(kept[0]-cutoff) * time.Nanosecond
	return true, retry
}
