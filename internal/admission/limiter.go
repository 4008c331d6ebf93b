// Package admission implements per-IP connection admission control: a ban
// list, a sliding-window connection-rate limit, a concurrency cap, and a
// strike counter that promotes repeat protocol offenders to a ban.
package admission

import (
	"sync"
	"time"
)

// Config holds the tunable thresholds for a Limiter. Zero-value fields fall
// back to sensible defaults in New.
type Config struct {
	// RateWindow is the sliding window over which connection attempts are counted.
	RateWindow time.Duration
	// RateMax is the maximum number of accepted connection attempts per IP
	// within RateWindow before further attempts are rejected.
	RateMax int
	// PerIPCap is the maximum number of concurrently live connections per IP.
	PerIPCap int
	// StrikeThreshold is the number of protocol strikes an IP may accrue
	// before it is banned.
	StrikeThreshold int
	// BanDuration is how long a strike-triggered ban lasts.
	BanDuration time.Duration
	// SweepInterval bounds how often stale per-IP entries are lazily dropped.
	SweepInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.RateWindow <= 0 {
		c.RateWindow = 10 * time.Second
	}
	if c.RateMax <= 0 {
		c.RateMax = 5
	}
	if c.PerIPCap <= 0 {
		c.PerIPCap = 3
	}
	if c.StrikeThreshold <= 0 {
		c.StrikeThreshold = 5
	}
	if c.BanDuration <= 0 {
		c.BanDuration = 5 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	return c
}

// entry holds the mutable admission state tracked per IP.
type entry struct {
	attempts    []time.Time // accepted-attempt timestamps within the window, oldest-first
	active      int         // currently live connections
	strikes     int
	bannedUntil time.Time // zero if no timed ban; permanent bans are tracked by the permanent flag
	permanent   bool
	lastSeen    time.Time
}

// Reason explains why Admit rejected a connection attempt.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonBanned
	ReasonRateLimited
	ReasonConcurrencyCap
)

func (r Reason) String() string {
	switch r {
	case ReasonBanned:
		return "banned"
	case ReasonRateLimited:
		return "rate_limited"
	case ReasonConcurrencyCap:
		return "concurrency_cap"
	default:
		return "none"
	}
}

// Limiter tracks per-IP admission state in process memory. Safe for
// concurrent use by the accept loop.
type Limiter struct {
	cfg Config

	mu        sync.Mutex
	byIP      map[string]*entry
	lastSweep time.Time
}

// New constructs a Limiter from cfg, filling unset fields with defaults.
func New(cfg Config) *Limiter {
	cfg = cfg.withDefaults()
	return &Limiter{
		cfg:       cfg,
		byIP:      make(map[string]*entry, 256),
		lastSweep: time.Now(),
	}
}

// Admit checks ban status, sliding-window rate, and concurrency cap for ip,
// in that order, as of now. On success it increments the active count; the
// caller must call Release exactly once when the connection ends,
// regardless of whether it ever completed the handshake.
func (l *Limiter) Admit(ip string, now time.Time) (bool, Reason) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	e := l.byIP[ip]
	if e == nil {
		e = &entry{}
		l.byIP[ip] = e
	}
	e.lastSeen = now

	if e.permanent || now.Before(e.bannedUntil) {
		return false, ReasonBanned
	}

	e.attempts = trimWindow(e.attempts, now, l.cfg.RateWindow)
	if len(e.attempts) >= l.cfg.RateMax {
		return false, ReasonRateLimited
	}

	if e.active >= l.cfg.PerIPCap {
		return false, ReasonConcurrencyCap
	}

	e.attempts = append(e.attempts, now)
	e.active++
	return true, ReasonNone
}

// Release decrements the active-connection count for ip. It must be called
// exactly once per successful Admit, whether the connection failed the
// handshake or was later disconnected from the game loop.
func (l *Limiter) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.byIP[ip]
	if e == nil {
		return
	}
	if e.active > 0 {
		e.active--
	}
}

// Strike records a protocol or handshake failure for ip. Once strikes
// exceed the configured threshold, ip is banned for BanDuration and its
// strike count resets.
func (l *Limiter) Strike(ip string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.byIP[ip]
	if e == nil {
		e = &entry{}
		l.byIP[ip] = e
	}
	e.lastSeen = now
	e.strikes++
	if e.strikes > l.cfg.StrikeThreshold {
		e.bannedUntil = now.Add(l.cfg.BanDuration)
		e.strikes = 0
	}
}

// Ban permanently bans ip until explicitly lifted.
func (l *Limiter) Ban(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.byIP[ip]
	if e == nil {
		e = &entry{}
		l.byIP[ip] = e
	}
	e.permanent = true
}

// Unban clears any ban (permanent or timed) for ip.
func (l *Limiter) Unban(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.byIP[ip]
	if e == nil {
		return
	}
	e.permanent = false
	e.bannedUntil = time.Time{}
	e.strikes = 0
}

// sweepLocked drops entries that are idle, unbanned, and have no
// in-flight attempts, bounding the map's growth. Must be called with mu held.
func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.cfg.SweepInterval {
		return
	}
	l.lastSweep = now
	for ip, e := range l.byIP {
		if e.permanent || now.Before(e.bannedUntil) || e.active > 0 {
			continue
		}
		if len(trimWindow(e.attempts, now, l.cfg.RateWindow)) > 0 {
			continue
		}
		if now.Sub(e.lastSeen) > l.cfg.SweepInterval {
			delete(l.byIP, ip)
		}
	}
}

// trimWindow drops timestamps older than window from the front of attempts,
// which is kept oldest-first.
func trimWindow(attempts []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	i := 0
	for i < len(attempts) && attempts[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return attempts
	}
	return append(attempts[:0], attempts[i:]...)
}
