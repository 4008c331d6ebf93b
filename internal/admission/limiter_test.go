package admission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		RateWindow:      time.Second,
		RateMax:         2,
		PerIPCap:        2,
		StrikeThreshold: 2,
		BanDuration:     time.Minute,
		SweepInterval:   time.Hour,
	}
}

func TestAdmitAllowsWithinLimits(t *testing.T) {
	l := New(testConfig())
	now := time.Unix(1000, 0)

	ok, reason := l.Admit("1.2.3.4", now)
	require.True(t, ok)
	require.Equal(t, ReasonNone, reason)
}

func TestAdmitRejectsOverRateWindow(t *testing.T) {
	l := New(testConfig())
	now := time.Unix(1000, 0)

	ok, _ := l.Admit("1.2.3.4", now)
	require.True(t, ok)
	l.Release("1.2.3.4")
	ok, _ = l.Admit("1.2.3.4", now.Add(100*time.Millisecond))
	require.True(t, ok)
	l.Release("1.2.3.4")

	ok, reason := l.Admit("1.2.3.4", now.Add(200*time.Millisecond))
	require.False(t, ok)
	require.Equal(t, ReasonRateLimited, reason)
}

func TestAdmitRateLimitClearsAfterWindow(t *testing.T) {
	l := New(testConfig())
	now := time.Unix(1000, 0)
	l.Admit("1.2.3.4", now)
	l.Release("1.2.3.4")
	l.Admit("1.2.3.4", now)
	l.Release("1.2.3.4")

	ok, _ := l.Admit("1.2.3.4", now.Add(2*time.Second))
	require.True(t, ok)
}

func TestAdmitRejectsOverConcurrencyCap(t *testing.T) {
	cfg := testConfig()
	cfg.RateMax = 10 // keep the rate check, which runs first, from rejecting before the cap
	l := New(cfg)
	now := time.Unix(1000, 0)

	ok, _ := l.Admit("5.6.7.8", now)
	require.True(t, ok)
	ok, _ = l.Admit("5.6.7.8", now.Add(time.Nanosecond))
	require.True(t, ok)

	ok, reason := l.Admit("5.6.7.8", now.Add(2*time.Nanosecond))
	require.False(t, ok)
	require.Equal(t, ReasonConcurrencyCap, reason)
}

func TestReleaseFreesConcurrencySlot(t *testing.T) {
	cfg := testConfig()
	cfg.RateMax = 10 // keep the rate check, which runs first, from rejecting before the cap
	l := New(cfg)
	now := time.Unix(1000, 0)
	l.Admit("9.9.9.9", now)
	l.Admit("9.9.9.9", now)
	l.Release("9.9.9.9")

	ok, reason := l.Admit("9.9.9.9", now.Add(time.Nanosecond))
	require.True(t, ok)
	require.Equal(t, ReasonNone, reason)
}

func TestStrikeBansAfterThreshold(t *testing.T) {
	l := New(testConfig())
	now := time.Unix(1000, 0)

	l.Strike("10.0.0.1", now)
	l.Strike("10.0.0.1", now)
	l.Strike("10.0.0.1", now) // exceeds StrikeThreshold of 2

	ok, reason := l.Admit("10.0.0.1", now.Add(time.Second))
	require.False(t, ok)
	require.Equal(t, ReasonBanned, reason)
}

func TestBanIsPermanentUntilUnban(t *testing.T) {
	l := New(testConfig())
	now := time.Unix(1000, 0)
	l.Ban("11.0.0.1")

	ok, reason := l.Admit("11.0.0.1", now)
	require.False(t, ok)
	require.Equal(t, ReasonBanned, reason)

	l.Unban("11.0.0.1")
	ok, _ = l.Admit("11.0.0.1", now)
	require.True(t, ok)
}

func TestReasonString(t *testing.T) {
	require.Equal(t, "banned", ReasonBanned.String())
	require.Equal(t, "rate_limited", ReasonRateLimited.String())
	require.Equal(t, "concurrency_cap", ReasonConcurrencyCap.String())
	require.Equal(t, "none", ReasonNone.String())
}
