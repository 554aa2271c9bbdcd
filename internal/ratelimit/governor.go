// ABOUTME: Sliding-window admission control for outbound Starfish queries.
// ABOUTME: Evicts expired admissions lazily; rejection is a value, not an error.

package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

// Decision is the outcome of an admission check. RetryAfter is only
// meaningful when Admitted is false: it is how long the caller should wait
// for the oldest admission in the window to expire.
type Decision struct {
	Admitted   bool
	RetryAfter time.Duration
	Current    int
	Max        int
	Window     time.Duration
}

// Status is a read-only snapshot of the governor's window.
type Status struct {
	Enabled    bool          `json:"enabled"`
	Current    int           `json:"current_queries"`
	Max        int           `json:"max_queries"`
	Window     time.Duration `json:"-"`
	WindowSecs float64       `json:"time_window_seconds"`
	Remaining  int           `json:"queries_remaining"`
	RetryAfter float64       `json:"time_to_reset_seconds"`
}

// Governor admits at most Max events in any trailing Window interval.
// All methods are safe for concurrent use; the check-evict-append sequence
// in Admit holds the lock for its full duration so two callers can never
// both observe the same free slot.
type Governor struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	enabled bool
	stamps  []time.Time // admission times, oldest first

	now    func() time.Time
	logger *slog.Logger
}

// New creates a Governor. When enabled is false every admission check
// passes without recording anything.
func New(max int, window time.Duration, enabled bool, logger *slog.Logger) *Governor {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Governor{
		max:     max,
		window:  window,
		enabled: enabled,
		now:     time.Now,
		logger:  logger,
	}
	g.logger.Info("rate governor initialized",
		"max_queries", max,
		"window", window,
		"enabled", enabled,
	)
	return g
}

// Admit checks whether one more query fits in the current window and, if so,
// records it. A rejected attempt is not recorded.
func (g *Governor) Admit() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.enabled {
		return Decision{Admitted: true, Max: g.max, Window: g.window}
	}

	now := g.now()
	g.evict(now)

	if len(g.stamps) >= g.max {
		retry := g.window - now.Sub(g.stamps[0])
		if retry < 0 {
			retry = 0
		}
		g.logger.Warn("rate limit exceeded",
			"current_queries", len(g.stamps),
			"max_queries", g.max,
			"window", g.window,
			"retry_after", retry,
		)
		return Decision{
			RetryAfter: retry,
			Current:    len(g.stamps),
			Max:        g.max,
			Window:     g.window,
		}
	}

	g.stamps = append(g.stamps, now)
	g.logger.Debug("query admitted",
		"queries_in_window", len(g.stamps),
		"max_queries", g.max,
	)
	return Decision{Admitted: true, Current: len(g.stamps), Max: g.max, Window: g.window}
}

// Status reports current occupancy without consuming a slot. Expired
// admissions are evicted first, so a window that has fully elapsed reports
// zero even if Admit was never called again.
func (g *Governor) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.enabled {
		return Status{
			Max:        g.max,
			Window:     g.window,
			WindowSecs: g.window.Seconds(),
			Remaining:  g.max,
		}
	}

	now := g.now()
	g.evict(now)

	var retry time.Duration
	if len(g.stamps) > 0 {
		retry = g.window - now.Sub(g.stamps[0])
		if retry < 0 {
			retry = 0
		}
	}

	remaining := g.max - len(g.stamps)
	if remaining < 0 {
		remaining = 0
	}

	return Status{
		Enabled:    true,
		Current:    len(g.stamps),
		Max:        g.max,
		Window:     g.window,
		WindowSecs: g.window.Seconds(),
		Remaining:  remaining,
		RetryAfter: retry.Seconds(),
	}
}

// Reset clears all recorded admissions. Configuration is untouched.
func (g *Governor) Reset() {
	g.mu.Lock()
	cleared := len(g.stamps)
	g.stamps = g.stamps[:0]
	g.mu.Unlock()

	g.logger.Info("rate governor reset", "cleared_queries", cleared)
}

// Reconfigure updates only the supplied fields. Recorded admissions are
// kept: narrowing the window makes old admissions expire sooner, which is
// the intended behavior.
func (g *Governor) Reconfigure(max *int, window *time.Duration, enabled *bool) {
	g.mu.Lock()
	if max != nil {
		g.max = *max
	}
	if window != nil {
		g.window = *window
	}
	if enabled != nil {
		g.enabled = *enabled
	}
	newMax, newWindow, newEnabled := g.max, g.window, g.enabled
	g.mu.Unlock()

	g.logger.Info("rate governor reconfigured",
		"max_queries", newMax,
		"window", newWindow,
		"enabled", newEnabled,
	)
}

// evict drops admissions strictly older than the window. Must be called
// with mu held. Stamps are appended with a non-decreasing clock, so only
// the front of the slice can be stale.
func (g *Governor) evict(now time.Time) {
	cutoff := now.Add(-g.window)
	i := 0
	for i < len(g.stamps) && g.stamps[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		g.stamps = append(g.stamps[:0], g.stamps[i:]...)
	}
}
