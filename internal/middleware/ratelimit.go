package middleware

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/llm-translator-go/internal/config"
	"github.com/sirupsen/logrus"
)

const minuteWindow = time.Minute

var (
	ErrMinuteLimit = errors.New("per-minute request limit reached")
	ErrDailyLimit  = errors.New("daily request limit reached")
)

// MinuteLimitError reports how long until the oldest request leaves the window.
type MinuteLimitError struct {
	WaitTime time.Duration
	Limit    int
}

func (e *MinuteLimitError) Error() string {
	return fmt.Sprintf("%s (%d/min), retry in %s", ErrMinuteLimit, e.Limit, e.WaitTime.Round(time.Millisecond))
}

func (e *MinuteLimitError) Is(target error) bool { return target == ErrMinuteLimit }

type DailyLimitError struct {
	Used int
	Max  int
}

func (e *DailyLimitError) Error() string {
	return fmt.Sprintf("%s (%d/%d)", ErrDailyLimit, e.Used, e.Max)
}

func (e *DailyLimitError) Is(target error) bool { return target == ErrDailyLimit }

// RateLimiter interface for rate limiting
type RateLimiter interface {
	CheckAndUpdate() error
	RemainingThisMinute() int
	RemainingToday() int
	NextAvailable() time.Duration
	Reset()
	UpdateLimits(perMinute, perDay int)
	Stats() LimiterStats
}

type LimiterStats struct {
	RequestsThisMinute int    `json:"requests_this_minute"`
	RequestsToday      int    `json:"requests_today"`
	PerMinute          int    `json:"per_minute"`
	PerDay             int    `json:"per_day"`
	Day                string `json:"day"`
}

// WindowRateLimiter admits requests against a trailing 60 second window and
// a counter that resets when the UTC date changes.
type WindowRateLimiter struct {
	mu        sync.Mutex
	perMinute int
	perDay    int
	window    []time.Time
	daily     int
	day       string
	now       func() time.Time
	logger    *logrus.Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg *config.Config, logger *logrus.Logger) RateLimiter {
	return newWindowRateLimiter(cfg.Limits.RequestsPerMinute, cfg.Limits.RequestsPerDay, time.Now, logger)
}

func newWindowRateLimiter(perMinute, perDay int, now func() time.Time, logger *logrus.Logger) *WindowRateLimiter {
	return &WindowRateLimiter{
		perMinute: perMinute,
		perDay:    perDay,
		window:    make([]time.Time, 0, perMinute),
		day:       utcDay(now()),
		now:       now,
		logger:    logger,
	}
}

// CheckAndUpdate admits one request or returns *MinuteLimitError or
// *DailyLimitError. A rejected call changes nothing.
func (r *WindowRateLimiter) CheckAndUpdate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.rollDay(now)
	r.prune(now)

	if len(r.window) >= r.perMinute {
		wait := minuteWindow - now.Sub(r.window[0])
		r.logger.WithFields(logrus.Fields{
			"limit": r.perMinute,
			"wait":  wait,
		}).Warn("Per-minute rate limit exceeded")
		return &MinuteLimitError{WaitTime: wait, Limit: r.perMinute}
	}

	if r.daily >= r.perDay {
		r.logger.WithFields(logrus.Fields{
			"used":  r.daily,
			"limit": r.perDay,
		}).Warn("Daily rate limit exceeded")
		return &DailyLimitError{Used: r.daily, Max: r.perDay}
	}

	r.window = append(r.window, now)
	r.daily++
	return nil
}

func (r *WindowRateLimiter) RemainingThisMinute() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.rollDay(now)
	r.prune(now)
	return max(r.perMinute-len(r.window), 0)
}

func (r *WindowRateLimiter) RemainingToday() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rollDay(r.now())
	return max(r.perDay-r.daily, 0)
}

// NextAvailable returns how long until a request would be admitted by the
// minute window. It is zero when a slot is free and ignores the daily cap.
func (r *WindowRateLimiter) NextAvailable() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.prune(now)
	if len(r.window) < r.perMinute {
		return 0
	}
	return minuteWindow - now.Sub(r.window[0])
}

// Reset clears both the window and the daily counter
func (r *WindowRateLimiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.window = r.window[:0]
	r.daily = 0
	r.day = utcDay(r.now())
}

// UpdateLimits changes the caps without losing recorded requests.
func (r *WindowRateLimiter) UpdateLimits(perMinute, perDay int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if perMinute > 0 {
		r.perMinute = perMinute
	}
	if perDay > 0 {
		r.perDay = perDay
	}
	r.logger.WithFields(logrus.Fields{
		"per_minute": r.perMinute,
		"per_day":    r.perDay,
	}).Info("Rate limits updated")
}

func (r *WindowRateLimiter) Stats() LimiterStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.rollDay(now)
	r.prune(now)
	return LimiterStats{
		RequestsThisMinute: len(r.window),
		RequestsToday:      r.daily,
		PerMinute:          r.perMinute,
		PerDay:             r.perDay,
		Day:                r.day,
	}
}

// rollDay resets the daily counter once per UTC date change. The minute
// window is left alone.
func (r *WindowRateLimiter) rollDay(now time.Time) {
	if today := utcDay(now); today != r.day {
		r.logger.WithFields(logrus.Fields{
			"previous": r.day,
			"used":     r.daily,
		}).Debug("Daily request counter reset")
		r.day = today
		r.daily = 0
	}
}

// prune drops timestamps that are a full minute old or older.
func (r *WindowRateLimiter) prune(now time.Time) {
	i := 0
	for i < len(r.window) && now.Sub(r.window[i]) >= minuteWindow {
		i++
	}
	if i > 0 {
		r.window = append(r.window[:0], r.window[i:]...)
	}
}

func utcDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
