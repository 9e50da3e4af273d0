package middleware

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/llm-translator-go/pkg/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestRateLimiterMinuteWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	rl := newWindowRateLimiter(10, 500, clock.Now, logger.Discard())

	for i := 0; i < 10; i++ {
		if err := rl.CheckAndUpdate(); err != nil {
			t.Fatalf("request %d rejected: %v", i+1, err)
		}
		clock.Advance(time.Second)
	}

	err := rl.CheckAndUpdate()
	var minuteErr *MinuteLimitError
	if !errors.As(err, &minuteErr) {
		t.Fatalf("11th request error = %v, want MinuteLimitError", err)
	}
	if !errors.Is(err, ErrMinuteLimit) {
		t.Error("MinuteLimitError should match ErrMinuteLimit")
	}
	// Oldest request is 10s old.
	if minuteErr.WaitTime != 50*time.Second {
		t.Errorf("wait = %v, want 50s", minuteErr.WaitTime)
	}
	if minuteErr.WaitTime <= 0 || minuteErr.WaitTime > time.Minute {
		t.Errorf("wait %v out of (0, 60s]", minuteErr.WaitTime)
	}

	if got := rl.RemainingThisMinute(); got != 0 {
		t.Errorf("RemainingThisMinute() = %d", got)
	}
	if got := rl.RemainingToday(); got != 490 {
		t.Errorf("rejected request must not count, RemainingToday() = %d", got)
	}

	clock.Advance(50 * time.Second)
	if err := rl.CheckAndUpdate(); err != nil {
		t.Fatalf("request after oldest expired rejected: %v", err)
	}
}

func TestRateLimiterDailyLimit(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	rl := newWindowRateLimiter(100, 3, clock.Now, logger.Discard())

	for i := 0; i < 3; i++ {
		if err := rl.CheckAndUpdate(); err != nil {
			t.Fatalf("request %d rejected: %v", i+1, err)
		}
	}

	err := rl.CheckAndUpdate()
	var dailyErr *DailyLimitError
	if !errors.As(err, &dailyErr) {
		t.Fatalf("error = %v, want DailyLimitError", err)
	}
	if dailyErr.Used != 3 || dailyErr.Max != 3 {
		t.Errorf("daily error = %+v", dailyErr)
	}
}

func TestRateLimiterUTCDayRollover(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)}
	rl := newWindowRateLimiter(100, 2, clock.Now, logger.Discard())

	rl.CheckAndUpdate()
	rl.CheckAndUpdate()
	if err := rl.CheckAndUpdate(); !errors.Is(err, ErrDailyLimit) {
		t.Fatalf("error = %v, want daily limit", err)
	}

	clock.Advance(2 * time.Minute)
	if err := rl.CheckAndUpdate(); err != nil {
		t.Fatalf("first request of new UTC day rejected: %v", err)
	}
	if got := rl.Stats(); got.RequestsToday != 1 || got.Day != "2024-05-02" {
		t.Errorf("Stats() = %+v", got)
	}
}

func TestRateLimiterRolloverUsesUTC(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	zone := time.FixedZone("EST", -5*3600)
	clock := &fakeClock{now: time.Date(2024, 5, 1, 18, 0, 0, 0, zone)}
	rl := newWindowRateLimiter(100, 1, clock.Now, logger.Discard())

	if err := rl.CheckAndUpdate(); err != nil {
		t.Fatal(err)
	}
	clock.Advance(5*time.Hour + 30*time.Minute)
	if err := rl.CheckAndUpdate(); err != nil {
		t.Fatalf("local date unchanged but UTC date advanced, got %v", err)
	}
}

func TestRateLimiterUpdateLimitsAndReset(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	rl := newWindowRateLimiter(2, 10, clock.Now, logger.Discard())

	rl.CheckAndUpdate()
	rl.CheckAndUpdate()
	if rl.NextAvailable() != time.Minute {
		t.Errorf("NextAvailable() = %v", rl.NextAvailable())
	}

	rl.UpdateLimits(3, 0)
	if err := rl.CheckAndUpdate(); err != nil {
		t.Fatalf("raised limit still rejects: %v", err)
	}
	if st := rl.Stats(); st.PerMinute != 3 || st.PerDay != 10 {
		t.Errorf("Stats() = %+v", st)
	}

	rl.Reset()
	if rl.RemainingThisMinute() != 3 || rl.RemainingToday() != 10 {
		t.Errorf("after Reset remaining = %d/%d", rl.RemainingThisMinute(), rl.RemainingToday())
	}
	if rl.NextAvailable() != 0 {
		t.Errorf("NextAvailable() after reset = %v", rl.NextAvailable())
	}
}
