// Package cooktimer turns free-form cooking times ("1 hr 30 mins", "45")
// into durations and counts them down.
package cooktimer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	hoursPattern   = regexp.MustCompile(`(\d+)\s*(?:h|hr|hour)`)
	minutesPattern = regexp.MustCompile(`(\d+)\s*(?:m|min)`)
	numberPattern  = regexp.MustCompile(`(\d+)`)
)

// ParseDuration reads the first hour and first minute quantity in s. A bare
// number with no unit counts as minutes. Unparseable input yields zero.
func ParseDuration(s string) time.Duration {
	normalized := strings.ToLower(s)
	if strings.TrimSpace(normalized) == "" {
		return 0
	}

	var total time.Duration
	hours := hoursPattern.FindStringSubmatch(normalized)
	if hours != nil {
		total += time.Duration(atoi(hours[1])) * time.Hour
	}
	minutes := minutesPattern.FindStringSubmatch(normalized)
	if minutes != nil {
		total += time.Duration(atoi(minutes[1])) * time.Minute
	}

	if hours == nil && minutes == nil {
		if n := numberPattern.FindStringSubmatch(normalized); n != nil {
			total += time.Duration(atoi(n[1])) * time.Minute
		}
	}
	return total
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// Format renders d as H:MM:SS, or M:SS under an hour.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Timer is a pausable countdown with one-second resolution.
type Timer struct {
	mu        sync.Mutex
	total     time.Duration
	remaining time.Duration
	active    bool
}

func New(total time.Duration) *Timer {
	total = total.Truncate(time.Second)
	if total < 0 {
		total = 0
	}
	return &Timer{total: total, remaining: total}
}

// Start resumes the countdown. It has no effect once the timer reached zero.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.remaining > 0 {
		t.active = true
	}
}

func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = false
}

// Reset stops the timer and restores the full duration.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = false
	t.remaining = t.total
}

// Tick removes one second while active. Reaching zero deactivates the timer.
func (t *Timer) Tick() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return t.remaining
	}
	if t.remaining <= time.Second {
		t.remaining = 0
		t.active = false
		return 0
	}
	t.remaining -= time.Second
	return t.remaining
}

func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *Timer) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining == 0
}

// Run starts the timer and ticks it every interval until it finishes or ctx
// is cancelled. onTick, if set, sees the remaining time after each tick.
func (t *Timer) Run(ctx context.Context, interval time.Duration, onTick func(time.Duration)) error {
	if interval <= 0 {
		interval = time.Second
	}
	t.Start()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for !t.Done() {
		select {
		case <-ctx.Done():
			t.Pause()
			return ctx.Err()
		case <-ticker.C:
			left := t.Tick()
			if onTick != nil {
				onTick(left)
			}
		}
	}
	return nil
}
