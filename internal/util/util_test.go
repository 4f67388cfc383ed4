package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := Retry(context.Background(), maxAttempts, 0, func() error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Retry should return error when all attempts fail")
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestRateLimiterNew(t *testing.T) {
	rl := NewRateLimiter(60)
	if rl == nil {
		t.Fatal("NewRateLimiter returned nil")
	}
}

func TestBusinessDays(t *testing.T) {
	// Mon 2024-01-01 through Sun 2024-01-07: five weekdays.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)

	days := BusinessDays(start, end)
	if len(days) != 5 {
		t.Fatalf("BusinessDays returned %d days, want 5", len(days))
	}
	if days[0].Weekday() != time.Monday || days[4].Weekday() != time.Friday {
		t.Errorf("BusinessDays range = %v .. %v, want Monday .. Friday", days[0].Weekday(), days[4].Weekday())
	}
}

func TestIsBusinessDay(t *testing.T) {
	sat := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	mon := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	if IsBusinessDay(sat) {
		t.Error("Saturday reported as a business day")
	}
	if !IsBusinessDay(mon) {
		t.Error("Monday not reported as a business day")
	}
}
