package cron

import (
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		expr string
		want bool
	}{
		{"*/5 * * * *", true},
		{"0 9 * * 1-5", true},
		{"not a cron", false},
		{"* * * *", false}, // only 4 fields
		{"60 * * * *", false},
	}
	for _, c := range cases {
		if got := Validate(c.expr); got != c.want {
			t.Errorf("Validate(%q) = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestNextAfterStrictlyIncreasing(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 3, 0, time.UTC)
	next, err := NextAfter("*/5 * * * *", now)
	if err != nil {
		t.Fatalf("NextAfter: %v", err)
	}
	if !next.After(now) {
		t.Fatalf("NextAfter(%v) = %v, want strictly after", now, next)
	}

	again, err := NextAfter("*/5 * * * *", next.Add(-time.Second))
	if err != nil {
		t.Fatalf("NextAfter: %v", err)
	}
	if !again.Equal(next) {
		t.Fatalf("NextAfter(next-1s) = %v, want %v", again, next)
	}
}

func TestNextNIncreasing(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	times, err := NextN("0 * * * *", 5, now)
	if err != nil {
		t.Fatalf("NextN: %v", err)
	}
	if len(times) != 5 {
		t.Fatalf("len(times) = %d, want 5", len(times))
	}
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			t.Fatalf("times[%d] = %v not after times[%d] = %v", i, times[i], i-1, times[i-1])
		}
	}
}

func TestNextAfterInvalidExpr(t *testing.T) {
	if _, err := NextAfter("garbage", time.Now()); err == nil {
		t.Fatal("expected error for invalid expression")
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe("* * * * *"); got != "every minute" {
		t.Errorf("Describe(every minute) = %q", got)
	}
	if got := Describe("*/15 * * * *"); got != "every 15 minutes" {
		t.Errorf("Describe(every 15m) = %q", got)
	}
}
