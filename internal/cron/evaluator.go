// Package cron evaluates standard five-field cron expressions: parsing,
// next-fire-time computation, and enumeration of upcoming fire times.
//
// Day-of-month and day-of-week are OR-combined when both are restricted
// (the standard cron convention): a fire time matching either field is
// included. Seconds are not supported; expressions are strictly five
// fields (minute hour day-of-month month day-of-week).
package cron

import (
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// Validate reports whether expr is a syntactically valid five-field cron
// expression.
func Validate(expr string) bool {
	if len(strings.Fields(expr)) != 5 {
		return false
	}
	return gronx.New().IsValid(expr)
}

// NextAfter returns the next instant strictly after t at which expr fires.
func NextAfter(expr string, t time.Time) (time.Time, error) {
	if !Validate(expr) {
		return time.Time{}, fmt.Errorf("cron: invalid expression %q", expr)
	}
	return gronx.NextTickAfter(expr, t, false)
}

// NextN enumerates the next n fire times strictly after t, in strictly
// increasing order.
func NextN(expr string, n int, t time.Time) ([]time.Time, error) {
	if n <= 0 {
		return nil, nil
	}
	out := make([]time.Time, 0, n)
	cursor := t
	for i := 0; i < n; i++ {
		next, err := NextAfter(expr, cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, next)
		cursor = next
	}
	return out, nil
}

// Describe renders a short human-readable summary of a cron expression.
// gronx does not provide a describer, so this is a small local humanizer
// following the field-name conventions of a standard crontab.
func Describe(expr string) string {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return expr
	}
	minute, hour, dom, month, dow := fields[0], fields[1], fields[2], fields[3], fields[4]

	if minute == "*" && hour == "*" && dom == "*" && month == "*" && dow == "*" {
		return "every minute"
	}
	if strings.HasPrefix(minute, "*/") && hour == "*" && dom == "*" && month == "*" && dow == "*" {
		return fmt.Sprintf("every %s minutes", strings.TrimPrefix(minute, "*/"))
	}
	if dom == "*" && month == "*" && dow == "*" && !strings.Contains(hour, "*") && !strings.Contains(minute, "*") {
		return fmt.Sprintf("daily at %s:%s", pad2(hour), pad2(minute))
	}
	return fmt.Sprintf("at minute %s, hour %s, day-of-month %s, month %s, day-of-week %s", minute, hour, dom, month, dow)
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
