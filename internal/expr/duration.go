package expr

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/danrygg/wovenflow/internal/model"
)

var iso8601DurationPattern = regexp.MustCompile(
	`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseISO8601Duration parses the subset of ISO-8601 durations the DSL uses
// for Wait/timeout fields (PnYnMnDTnHnMnS), approximating a year as 365 days
// and a month as 30 days since calendar-relative durations have no single
// time.Duration value.
func ParseISO8601Duration(s string) (time.Duration, error) {
	m := iso8601DurationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("expr: %q is not a supported ISO-8601 duration", s)
	}
	var d time.Duration
	add := func(group string, unit time.Duration) error {
		if group == "" {
			return nil
		}
		n, err := strconv.ParseFloat(group, 64)
		if err != nil {
			return err
		}
		d += time.Duration(n * float64(unit))
		return nil
	}
	fields := []struct {
		group string
		unit  time.Duration
	}{
		{m[1], 365 * 24 * time.Hour},
		{m[2], 30 * 24 * time.Hour},
		{m[3], 24 * time.Hour},
		{m[4], time.Hour},
		{m[5], time.Minute},
		{m[6], time.Second},
	}
	for _, f := range fields {
		if err := add(f.group, f.unit); err != nil {
			return 0, err
		}
	}
	return d, nil
}

// ResolveDuration resolves a DurationDef in any of its three forms
// (structured object, ISO-8601 string, or runtime expression) to a concrete
// time.Duration.
func ResolveDuration(ctx context.Context, d *model.DurationDef, ev Evaluator, env Environment) (time.Duration, error) {
	if d == nil {
		return 0, nil
	}
	switch {
	case d.Structured != nil:
		return d.Structured.AsTimeDuration(), nil
	case d.Expression != "":
		v, err := ev.Evaluate(ctx, string(d.Expression), env)
		if err != nil {
			return 0, err
		}
		return durationFromValue(v)
	case d.ISO != "":
		return ParseISO8601Duration(d.ISO)
	default:
		return 0, nil
	}
}

func durationFromValue(v interface{}) (time.Duration, error) {
	switch t := v.(type) {
	case string:
		return ParseISO8601Duration(t)
	case float64:
		return time.Duration(t * float64(time.Second)), nil
	case int:
		return time.Duration(t) * time.Second, nil
	case map[string]interface{}:
		var sd model.StructuredDuration
		if days, ok := t["days"].(float64); ok {
			sd.Days = int(days)
		}
		if hours, ok := t["hours"].(float64); ok {
			sd.Hours = int(hours)
		}
		if minutes, ok := t["minutes"].(float64); ok {
			sd.Minutes = int(minutes)
		}
		if seconds, ok := t["seconds"].(float64); ok {
			sd.Seconds = int(seconds)
		}
		if ms, ok := t["milliseconds"].(float64); ok {
			sd.Milliseconds = int(ms)
		}
		return sd.AsTimeDuration(), nil
	default:
		return 0, fmt.Errorf("expr: cannot interpret %T as a duration", v)
	}
}
