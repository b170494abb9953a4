// Package timeutil provides time formatting utilities for CLI output.
package timeutil

import (
	"fmt"
	"time"

	"github.com/marmos91/cipherdrop/pkg/state/models"
)

// FormatAge renders a duration as a compact age string like "3d", "2h"
// or "45s". Durations under a second render as "now"; negative durations
// (clock skew) render as "-".
func FormatAge(d time.Duration) string {
	switch {
	case d < 0:
		return "-"
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours())/24)
	}
}

// FormatLastSeen renders a stored last-seen timestamp as an age relative
// to now. Returns "-" when the timestamp cannot be parsed.
func FormatLastSeen(lastSeen string) string {
	return formatLastSeenAt(lastSeen, time.Now())
}

func formatLastSeenAt(lastSeen string, now time.Time) string {
	t, err := time.ParseInLocation(models.TimeLayout, lastSeen, time.Local)
	if err != nil {
		return "-"
	}
	return FormatAge(now.Sub(t))
}
