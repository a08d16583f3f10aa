package gtfs

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseScheduleTime parses a GTFS HH:MM:SS time into the offset from the
// start of the service day. Hours of 24 and above denote service past midnight.
// The seconds part is optional.
func ParseScheduleTime(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: invalid schedule time %q", ErrDecode, s)
	}

	values := make([]int, 3)
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: invalid schedule time %q", ErrDecode, s)
		}
		values[i] = v
	}
	if values[1] > 59 || values[2] > 59 {
		return 0, fmt.Errorf("%w: invalid schedule time %q", ErrDecode, s)
	}

	return time.Duration(values[0])*time.Hour +
		time.Duration(values[1])*time.Minute +
		time.Duration(values[2])*time.Second, nil
}

// FormatScheduleTime renders a service-day offset as a wall clock HH:MM,
// folding hours past midnight back into 00-23.
func FormatScheduleTime(offset time.Duration) string {
	hours := int(offset / time.Hour)
	minutes := int(offset % time.Hour / time.Minute)
	return fmt.Sprintf("%02d:%02d", hours%24, minutes)
}

// serviceDayStart is "noon minus 12h" of t's calendar date in t's location,
// which is how GTFS anchors schedule times across DST changes.
func serviceDayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, t.Location()).Add(-12 * time.Hour)
}

// closestServiceDay returns the start of the service day (yesterday, today or
// tomorrow relative to ref in loc) that puts offset closest to ref.
func closestServiceDay(offset time.Duration, ref time.Time, loc *time.Location) time.Time {
	local := ref.In(loc)
	best := serviceDayStart(local)
	bestDiff := absDuration(best.Add(offset).Sub(ref))
	for _, days := range []int{-1, 1} {
		day := serviceDayStart(local.AddDate(0, 0, days))
		if diff := absDuration(day.Add(offset).Sub(ref)); diff < bestDiff {
			best, bestDiff = day, diff
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
