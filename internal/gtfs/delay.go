package gtfs

import (
	"fmt"

	"vehicletracker.org/internal/models"
)

// onTimeTolerance is the largest delay, in seconds and in either direction,
// still classified as on time.
const onTimeTolerance = 60

// ClassifyDelay maps a signed delay in seconds to late, early or on time.
// Minutes are truncated toward zero, so 61s is "+1" and -61s is "-1".
func ClassifyDelay(seconds int) models.Delay {
	minutes := seconds / 60
	switch {
	case seconds > onTimeTolerance:
		return models.Delay{
			Seconds: seconds,
			Type:    models.DelayLate,
			Minutes: fmt.Sprintf("+%d", minutes),
			Text:    fmt.Sprintf("+%d min", minutes),
		}
	case seconds < -onTimeTolerance:
		return models.Delay{
			Seconds: seconds,
			Type:    models.DelayEarly,
			Minutes: fmt.Sprintf("%d", minutes),
			Text:    fmt.Sprintf("%d min", minutes),
		}
	default:
		return models.Delay{
			Seconds: seconds,
			Type:    models.DelayOnTime,
			Minutes: "0",
			Text:    "on time",
		}
	}
}
