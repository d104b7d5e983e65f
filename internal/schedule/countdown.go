package schedule

import (
	"fmt"
	"time"
)

// Countdown formats the time left until next as "2d 3h 4m", "3h 4m" or "4m".
// Once next has passed it returns "resetting soon".
func Countdown(now, next time.Time) string {
	left := next.Sub(now)
	if left <= 0 {
		return "resetting soon"
	}
	days := int(left / (24 * time.Hour))
	hours := int(left % (24 * time.Hour) / time.Hour)
	minutes := int(left % time.Hour / time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
