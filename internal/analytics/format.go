package analytics

import (
	"fmt"
	"time"
)

// FormatRelative renders a Unix-seconds timestamp relative to now, e.g.
// "just now", "5m ago", "3h ago", "2d ago".
func FormatRelative(tsSec int64, now time.Time) string {
	diff := now.Unix() - tsSec
	switch {
	case diff < 60:
		return "just now"
	case diff < 3600:
		return fmt.Sprintf("%dm ago", diff/60)
	case diff < 86400:
		return fmt.Sprintf("%dh ago", diff/3600)
	default:
		return fmt.Sprintf("%dd ago", diff/86400)
	}
}
