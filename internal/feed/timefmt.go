package feed

import (
	"strconv"
	"time"
)

// RelativeTime renders the age of t at now as "now", "Nm", "Nh" or "Nd".
// Times in the future render as "now".
func RelativeTime(now, t time.Time) string {
	minutes := int64(now.Sub(t) / time.Minute)
	switch {
	case minutes < 1:
		return "now"
	case minutes < 60:
		return strconv.FormatInt(minutes, 10) + "m"
	case minutes < 24*60:
		return strconv.FormatInt(minutes/60, 10) + "h"
	}
	return strconv.FormatInt(minutes/(24*60), 10) + "d"
}
