package schedule

import (
	"strconv"
	"strings"
	"time"

	"inspect-mcp/internal/model"
)

// DefaultCycleDays is used for absent or unrecognized frequency codes.
const DefaultCycleDays = 30

var namedCycles = map[string]int{
	"monthly":   30,
	"quarterly": 90,
	"yearly":    365,
}

// CycleDays maps a frequency code to an inspection cycle in days.
// Named codes win, then numeric strings; anything else is DefaultCycleDays.
func CycleDays(code string) int {
	code = strings.TrimSpace(code)
	if days, ok := namedCycles[code]; ok {
		return days
	}
	if days, err := strconv.Atoi(code); err == nil && days > 0 {
		return days
	}
	return DefaultCycleDays
}

// NextDue projects when the equipment's current cycle elapses.
// The zero time means the item was never inspected and has no creation date: due now.
func NextDue(item model.Equipment) time.Time {
	var base *time.Time
	switch {
	case item.LastInspectedDate != nil:
		base = item.LastInspectedDate
	case item.CreatedAt != nil:
		base = item.CreatedAt
	default:
		return time.Time{}
	}
	return base.AddDate(0, 0, CycleDays(item.CheckFrequency))
}
