package schedule

import (
	"math"
	"time"

	"inspect-mcp/internal/clock"
	"inspect-mcp/internal/model"
)

const dayMillis = int64(24 * time.Hour / time.Millisecond)

// RemainingDays is ceil((due - now) / 1 day), using epoch 0 for never-inspected items.
func RemainingDays(item model.Equipment, now time.Time) int {
	var dueMs int64
	if due := NextDue(item); !due.IsZero() {
		dueMs = due.UnixMilli()
	}
	return int(math.Ceil(float64(dueMs-now.UnixMilli()) / float64(dayMillis)))
}

// InspectedToday reports whether the last inspection falls on now's calendar day.
func InspectedToday(item model.Equipment, now time.Time) bool {
	return item.LastInspectedDate != nil && clock.SameDay(*item.LastInspectedDate, now)
}

// Classify computes the traffic-light state of an item at now.
// An inspection earlier today always wins over the due-date math.
func Classify(item model.Equipment, settings model.LightSettings, now time.Time) model.LightStatus {
	if InspectedToday(item, now) {
		return model.LightCompleted
	}

	remaining := RemainingDays(item, now)
	switch {
	case remaining <= settings.RedThreshold:
		return model.LightPending
	case remaining <= settings.YellowThreshold:
		return model.LightCanInspect
	default:
		return model.LightUnnecessary
	}
}

// Urgency orders statuses for board sorting, most urgent first.
func Urgency(s model.LightStatus) int {
	switch s {
	case model.LightPending:
		return 0
	case model.LightCanInspect:
		return 1
	case model.LightUnnecessary:
		return 2
	default:
		return 3
	}
}
