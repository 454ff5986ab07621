package schedule

import (
	"testing"
	"time"

	"inspect-mcp/internal/model"
)

func TestCycleDays(t *testing.T) {
	tests := []struct {
		name string
		code string
		want int
	}{
		{"Empty", "", 30},
		{"Monthly", "monthly", 30},
		{"Quarterly", "quarterly", 90},
		{"Yearly", "yearly", 365},
		{"Numeric", "45", 45},
		{"NumericPadded", " 7 ", 7},
		{"Garbage", "fortnightly", 30},
		{"Zero", "0", 30},
		{"Negative", "-3", 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CycleDays(tt.code); got != tt.want {
				t.Errorf("CycleDays(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestNextDue(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	last := time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)
	leap := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		item model.Equipment
		want time.Time
	}{
		{"NeverInspected", model.Equipment{CheckFrequency: "monthly"}, time.Time{}},
		{"FallsBackToCreatedAt", model.Equipment{CheckFrequency: "quarterly", CreatedAt: &created}, time.Date(2026, 5, 30, 9, 0, 0, 0, time.UTC)},
		{"PrefersLastInspected", model.Equipment{CheckFrequency: "30", CreatedAt: &created, LastInspectedDate: &last}, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
		{"LeapYearRollover", model.Equipment{CheckFrequency: "yearly", LastInspectedDate: &leap}, time.Date(2025, 2, 28, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDue(tt.item)
			if !got.Equal(tt.want) {
				t.Errorf("NextDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	now := time.Date(2026, 10, 16, 14, 0, 0, 0, time.UTC)
	defaults := model.DefaultLightSettings()
	ago := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}
	day := 24 * time.Hour

	tests := []struct {
		name string
		item model.Equipment
		want model.LightStatus
	}{
		{"NeverInspected", model.Equipment{CheckFrequency: "monthly"}, model.LightPending},
		{"InspectedThisMorning", model.Equipment{CheckFrequency: "monthly", LastInspectedDate: ago(6 * time.Hour)}, model.LightCompleted},
		{"InspectedYesterdayLate", model.Equipment{CheckFrequency: "1", LastInspectedDate: ago(15 * time.Hour)}, model.LightPending},
		{"TwoDaysLeft", model.Equipment{CheckFrequency: "monthly", LastInspectedDate: ago(28 * day)}, model.LightPending},
		{"FiveDaysLeft", model.Equipment{CheckFrequency: "monthly", LastInspectedDate: ago(25 * day)}, model.LightCanInspect},
		{"JustOverFiveDays", model.Equipment{CheckFrequency: "monthly", LastInspectedDate: ago(24*day + time.Hour)}, model.LightUnnecessary},
		{"Overdue", model.Equipment{CheckFrequency: "monthly", LastInspectedDate: ago(40 * day)}, model.LightPending},
		{"CreatedRecently", model.Equipment{CheckFrequency: "yearly", CreatedAt: ago(3 * day)}, model.LightUnnecessary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.item, defaults, now); got != tt.want {
				t.Errorf("Classify() = %s, want %s (remaining %d)", got, tt.want, RemainingDays(tt.item, now))
			}
		})
	}
}

func TestClassify_TodayTakesPrecedence(t *testing.T) {
	now := time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)
	last := time.Date(2026, 10, 16, 0, 5, 0, 0, time.UTC)
	item := model.Equipment{CheckFrequency: "1", LastInspectedDate: &last}

	configs := []model.LightSettings{
		model.DefaultLightSettings(),
		{RedThreshold: 1000, YellowThreshold: 2000},
		{RedThreshold: -1000, YellowThreshold: -500},
		{RedThreshold: 10, YellowThreshold: 3},
	}
	for _, cfg := range configs {
		if got := Classify(item, cfg, now); got != model.LightCompleted {
			t.Errorf("Classify() with %+v = %s, want COMPLETED", cfg, got)
		}
	}
}

func TestClassify_MonotonicOverTime(t *testing.T) {
	last := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	item := model.Equipment{CheckFrequency: "monthly", LastInspectedDate: &last}
	settings := model.DefaultLightSettings()

	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	prev := Classify(item, settings, start)
	if prev != model.LightUnnecessary {
		t.Fatalf("expected sweep to start UNNECESSARY, got %s", prev)
	}
	seen := map[model.LightStatus]bool{prev: true}
	for now := start; now.Before(end); now = now.Add(time.Hour) {
		got := Classify(item, settings, now)
		if Urgency(got) > Urgency(prev) {
			t.Fatalf("status went backward at %v: %s -> %s", now, prev, got)
		}
		if Urgency(prev)-Urgency(got) > 1 {
			t.Fatalf("status skipped a state at %v: %s -> %s", now, prev, got)
		}
		seen[got] = true
		prev = got
	}

	for _, s := range []model.LightStatus{model.LightUnnecessary, model.LightCanInspect, model.LightPending} {
		if !seen[s] {
			t.Errorf("sweep never reached %s", s)
		}
	}
}

func TestRemainingDays_NeverInspectedIsFarOverdue(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	if got := RemainingDays(model.Equipment{}, now); got > -20000 {
		t.Errorf("RemainingDays() = %d, want a large negative number", got)
	}
}
