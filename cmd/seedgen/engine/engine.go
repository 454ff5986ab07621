package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"inspect-mcp/internal/model"
	"inspect-mcp/internal/schedule"
	"inspect-mcp/internal/store/filestore"
)

type GeneratorConfig struct {
	Scenario  string // "fresh", "mixed" or "overdue"
	Count     int
	Buildings int
	Seed      int64
	Now       time.Time
}

type kind struct {
	name      string
	frequency string
	checks    []model.CheckDefinition
}

var kinds = []kind{
	{
		name:      "Fire Extinguisher",
		frequency: "monthly",
		checks: []model.CheckDefinition{
			{ID: "pressure", Name: "Gauge pressure", InputType: model.InputNumber, Unit: "bar",
				ThresholdMode: model.ThresholdRange, Val1: model.Float(10), Val2: model.Float(15)},
			{ID: "pin", Name: "Safety pin in place", InputType: model.InputBoolean},
			{ID: "hose", Name: "Hose undamaged", InputType: model.InputBoolean},
		},
	},
	{
		name:      "Fire Hydrant",
		frequency: "quarterly",
		checks: []model.CheckDefinition{
			{ID: "flow", Name: "Flow rate", InputType: model.InputNumber, Unit: "L/min",
				ThresholdMode: model.ThresholdGTE, Val1: model.Float(130)},
			{ID: "valve", Name: "Valve operable", InputType: model.InputBoolean},
		},
	},
	{
		name:      "Emergency Light",
		frequency: "14",
		checks: []model.CheckDefinition{
			{ID: "lamp", Name: "Lamp lights on test", InputType: model.InputBoolean},
			{ID: "battery", Name: "Battery voltage", InputType: model.InputNumber, Unit: "V",
				ThresholdMode: model.ThresholdGT, Val1: model.Float(5.8)},
		},
	},
	{
		name:      "Smoke Detector",
		frequency: "yearly",
		checks: []model.CheckDefinition{
			{ID: "alarm", Name: "Alarm sounds", InputType: model.InputBoolean},
			{ID: "sensitivity", Name: "Sensitivity", InputType: model.InputNumber, Unit: "%/m",
				ThresholdMode: model.ThresholdLTE, Val1: model.Float(4)},
		},
	},
}

// Generate builds Count equipment items with last inspections spread so the
// scenario's status mix appears on today's board.
func Generate(cfg GeneratorConfig) ([]model.Equipment, error) {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if cfg.Count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", cfg.Count)
	}
	if cfg.Buildings <= 0 {
		cfg.Buildings = 1
	}

	var overdueShare float64
	switch cfg.Scenario {
	case "fresh":
		overdueShare = 0
	case "mixed", "":
		overdueShare = 0.3
	case "overdue":
		overdueShare = 0.8
	default:
		return nil, fmt.Errorf("unknown scenario %q", cfg.Scenario)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	items := make([]model.Equipment, 0, cfg.Count)

	for i := 0; i < cfg.Count; i++ {
		k := kinds[i%len(kinds)]
		cycle := schedule.CycleDays(k.frequency)
		building := fmt.Sprintf("Building %c", 'A'+rune(i%cfg.Buildings))

		created := cfg.Now.AddDate(-1, 0, 0)
		item := model.Equipment{
			ID:             fmt.Sprintf("EQ-%04d", i+1),
			Barcode:        fmt.Sprintf("SEED%06d", 100000+i),
			Name:           fmt.Sprintf("%s %d", k.name, i/len(kinds)+1),
			SiteName:       "Main Site",
			BuildingName:   building,
			CheckFrequency: k.frequency,
			CreatedAt:      &created,
			CheckItems:     append([]model.CheckDefinition(nil), k.checks...),
		}

		// Days since the last inspection: past the cycle when overdue, within it otherwise.
		var ago int
		switch {
		case i == 0 && cfg.Scenario != "fresh":
			// Leave one item never inspected.
			items = append(items, item)
			continue
		case rng.Float64() < overdueShare:
			ago = cycle + rng.Intn(cycle/2+1)
		default:
			ago = 1 + rng.Intn(cycle)
		}
		last := cfg.Now.AddDate(0, 0, -ago).Add(-time.Duration(rng.Intn(8)) * time.Hour)
		item.LastInspectedDate = &last
		items = append(items, item)
	}
	return items, nil
}

// Save writes items into the file store at dir, replacing items with the same id.
func Save(ctx context.Context, dir string, items []model.Equipment) error {
	fs, err := filestore.Open(dir, model.DefaultLightSettings())
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := fs.SaveEquipment(ctx, item); err != nil {
			return fmt.Errorf("failed to save %s: %w", item.ID, err)
		}
	}
	return nil
}
