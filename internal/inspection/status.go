package inspection

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"inspect-mcp/internal/model"
	"inspect-mcp/internal/schedule"
	"inspect-mcp/internal/store"
)

// ItemStatus is the traffic light of one equipment item as a view would draw it.
type ItemStatus struct {
	ID            string            `json:"id"`
	Barcode       string            `json:"barcode"`
	Name          string            `json:"name"`
	SiteName      string            `json:"siteName"`
	BuildingName  string            `json:"buildingName"`
	Frequency     string            `json:"checkFrequency,omitempty"`
	Status        model.LightStatus `json:"status"`
	Color         string            `json:"color"`
	LastInspected *time.Time        `json:"lastInspectedDate,omitempty"`
	NextDue       *time.Time        `json:"nextDue,omitempty"`
	RemainingDays int               `json:"remainingDays"`
	Overridden    bool              `json:"overridden"`
}

// Board is every item's status for one filter at one instant.
type Board struct {
	GeneratedAt time.Time                 `json:"generatedAt"`
	Settings    model.LightSettings       `json:"settings"`
	Counts      map[model.LightStatus]int `json:"counts"`
	Items       []ItemStatus              `json:"items"`
}

// Status computes an item's visible status at the engine's now. An active
// override shows the item as completed whatever the stored data says.
func (e *Engine) Status(item model.Equipment, settings model.LightSettings) ItemStatus {
	return e.statusAt(item, settings, e.clock.Now())
}

func (e *Engine) statusAt(item model.Equipment, settings model.LightSettings, now time.Time) ItemStatus {
	st := ItemStatus{
		ID:            item.ID,
		Barcode:       item.Barcode,
		Name:          item.Name,
		SiteName:      item.SiteName,
		BuildingName:  item.BuildingName,
		Frequency:     item.CheckFrequency,
		LastInspected: item.LastInspectedDate,
		RemainingDays: schedule.RemainingDays(item, now),
		Status:        schedule.Classify(item, settings, now),
	}
	if due := schedule.NextDue(item); !due.IsZero() {
		st.NextDue = &due
	}

	if e.ledger.Active(KeyFor(item), now) {
		st.Status = model.LightCompleted
		st.Overridden = true
	}
	st.Color = settings.Color(st.Status)
	return st
}

// Board lists every item matching f with its current status, most urgent first.
func (e *Engine) Board(ctx context.Context, f store.Filter) (Board, error) {
	settings, err := e.LightSettings(ctx)
	if err != nil {
		return Board{}, err
	}
	items, err := e.store.ListEquipment(ctx, f)
	if err != nil {
		return Board{}, fmt.Errorf("failed to list equipment: %w", err)
	}

	now := e.clock.Now()
	if n := e.Reconcile(now); n > 0 {
		log.Debug().Int("released", n).Msg("Released expired local overrides")
	}

	b := Board{
		GeneratedAt: now,
		Settings:    settings,
		Counts:      make(map[model.LightStatus]int),
		Items:       make([]ItemStatus, 0, len(items)),
	}
	for _, item := range items {
		st := e.statusAt(item, settings, now)
		b.Counts[st.Status]++
		b.Items = append(b.Items, st)
	}

	sort.SliceStable(b.Items, func(i, j int) bool {
		ui, uj := schedule.Urgency(b.Items[i].Status), schedule.Urgency(b.Items[j].Status)
		if ui != uj {
			return ui < uj
		}
		return b.Items[i].RemainingDays < b.Items[j].RemainingDays
	})

	counts := make(map[string]int, len(b.Counts))
	for s, n := range b.Counts {
		counts[string(s)] = n
	}
	e.metrics.SetBoard(counts)
	return b, nil
}

// Reconcile releases overrides whose window has elapsed at now and returns how
// many handles were dropped. A mark inside its window stays authoritative even
// after the stored inspection catches up, so the item keeps reading COMPLETED
// across midnight.
func (e *Engine) Reconcile(now time.Time) int {
	return e.ledger.Prune(now)
}
