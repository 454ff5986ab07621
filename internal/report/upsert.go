package report

import (
	"time"

	"inspect-mcp/internal/clock"
	"inspect-mcp/internal/model"
)

// UnspecifiedItem stands in for failed check names that could not be attributed.
const UnspecifiedItem = "unspecified item"

// Check is one equipment check ready to be folded into a report.
type Check struct {
	Equipment     model.Equipment
	InspectorName string
	Item          model.InspectionItem
}

// BelongsToday reports whether r is the report for building on now's calendar day.
func BelongsToday(r model.Report, building string, now time.Time) bool {
	return r.BuildingName == building && !r.Date.Before(clock.StartOfDay(now))
}

// Upsert finds today's report for the check's building among existing and
// folds the check's item into it by equipment ID. When no report matches, a new
// one dated now is synthesized; isNew tells the caller to create instead of update.
//
// Archived follows the status of the item just submitted, not the whole report.
func Upsert(existing []model.Report, c Check, now time.Time) (r model.Report, isNew bool) {
	building := c.Equipment.BuildingName

	found := -1
	for i := range existing {
		if BelongsToday(existing[i], building, now) {
			found = i
			break
		}
	}

	if found < 0 {
		r = model.Report{
			BuildingName:  building,
			InspectorName: c.InspectorName,
			Date:          now,
			Items:         []model.InspectionItem{c.Item},
			OverallStatus: model.ReportInProgress,
		}
		isNew = true
	} else {
		r = existing[found]
		r.Items = upsertItem(r.Items, c.Item)
	}

	r.Archived = c.Item.Status == model.CheckNormal
	return r, isNew
}

func upsertItem(items []model.InspectionItem, item model.InspectionItem) []model.InspectionItem {
	out := make([]model.InspectionItem, len(items), len(items)+1)
	copy(out, items)
	for i := range out {
		if out[i].EquipmentID == item.EquipmentID {
			out[i] = item
			return out
		}
	}
	return append(out, item)
}

// Summary counts item outcomes inside a report.
type Summary struct {
	Items    int `json:"items"`
	Normal   int `json:"normal"`
	Abnormal int `json:"abnormal"`
}

// Summarize counts item outcomes without touching the stored overall status.
func Summarize(r model.Report) Summary {
	s := Summary{Items: len(r.Items)}
	for _, it := range r.Items {
		if it.Status == model.CheckAbnormal {
			s.Abnormal++
		} else {
			s.Normal++
		}
	}
	return s
}
