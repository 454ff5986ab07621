package checks

import (
	"errors"
	"strings"

	"inspect-mcp/internal/model"
)

// ErrMissingAbnormalNotes is returned when a failing check is submitted without notes.
var ErrMissingAbnormalNotes = errors.New("abnormal result requires notes")

// Verdict is the combined outcome of all check points of one equipment item.
type Verdict struct {
	Status      model.CheckStatus
	CheckPoints map[string]any
	Snapshots   []model.ResultSnapshot
	FailedNames []string
}

// Abnormal reports whether any check point failed.
func (v Verdict) Abnormal() bool {
	return v.Status == model.CheckAbnormal
}

// Aggregate evaluates every check definition of item against results (keyed by
// definition ID) and folds them into a single verdict.
//
// The verdict is always returned; err is ErrMissingAbnormalNotes when the verdict
// is abnormal and notes are blank, in which case nothing may be persisted.
func Aggregate(item model.Equipment, results map[string]any, notes string) (Verdict, error) {
	v := Verdict{
		Status:      model.CheckNormal,
		CheckPoints: Sanitize(results),
		Snapshots:   make([]model.ResultSnapshot, 0, len(item.CheckItems)),
	}

	for _, def := range item.CheckItems {
		raw := results[def.ID]
		passed := Evaluate(def, raw) == Pass
		if !passed {
			v.Status = model.CheckAbnormal
			if def.Name != "" {
				v.FailedNames = append(v.FailedNames, def.Name)
			}
		}
		v.Snapshots = append(v.Snapshots, model.ResultSnapshot{
			CheckID:   def.ID,
			Name:      def.Name,
			Value:     raw,
			Threshold: Describe(def),
			Unit:      def.Unit,
			Passed:    passed,
		})
	}

	if v.Abnormal() && strings.TrimSpace(notes) == "" {
		return v, ErrMissingAbnormalNotes
	}
	return v, nil
}

// Sanitize copies results without empty keys or nil values, ready for storage.
func Sanitize(results map[string]any) map[string]any {
	clean := make(map[string]any, len(results))
	for k, v := range results {
		if k == "" || v == nil {
			continue
		}
		clean[k] = v
	}
	return clean
}
