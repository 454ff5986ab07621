package checks

import (
	"math"
	"strconv"
	"strings"

	"inspect-mcp/internal/model"
)

// Outcome is the pass/fail result of a single check point.
type Outcome bool

const (
	Pass Outcome = true
	Fail Outcome = false
)

func (o Outcome) String() string {
	if o {
		return "pass"
	}
	return "fail"
}

// Evaluate decides whether raw satisfies the check definition.
//
// Boolean checks fail only on an explicit false. Every other input type is
// numeric; values that cannot be parsed pass, so partial data entry never
// blocks a submission.
func Evaluate(def model.CheckDefinition, raw any) Outcome {
	if def.InputType == model.InputBoolean {
		if b, ok := raw.(bool); ok && !b {
			return Fail
		}
		return Pass
	}

	v, ok := ParseNumber(raw)
	if !ok {
		return Pass
	}
	return compare(def, v)
}

func compare(def model.CheckDefinition, v float64) Outcome {
	// A missing bound never fails the comparison it takes part in.
	below := func(bound *float64) bool { return bound != nil && v < *bound }
	above := func(bound *float64) bool { return bound != nil && v > *bound }
	atMost := func(bound *float64) bool { return bound != nil && v <= *bound }
	atLeast := func(bound *float64) bool { return bound != nil && v >= *bound }

	var failed bool
	switch def.ThresholdMode {
	case model.ThresholdRange:
		failed = below(def.Val1) || above(def.Val2)
	case model.ThresholdGT:
		failed = atMost(def.Val1)
	case model.ThresholdGTE:
		failed = below(def.Val1)
	case model.ThresholdLT:
		failed = atLeast(def.Val1)
	case model.ThresholdLTE:
		failed = above(def.Val1)
	}
	return Outcome(!failed)
}

// ParseNumber extracts a finite float from the raw values a form or document
// can carry. "Inf", "NaN" and friends count as unparseable.
func ParseNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, finite(v)
	case float32:
		return float64(v), finite(float64(v))
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || !finite(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// Describe renders a human-readable threshold, e.g. "range 10~50" or "gt 5".
// Checks without a threshold describe as the empty string.
func Describe(def model.CheckDefinition) string {
	if def.InputType == model.InputBoolean || def.ThresholdMode == model.ThresholdNone {
		return ""
	}
	if def.ThresholdMode == model.ThresholdRange {
		return string(def.ThresholdMode) + " " + formatBound(def.Val1) + "~" + formatBound(def.Val2)
	}
	return string(def.ThresholdMode) + " " + formatBound(def.Val1)
}

func formatBound(v *float64) string {
	if v == nil {
		return "?"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
