package checks

import (
	"errors"
	"testing"

	"inspect-mcp/internal/model"
)

func numeric(mode model.ThresholdMode, v1, v2 *float64) model.CheckDefinition {
	return model.CheckDefinition{ID: "c", Name: "Pressure", InputType: model.InputNumber, ThresholdMode: mode, Val1: v1, Val2: v2}
}

func TestEvaluate(t *testing.T) {
	f := model.Float
	tests := []struct {
		name string
		def  model.CheckDefinition
		raw  any
		want Outcome
	}{
		{"RangeBelow", numeric(model.ThresholdRange, f(10), f(50)), 5.0, Fail},
		{"RangeInside", numeric(model.ThresholdRange, f(10), f(50)), 30.0, Pass},
		{"RangeLowerEdge", numeric(model.ThresholdRange, f(10), f(50)), 10.0, Pass},
		{"RangeUpperEdge", numeric(model.ThresholdRange, f(10), f(50)), 50.0, Pass},
		{"RangeAbove", numeric(model.ThresholdRange, f(10), f(50)), 50.5, Fail},
		{"RangeMissingUpper", numeric(model.ThresholdRange, f(10), nil), 500.0, Pass},
		{"GTEqual", numeric(model.ThresholdGT, f(0), nil), 0.0, Fail},
		{"GTAbove", numeric(model.ThresholdGT, f(0), nil), 0.1, Pass},
		{"GTEEqual", numeric(model.ThresholdGTE, f(3), nil), 3.0, Pass},
		{"GTEBelow", numeric(model.ThresholdGTE, f(3), nil), 2.9, Fail},
		{"LTEqual", numeric(model.ThresholdLT, f(8), nil), 8.0, Fail},
		{"LTBelow", numeric(model.ThresholdLT, f(8), nil), 7.0, Pass},
		{"LTEEqual", numeric(model.ThresholdLTE, f(8), nil), 8.0, Pass},
		{"LTEAbove", numeric(model.ThresholdLTE, f(8), nil), 8.01, Fail},
		{"NumericString", numeric(model.ThresholdGT, f(1), nil), " 0.5 ", Fail},
		{"IntValue", numeric(model.ThresholdLT, f(1), nil), 2, Fail},
		{"Unparseable", model.CheckDefinition{InputType: model.InputNumber}, "abc", Pass},
		{"UnparseableWithThreshold", numeric(model.ThresholdGT, f(5), nil), "abc", Pass},
		{"InfinityStringLT", numeric(model.ThresholdLT, f(8), nil), "Inf", Pass},
		{"InfinityStringLTE", numeric(model.ThresholdLTE, f(8), nil), "infinity", Pass},
		{"NegativeInfinityGT", numeric(model.ThresholdGT, f(0), nil), "-Inf", Pass},
		{"NaNString", numeric(model.ThresholdRange, f(10), f(50)), "NaN", Pass},
		{"Missing", numeric(model.ThresholdGT, f(5), nil), nil, Pass},
		{"NoMode", numeric(model.ThresholdNone, f(5), nil), -100.0, Pass},
		{"BooleanFalse", model.CheckDefinition{InputType: model.InputBoolean}, false, Fail},
		{"BooleanTrue", model.CheckDefinition{InputType: model.InputBoolean}, true, Pass},
		{"BooleanUnset", model.CheckDefinition{InputType: model.InputBoolean}, nil, Pass},
		{"BooleanStringFalse", model.CheckDefinition{InputType: model.InputBoolean}, "false", Pass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.def, tt.raw); got != tt.want {
				t.Errorf("Evaluate(%v) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	f := model.Float
	tests := []struct {
		def  model.CheckDefinition
		want string
	}{
		{numeric(model.ThresholdRange, f(10), f(50)), "range 10~50"},
		{numeric(model.ThresholdGT, f(5), nil), "gt 5"},
		{numeric(model.ThresholdLTE, f(0.25), nil), "lte 0.25"},
		{numeric(model.ThresholdNone, nil, nil), ""},
		{model.CheckDefinition{InputType: model.InputBoolean}, ""},
	}
	for _, tt := range tests {
		if got := Describe(tt.def); got != tt.want {
			t.Errorf("Describe(%+v) = %q, want %q", tt.def, got, tt.want)
		}
	}
}

func extinguisher() model.Equipment {
	return model.Equipment{
		ID:      "eq-1",
		Barcode: "FX-001",
		Name:    "Extinguisher 1F",
		CheckItems: []model.CheckDefinition{
			{ID: "seal", Name: "Seal intact", InputType: model.InputBoolean},
			{ID: "psi", Name: "Pressure", InputType: model.InputNumber, Unit: "MPa", ThresholdMode: model.ThresholdRange, Val1: model.Float(0.7), Val2: model.Float(1.2)},
		},
	}
}

func TestAggregate_Normal(t *testing.T) {
	v, err := Aggregate(extinguisher(), map[string]any{"seal": true, "psi": 0.9}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Status != model.CheckNormal {
		t.Errorf("expected Normal, got %s", v.Status)
	}
	if len(v.Snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(v.Snapshots))
	}
	if v.Snapshots[1].Threshold != "range 0.7~1.2" || v.Snapshots[1].Unit != "MPa" {
		t.Errorf("unexpected snapshot: %+v", v.Snapshots[1])
	}
	if len(v.FailedNames) != 0 {
		t.Errorf("expected no failed names, got %v", v.FailedNames)
	}
}

func TestAggregate_AbnormalRequiresNotes(t *testing.T) {
	results := map[string]any{"seal": false, "psi": 0.9}

	v, err := Aggregate(extinguisher(), results, "   ")
	if !errors.Is(err, ErrMissingAbnormalNotes) {
		t.Fatalf("expected ErrMissingAbnormalNotes, got %v", err)
	}
	if !v.Abnormal() {
		t.Errorf("verdict should still report Abnormal")
	}

	v, err = Aggregate(extinguisher(), results, "seal broken, replaced")
	if err != nil {
		t.Fatalf("unexpected error with notes: %v", err)
	}
	if len(v.FailedNames) != 1 || v.FailedNames[0] != "Seal intact" {
		t.Errorf("expected failed names [Seal intact], got %v", v.FailedNames)
	}
	if v.Snapshots[0].Passed {
		t.Errorf("seal snapshot should be marked failed")
	}
}

func TestAggregate_SnapshotsEvenWhenResultMissing(t *testing.T) {
	v, err := Aggregate(extinguisher(), map[string]any{}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Status != model.CheckNormal || len(v.Snapshots) != 2 {
		t.Errorf("expected Normal with 2 snapshots, got %s / %d", v.Status, len(v.Snapshots))
	}
}

func TestSanitize(t *testing.T) {
	in := map[string]any{"": true, "seal": true, "psi": nil, "note": ""}
	out := Sanitize(in)

	if _, ok := out[""]; ok {
		t.Errorf("empty key should be dropped")
	}
	if _, ok := out["psi"]; ok {
		t.Errorf("nil value should be dropped")
	}
	if len(out) != 2 {
		t.Errorf("expected 2 entries, got %d: %v", len(out), out)
	}
	if len(in) != 4 {
		t.Errorf("Sanitize mutated its input")
	}
}
