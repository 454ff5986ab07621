package model

import "time"

// InputType is how a check point is captured in the field.
type InputType string

const (
	InputBoolean InputType = "boolean"
	InputNumber  InputType = "number"
)

// ThresholdMode is the comparison applied to a numeric check value.
type ThresholdMode string

const (
	ThresholdNone  ThresholdMode = ""
	ThresholdRange ThresholdMode = "range"
	ThresholdGT    ThresholdMode = "gt"
	ThresholdGTE   ThresholdMode = "gte"
	ThresholdLT    ThresholdMode = "lt"
	ThresholdLTE   ThresholdMode = "lte"
)

// CheckDefinition describes one check point on a piece of equipment.
type CheckDefinition struct {
	ID            string        `json:"id" validate:"required"`
	Name          string        `json:"name"`
	InputType     InputType     `json:"inputType" validate:"omitempty,oneof=boolean number"`
	Unit          string        `json:"unit,omitempty"`
	ThresholdMode ThresholdMode `json:"thresholdMode,omitempty" validate:"omitempty,oneof=range gt gte lt lte"`
	Val1          *float64      `json:"val1,omitempty"`
	Val2          *float64      `json:"val2,omitempty"` // range only
}

// Equipment is a single inspected item (extinguisher, hydrant, alarm panel...).
type Equipment struct {
	ID                string            `json:"id" validate:"required"`
	Barcode           string            `json:"barcode"`
	Name              string            `json:"name"`
	SiteName          string            `json:"siteName"`
	BuildingName      string            `json:"buildingName"`
	CheckFrequency    string            `json:"checkFrequency,omitempty"`
	LastInspectedDate *time.Time        `json:"lastInspectedDate,omitempty"`
	CreatedAt         *time.Time        `json:"createdAt,omitempty"`
	CheckItems        []CheckDefinition `json:"checkItems,omitempty" validate:"dive"`
}

// Float returns a pointer to v, for building optional threshold bounds.
func Float(v float64) *float64 {
	return &v
}

// Time returns a pointer to t, for optional timestamps.
func Time(t time.Time) *time.Time {
	return &t
}
