package model

import "time"

// CheckStatus is the overall verdict for one equipment check.
type CheckStatus string

const (
	CheckNormal   CheckStatus = "Normal"
	CheckAbnormal CheckStatus = "Abnormal"
)

// ReportStatus is the lifecycle status stored on a report document.
type ReportStatus string

const (
	ReportInProgress ReportStatus = "InProgress"
	ReportPass       ReportStatus = "Pass"
	ReportFail       ReportStatus = "Fail"
)

// AbnormalPending is the initial lifecycle status of an AbnormalRecord.
const AbnormalPending = "pending"

// ResultSnapshot freezes one check point result for archival inside a report.
type ResultSnapshot struct {
	CheckID   string `json:"checkId"`
	Name      string `json:"name"`
	Value     any    `json:"value"`
	Threshold string `json:"threshold,omitempty"` // e.g. "range 10~50"
	Unit      string `json:"unit,omitempty"`
	Passed    bool   `json:"passed"`
}

// InspectionItem is one equipment check inside a report, keyed by EquipmentID.
type InspectionItem struct {
	EquipmentID   string           `json:"equipmentId" validate:"required"`
	EquipmentName string           `json:"equipmentName"`
	Barcode       string           `json:"barcode"`
	Frequency     string           `json:"frequency,omitempty"`
	Status        CheckStatus      `json:"status"`
	CheckPoints   map[string]any   `json:"checkPoints,omitempty"`
	Results       []ResultSnapshot `json:"results,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	LastUpdated   time.Time        `json:"lastUpdated"`
}

// Report is the per-building, per-day aggregate of equipment checks.
type Report struct {
	ID            string           `json:"id,omitempty"`
	BuildingName  string           `json:"buildingName" validate:"required"`
	InspectorName string           `json:"inspectorName,omitempty"`
	Date          time.Time        `json:"date"`
	Items         []InspectionItem `json:"items" validate:"dive"`
	OverallStatus ReportStatus     `json:"overallStatus"`
	Archived      bool             `json:"archived"`
}

// Item returns the inspection item for an equipment ID, if present.
func (r *Report) Item(equipmentID string) (InspectionItem, bool) {
	for _, it := range r.Items {
		if it.EquipmentID == equipmentID {
			return it, true
		}
	}
	return InspectionItem{}, false
}

// AbnormalRecord is the follow-up document created when a check fails.
type AbnormalRecord struct {
	ID             string    `json:"id,omitempty"`
	EquipmentID    string    `json:"equipmentId" validate:"required"`
	EquipmentName  string    `json:"equipmentName"`
	Barcode        string    `json:"barcode"`
	SiteName       string    `json:"siteName"`
	BuildingName   string    `json:"buildingName"`
	FailedItems    []string  `json:"failedItems"`
	AbnormalReason string    `json:"abnormalReason"`
	Status         string    `json:"status"`
	ReportID       string    `json:"reportId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
