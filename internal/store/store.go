package store

import (
	"context"
	"errors"
	"time"

	"inspect-mcp/internal/model"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Filter narrows equipment listings. Empty fields match everything.
type Filter struct {
	SiteName     string
	BuildingName string
}

// Match reports whether e passes the filter.
func (f Filter) Match(e model.Equipment) bool {
	if f.SiteName != "" && e.SiteName != f.SiteName {
		return false
	}
	if f.BuildingName != "" && e.BuildingName != f.BuildingName {
		return false
	}
	return true
}

// Scope selects whose light settings apply.
type Scope struct {
	OrgID  string
	UserID string
}

// EquipmentStore holds equipment definitions.
type EquipmentStore interface {
	ListEquipment(ctx context.Context, f Filter) ([]model.Equipment, error)
	GetEquipment(ctx context.Context, id string) (model.Equipment, error)
	FindEquipmentByBarcode(ctx context.Context, barcode string) (model.Equipment, error)
	SaveEquipment(ctx context.Context, e model.Equipment) error
	UpdateLastInspected(ctx context.Context, id string, at time.Time) error
}

// ReportStore holds per-building daily reports.
type ReportStore interface {
	// FindReports returns reports of a building dated in [from, to); a zero to is open-ended.
	FindReports(ctx context.Context, building string, from, to time.Time) ([]model.Report, error)
	CreateReport(ctx context.Context, r model.Report) (string, error)
	UpdateReport(ctx context.Context, r model.Report) error
}

// AbnormalStore receives follow-up records for failed checks.
type AbnormalStore interface {
	CreateAbnormal(ctx context.Context, rec model.AbnormalRecord) (string, error)
}

// SettingsStore serves traffic-light settings per organization or user.
type SettingsStore interface {
	LoadLightSettings(ctx context.Context, scope Scope) (model.LightSettings, error)
}

// Store is the full set of primitives the engine consumes.
type Store interface {
	EquipmentStore
	ReportStore
	AbnormalStore
	SettingsStore
}

// SettingsWriter is implemented by stores that can persist light settings.
type SettingsWriter interface {
	SaveLightSettings(ctx context.Context, scope Scope, s model.LightSettings) error
}

// AbnormalLister is implemented by stores that can list abnormal records.
type AbnormalLister interface {
	ListAbnormal(ctx context.Context) ([]model.AbnormalRecord, error)
}
