package mcp

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"inspect-mcp/internal/model"
)

// FindEquipmentInput is the argument of find_equipment.
type FindEquipmentInput struct {
	Code string `json:"code" jsonschema:"Barcode or equipment id, as scanned or typed"`
}

// BoardInput is the argument of equipment_board.
type BoardInput struct {
	SiteName     string `json:"site_name,omitempty" jsonschema:"Only list equipment on this site"`
	BuildingName string `json:"building_name,omitempty" jsonschema:"Only list equipment in this building"`
}

// SubmitCheckInput is the argument of submit_check.
type SubmitCheckInput struct {
	Code          string         `json:"code" jsonschema:"Barcode or equipment id of the inspected item"`
	Results       map[string]any `json:"results" jsonschema:"Check results keyed by check item id: true/false for boolean checks, a number for numeric checks"`
	Notes         string         `json:"notes,omitempty" jsonschema:"Inspector notes. Required when any check fails"`
	InspectorName string         `json:"inspector_name,omitempty" jsonschema:"Name recorded on the report; defaults to the configured inspector"`
}

// LightSettingsInput is the argument of light_settings. Without fields it only reads.
type LightSettingsInput struct {
	RedThreshold    *int              `json:"red_threshold,omitempty" jsonschema:"Remaining days at or below which an item is PENDING"`
	YellowThreshold *int              `json:"yellow_threshold,omitempty" jsonschema:"Remaining days at or below which an item is CAN_INSPECT"`
	Colors          map[string]string `json:"colors,omitempty" jsonschema:"Display color per status"`
}

func (s *Server) registerTools() error {
	findSchema, err := schemaFor[FindEquipmentInput]()
	if err != nil {
		return err
	}
	boardSchema, err := schemaFor[BoardInput]()
	if err != nil {
		return err
	}
	submitSchema, err := schemaFor[SubmitCheckInput]()
	if err != nil {
		return err
	}
	settingsSchema, err := schemaFor[LightSettingsInput]()
	if err != nil {
		return err
	}
	statuses := []any{
		string(model.LightCompleted),
		string(model.LightPending),
		string(model.LightCanInspect),
		string(model.LightUnnecessary),
	}
	if colors, ok := settingsSchema.Properties["colors"]; ok {
		colors.PropertyNames = &jsonschema.Schema{Enum: statuses}
	}

	sdkmcp.AddTool(s.sdk, &sdkmcp.Tool{
		Name: "find_equipment",
		Description: "Look up one equipment item by barcode or id and return its check items and current traffic-light status. " +
			"Guidance: call this before 'submit_check' to learn the check item ids the results must be keyed by.",
		InputSchema: findSchema,
	}, s.handleFindEquipment)

	sdkmcp.AddTool(s.sdk, &sdkmcp.Tool{
		Name: "equipment_board",
		Description: "List equipment with its traffic-light status (COMPLETED, PENDING, CAN_INSPECT, UNNECESSARY), most urgent first. " +
			"Items submitted in this session show as COMPLETED for 24 hours even before the store reflects the check.",
		InputSchema: boardSchema,
	}, s.handleBoard)

	sdkmcp.AddTool(s.sdk, &sdkmcp.Tool{
		Name: "submit_check",
		Description: "Submit an inspection of one equipment item. Every check is evaluated against its threshold; any failure makes the check Abnormal. " +
			"STRICT: an Abnormal check is rejected unless notes describe the problem. Do not invent notes; ask the user. " +
			"Numeric values that cannot be parsed count as passing.",
		InputSchema: submitSchema,
	}, s.handleSubmitCheck)

	sdkmcp.AddTool(s.sdk, &sdkmcp.Tool{
		Name:        "light_settings",
		Description: "Read the traffic-light thresholds and colors, or update them when any field is given.",
		InputSchema: settingsSchema,
	}, s.handleLightSettings)

	return nil
}

func schemaFor[T any]() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		var zero T
		return nil, fmt.Errorf("failed to build input schema for %T: %w", zero, err)
	}
	return schema, nil
}
