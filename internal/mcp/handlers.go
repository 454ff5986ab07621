package mcp

import (
	"context"
	"errors"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"inspect-mcp/internal/checks"
	"inspect-mcp/internal/inspection"
	"inspect-mcp/internal/model"
	"inspect-mcp/internal/report"
	"inspect-mcp/internal/store"
	"inspect-mcp/internal/visuals"
)

// FindEquipmentOutput is the result of find_equipment.
type FindEquipmentOutput struct {
	Found     bool                   `json:"found"`
	Equipment *EquipmentView         `json:"equipment,omitempty"`
	Status    *inspection.ItemStatus `json:"status,omitempty"`
	Guidance  []string               `json:"guidance,omitempty"`
}

// EquipmentView is an equipment item with its check items described for display.
type EquipmentView struct {
	ID             string      `json:"id"`
	Barcode        string      `json:"barcode"`
	Name           string      `json:"name"`
	SiteName       string      `json:"siteName"`
	BuildingName   string      `json:"buildingName"`
	CheckFrequency string      `json:"checkFrequency,omitempty"`
	CheckItems     []CheckView `json:"checkItems"`
}

// CheckView is one check item as a client should prompt for it.
type CheckView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	InputType string `json:"inputType"`
	Threshold string `json:"threshold,omitempty"`
	Unit      string `json:"unit,omitempty"`
}

// BoardOutput is the result of equipment_board.
type BoardOutput struct {
	Board           inspection.Board `json:"board"`
	VisualStatusPie string           `json:"visual_status_pie,omitempty"`
	VisualDueChart  string           `json:"visual_due_chart,omitempty"`
	Guidance        []string         `json:"guidance,omitempty"`
}

// SubmitCheckOutput is the result of submit_check.
type SubmitCheckOutput struct {
	Accepted      bool                   `json:"accepted"`
	Verdict       model.CheckStatus      `json:"verdict"`
	Results       []model.ResultSnapshot `json:"results"`
	FailedItems   []string               `json:"failedItems,omitempty"`
	Persisted     bool                   `json:"persisted"`
	ReportID      string                 `json:"reportId,omitempty"`
	ReportCreated bool                   `json:"reportCreated"`
	Archived      bool                   `json:"archived"`
	AbnormalID    string                 `json:"abnormalId,omitempty"`
	Summary       *report.Summary        `json:"reportSummary,omitempty"`
	Guidance      []string               `json:"guidance,omitempty"`
}

// LightSettingsOutput is the result of light_settings.
type LightSettingsOutput struct {
	Settings model.LightSettings `json:"settings"`
	Updated  bool                `json:"updated"`
}

func (s *Server) handleFindEquipment(ctx context.Context, _ *sdkmcp.CallToolRequest, in FindEquipmentInput) (*sdkmcp.CallToolResult, FindEquipmentOutput, error) {
	item, found, err := s.engine.FindEquipment(ctx, in.Code)
	if err != nil {
		return nil, FindEquipmentOutput{}, err
	}
	if !found {
		return nil, FindEquipmentOutput{
			Found:    false,
			Guidance: []string{fmt.Sprintf("No equipment matches %q. Check the barcode, or list candidates with 'equipment_board'.", in.Code)},
		}, nil
	}

	settings, err := s.engine.LightSettings(ctx)
	if err != nil {
		return nil, FindEquipmentOutput{}, err
	}
	st := s.engine.Status(item, settings)

	out := FindEquipmentOutput{
		Found:     true,
		Equipment: viewEquipment(item),
		Status:    &st,
	}
	if st.Status == model.LightCompleted {
		out.Guidance = append(out.Guidance, "This item is already inspected today; a new submission replaces today's entry in the report.")
	}
	return nil, out, nil
}

func (s *Server) handleBoard(ctx context.Context, _ *sdkmcp.CallToolRequest, in BoardInput) (*sdkmcp.CallToolResult, BoardOutput, error) {
	b, err := s.engine.Board(ctx, store.Filter{SiteName: in.SiteName, BuildingName: in.BuildingName})
	if err != nil {
		return nil, BoardOutput{}, err
	}

	out := BoardOutput{Board: b}
	if s.charts {
		out.VisualStatusPie = visuals.GenerateStatusPie(b)
		out.VisualDueChart = visuals.GenerateDueChart(b)
	}
	if len(b.Items) == 0 {
		out.Guidance = append(out.Guidance, "No equipment matched. Site and building names must match exactly.")
	}
	if n := b.Counts[model.LightPending]; n > 0 {
		out.Guidance = append(out.Guidance, fmt.Sprintf("%d item(s) are due now and listed first.", n))
	}
	return nil, out, nil
}

func (s *Server) handleSubmitCheck(ctx context.Context, _ *sdkmcp.CallToolRequest, in SubmitCheckInput) (*sdkmcp.CallToolResult, SubmitCheckOutput, error) {
	item, found, err := s.engine.FindEquipment(ctx, in.Code)
	if err != nil {
		return nil, SubmitCheckOutput{}, err
	}
	if !found {
		return errorResult(fmt.Sprintf("no equipment matches %q", in.Code)), SubmitCheckOutput{}, nil
	}

	sub, err := s.engine.Submit(ctx, inspection.SubmitRequest{
		Equipment:     item,
		Results:       in.Results,
		Notes:         in.Notes,
		InspectorName: in.InspectorName,
	})

	out := SubmitCheckOutput{
		Verdict:     sub.Verdict.Status,
		Results:     sub.Verdict.Snapshots,
		FailedItems: sub.Verdict.FailedNames,
	}

	if errors.Is(err, checks.ErrMissingAbnormalNotes) {
		out.Guidance = []string{"The check is Abnormal. Ask the inspector what is wrong and resubmit with notes. Nothing was recorded."}
		return errorResult("abnormal check needs notes describing the problem"), out, nil
	}

	out.Accepted = sub.Overridden
	out.ReportID = sub.Report.ID
	out.ReportCreated = sub.ReportCreated
	out.Archived = sub.Report.Archived
	out.AbnormalID = sub.AbnormalID

	if err != nil {
		log.Error().Err(err).Str("code", in.Code).Msg("submit_check persisted partially")
		out.Guidance = []string{
			"The check was accepted and the item shows as COMPLETED, but saving to the store failed: " + err.Error(),
			"Retry the same submission later; it replaces today's entry instead of duplicating it.",
		}
		return nil, out, nil
	}

	out.Persisted = true
	summary := report.Summarize(sub.Report)
	out.Summary = &summary
	return nil, out, nil
}

func (s *Server) handleLightSettings(ctx context.Context, _ *sdkmcp.CallToolRequest, in LightSettingsInput) (*sdkmcp.CallToolResult, LightSettingsOutput, error) {
	current, err := s.engine.LightSettings(ctx)
	if err != nil {
		return nil, LightSettingsOutput{}, err
	}
	if in.RedThreshold == nil && in.YellowThreshold == nil && len(in.Colors) == 0 {
		return nil, LightSettingsOutput{Settings: current}, nil
	}

	next := current
	if in.RedThreshold != nil {
		next.RedThreshold = *in.RedThreshold
	}
	if in.YellowThreshold != nil {
		next.YellowThreshold = *in.YellowThreshold
	}
	if len(in.Colors) > 0 {
		next.Colors = make(map[model.LightStatus]string, len(current.Colors)+len(in.Colors))
		for k, v := range current.Colors {
			next.Colors[k] = v
		}
		for k, v := range in.Colors {
			next.Colors[model.LightStatus(k)] = v
		}
	}

	if err := s.engine.SaveLightSettings(ctx, next); err != nil {
		return nil, LightSettingsOutput{}, err
	}
	return nil, LightSettingsOutput{Settings: next, Updated: true}, nil
}

func viewEquipment(e model.Equipment) *EquipmentView {
	v := &EquipmentView{
		ID:             e.ID,
		Barcode:        e.Barcode,
		Name:           e.Name,
		SiteName:       e.SiteName,
		BuildingName:   e.BuildingName,
		CheckFrequency: e.CheckFrequency,
		CheckItems:     make([]CheckView, 0, len(e.CheckItems)),
	}
	for _, c := range e.CheckItems {
		inputType := string(c.InputType)
		if inputType == "" {
			inputType = string(model.InputNumber)
		}
		v.CheckItems = append(v.CheckItems, CheckView{
			ID:        c.ID,
			Name:      c.Name,
			InputType: inputType,
			Threshold: checks.Describe(c),
			Unit:      c.Unit,
		})
	}
	return v
}

// errorResult reports a tool-level failure the model should read and act on.
func errorResult(msg string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: msg}},
	}
}
