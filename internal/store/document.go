package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"inspect-mcp/internal/model"
)

// Document is the loosely-typed record exchanged with the backing store.
// Timestamps are epoch milliseconds.
type Document = map[string]interface{}

var validate = validator.New()

// Validate checks the required shape of a decoded record.
func Validate(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid document shape: %w", err)
	}
	return nil
}

// DecodeEquipment maps an equipment document onto model.Equipment.
func DecodeEquipment(doc Document) (model.Equipment, error) {
	e := model.Equipment{
		ID:                asString(doc["id"]),
		Barcode:           asString(doc["barcode"]),
		Name:              asString(doc["name"]),
		SiteName:          asString(doc["siteName"]),
		BuildingName:      asString(doc["buildingName"]),
		CheckFrequency:    asString(doc["checkFrequency"]),
		LastInspectedDate: asTime(doc["lastInspectedDate"]),
		CreatedAt:         asTime(doc["createdAt"]),
	}

	if items, ok := doc["checkItems"].([]interface{}); ok {
		for _, raw := range items {
			m, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			e.CheckItems = append(e.CheckItems, decodeCheck(m))
		}
	}

	if err := Validate(e); err != nil {
		return model.Equipment{}, err
	}

	for _, c := range e.CheckItems {
		if c.ThresholdMode == model.ThresholdRange && c.Val1 != nil && c.Val2 != nil && *c.Val1 > *c.Val2 {
			log.Warn().Str("equipment", e.ID).Str("check", c.ID).Float64("val1", *c.Val1).Float64("val2", *c.Val2).
				Msg("Range threshold is inverted; every value will fail")
		}
	}
	return e, nil
}

func decodeCheck(m map[string]interface{}) model.CheckDefinition {
	return model.CheckDefinition{
		ID:            asString(m["id"]),
		Name:          asString(m["name"]),
		InputType:     model.InputType(asString(m["inputType"])),
		Unit:          asString(m["unit"]),
		ThresholdMode: model.ThresholdMode(asString(m["thresholdMode"])),
		Val1:          asFloat(m["val1"]),
		Val2:          asFloat(m["val2"]),
	}
}

// EncodeEquipment is the inverse of DecodeEquipment.
func EncodeEquipment(e model.Equipment) Document {
	checks := make([]interface{}, 0, len(e.CheckItems))
	for _, c := range e.CheckItems {
		m := Document{
			"id":        c.ID,
			"name":      c.Name,
			"inputType": string(c.InputType),
		}
		putString(m, "unit", c.Unit)
		putString(m, "thresholdMode", string(c.ThresholdMode))
		if c.Val1 != nil {
			m["val1"] = *c.Val1
		}
		if c.Val2 != nil {
			m["val2"] = *c.Val2
		}
		checks = append(checks, m)
	}

	doc := Document{
		"id":           e.ID,
		"barcode":      e.Barcode,
		"name":         e.Name,
		"siteName":     e.SiteName,
		"buildingName": e.BuildingName,
		"checkItems":   checks,
	}
	putString(doc, "checkFrequency", e.CheckFrequency)
	putTime(doc, "lastInspectedDate", e.LastInspectedDate)
	putTime(doc, "createdAt", e.CreatedAt)
	return doc
}

// DecodeReport maps a report document onto model.Report.
func DecodeReport(doc Document) (model.Report, error) {
	r := model.Report{
		ID:            asString(doc["id"]),
		BuildingName:  asString(doc["buildingName"]),
		InspectorName: asString(doc["inspectorName"]),
		OverallStatus: model.ReportStatus(asString(doc["overallStatus"])),
		Archived:      asBool(doc["archived"]),
		Items:         []model.InspectionItem{},
	}
	if d := asTime(doc["date"]); d != nil {
		r.Date = *d
	}
	if r.OverallStatus == "" {
		r.OverallStatus = model.ReportInProgress
	}

	if items, ok := doc["items"].([]interface{}); ok {
		for _, raw := range items {
			m, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			r.Items = append(r.Items, decodeItem(m))
		}
	}

	if err := Validate(r); err != nil {
		return model.Report{}, err
	}
	return r, nil
}

func decodeItem(m map[string]interface{}) model.InspectionItem {
	it := model.InspectionItem{
		EquipmentID:   asString(m["equipmentId"]),
		EquipmentName: asString(m["equipmentName"]),
		Barcode:       asString(m["barcode"]),
		Frequency:     asString(m["frequency"]),
		Status:        model.CheckStatus(asString(m["status"])),
		Notes:         asString(m["notes"]),
	}
	if cp, ok := m["checkPoints"].(map[string]interface{}); ok {
		it.CheckPoints = make(map[string]interface{}, len(cp))
		for k, v := range cp {
			it.CheckPoints[k] = v
		}
	}
	if ts := asTime(m["lastUpdated"]); ts != nil {
		it.LastUpdated = *ts
	}
	if results, ok := m["results"].([]interface{}); ok {
		for _, raw := range results {
			rm, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			it.Results = append(it.Results, model.ResultSnapshot{
				CheckID:   asString(rm["checkId"]),
				Name:      asString(rm["name"]),
				Value:     rm["value"],
				Threshold: asString(rm["threshold"]),
				Unit:      asString(rm["unit"]),
				Passed:    asBool(rm["passed"]),
			})
		}
	}
	return it
}

// EncodeReport is the inverse of DecodeReport.
func EncodeReport(r model.Report) Document {
	items := make([]interface{}, 0, len(r.Items))
	for _, it := range r.Items {
		results := make([]interface{}, 0, len(it.Results))
		for _, s := range it.Results {
			sm := Document{
				"checkId": s.CheckID,
				"name":    s.Name,
				"value":   s.Value,
				"passed":  s.Passed,
			}
			putString(sm, "threshold", s.Threshold)
			putString(sm, "unit", s.Unit)
			results = append(results, sm)
		}
		cp := make(map[string]interface{}, len(it.CheckPoints))
		for k, v := range it.CheckPoints {
			cp[k] = v
		}
		im := Document{
			"equipmentId":   it.EquipmentID,
			"equipmentName": it.EquipmentName,
			"barcode":       it.Barcode,
			"status":        string(it.Status),
			"checkPoints":   cp,
			"results":       results,
			"lastUpdated":   it.LastUpdated.UnixMilli(),
		}
		putString(im, "frequency", it.Frequency)
		putString(im, "notes", it.Notes)
		items = append(items, im)
	}

	doc := Document{
		"buildingName":  r.BuildingName,
		"date":          r.Date.UnixMilli(),
		"items":         items,
		"overallStatus": string(r.OverallStatus),
		"archived":      r.Archived,
	}
	putString(doc, "id", r.ID)
	putString(doc, "inspectorName", r.InspectorName)
	return doc
}

// EncodeAbnormal renders an abnormal record document.
func EncodeAbnormal(rec model.AbnormalRecord) Document {
	failed := make([]interface{}, 0, len(rec.FailedItems))
	for _, n := range rec.FailedItems {
		failed = append(failed, n)
	}
	doc := Document{
		"equipmentId":    rec.EquipmentID,
		"equipmentName":  rec.EquipmentName,
		"barcode":        rec.Barcode,
		"siteName":       rec.SiteName,
		"buildingName":   rec.BuildingName,
		"failedItems":    failed,
		"abnormalReason": rec.AbnormalReason,
		"status":         rec.Status,
		"createdAt":      rec.CreatedAt.UnixMilli(),
	}
	putString(doc, "id", rec.ID)
	putString(doc, "reportId", rec.ReportID)
	return doc
}

// DecodeAbnormal maps an abnormal record document onto model.AbnormalRecord.
func DecodeAbnormal(doc Document) (model.AbnormalRecord, error) {
	rec := model.AbnormalRecord{
		ID:             asString(doc["id"]),
		EquipmentID:    asString(doc["equipmentId"]),
		EquipmentName:  asString(doc["equipmentName"]),
		Barcode:        asString(doc["barcode"]),
		SiteName:       asString(doc["siteName"]),
		BuildingName:   asString(doc["buildingName"]),
		AbnormalReason: asString(doc["abnormalReason"]),
		Status:         asString(doc["status"]),
		ReportID:       asString(doc["reportId"]),
	}
	if ts := asTime(doc["createdAt"]); ts != nil {
		rec.CreatedAt = *ts
	}
	if failed, ok := doc["failedItems"].([]interface{}); ok {
		for _, f := range failed {
			rec.FailedItems = append(rec.FailedItems, asString(f))
		}
	}
	if err := Validate(rec); err != nil {
		return model.AbnormalRecord{}, err
	}
	return rec, nil
}

// DecodeLightSettings reads a settings document, filling gaps from fallback.
func DecodeLightSettings(doc Document, fallback model.LightSettings) model.LightSettings {
	s := fallback
	if v := asFloat(doc["redThreshold"]); v != nil {
		s.RedThreshold = int(*v)
	}
	if v := asFloat(doc["yellowThreshold"]); v != nil {
		s.YellowThreshold = int(*v)
	}
	if colors, ok := doc["colors"].(map[string]interface{}); ok {
		merged := make(map[model.LightStatus]string, len(s.Colors)+len(colors))
		for k, v := range s.Colors {
			merged[k] = v
		}
		for k, v := range colors {
			if c := asString(v); c != "" {
				merged[model.LightStatus(k)] = c
			}
		}
		s.Colors = merged
	}
	if s.RedThreshold >= s.YellowThreshold {
		log.Warn().Int("red", s.RedThreshold).Int("yellow", s.YellowThreshold).
			Msg("Red threshold is not below yellow; CAN_INSPECT will never show")
	}
	return s
}

// EncodeLightSettings renders a settings document.
func EncodeLightSettings(s model.LightSettings) Document {
	colors := make(map[string]interface{}, len(s.Colors))
	for k, v := range s.Colors {
		colors[string(k)] = v
	}
	return Document{
		"redThreshold":    s.RedThreshold,
		"yellowThreshold": s.YellowThreshold,
		"colors":          colors,
	}
}

func asString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asFloat(v interface{}) *float64 {
	switch val := v.(type) {
	case float64:
		return &val
	case int:
		f := float64(val)
		return &f
	case int64:
		f := float64(val)
		return &f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func asBool(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, _ := strconv.ParseBool(val)
		return b
	default:
		return false
	}
}

// asTime accepts epoch milliseconds (number or numeric string) or RFC3339.
func asTime(v interface{}) *time.Time {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if val == "" {
			return nil
		}
		if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
			return &t
		}
	}
	ms := asFloat(v)
	if ms == nil || *ms <= 0 {
		return nil
	}
	t := time.UnixMilli(int64(*ms))
	return &t
}

func putString(doc Document, key, v string) {
	if v != "" {
		doc[key] = v
	}
}

func putTime(doc Document, key string, t *time.Time) {
	if t != nil && !t.IsZero() {
		doc[key] = t.UnixMilli()
	}
}
