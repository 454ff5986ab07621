package inspection

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"inspect-mcp/internal/checks"
	"inspect-mcp/internal/model"
	"inspect-mcp/internal/report"
)

// SubmitRequest is one operator submission for one equipment item.
type SubmitRequest struct {
	Equipment     model.Equipment
	Results       map[string]any // keyed by CheckDefinition.ID
	Notes         string
	InspectorName string
}

// Submission describes what a submit did, including partial progress on failure.
type Submission struct {
	Verdict       checks.Verdict
	SubmittedAt   time.Time
	Overridden    bool
	Report        model.Report
	ReportCreated bool
	AbnormalID    string
}

// Submit evaluates a check, marks the equipment as locally complete and
// reconciles the check into today's report.
//
// A blank note on an abnormal verdict returns checks.ErrMissingAbnormalNotes
// before anything is marked or written. Store failures come back as
// *report.PersistError; the override is kept regardless.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (Submission, error) {
	now := e.clock.Now()
	item := req.Equipment

	verdict, err := checks.Aggregate(item, req.Results, req.Notes)
	sub := Submission{Verdict: verdict, SubmittedAt: now}
	if err != nil {
		e.metrics.ObserveRejected()
		log.Info().Str("equipment", item.ID).Strs("failed", verdict.FailedNames).Msg("Abnormal check rejected without notes")
		return sub, err
	}

	e.ledger.Mark(KeyFor(item), now)
	e.metrics.ObserveOverride()
	sub.Overridden = true

	inspector := req.InspectorName
	if inspector == "" {
		inspector = e.inspector
	}

	c := report.Check{
		Equipment:     item,
		InspectorName: inspector,
		Item: model.InspectionItem{
			EquipmentID:   item.ID,
			EquipmentName: item.Name,
			Barcode:       item.Barcode,
			Frequency:     item.CheckFrequency,
			Status:        verdict.Status,
			CheckPoints:   verdict.CheckPoints,
			Results:       verdict.Snapshots,
			Notes:         req.Notes,
			LastUpdated:   now,
		},
	}

	started := time.Now()
	out, err := e.reconciler.Save(ctx, c, verdict.FailedNames, now)
	e.metrics.ObserveSave(time.Since(started))

	sub.Report = out.Report
	sub.ReportCreated = out.Created
	sub.AbnormalID = out.AbnormalID

	if err != nil {
		op := "unknown"
		var pe *report.PersistError
		if errors.As(err, &pe) {
			op = pe.Op
		}
		e.metrics.ObservePersistFailure(op)
		log.Error().Err(err).Str("equipment", item.ID).Str("op", op).Msg("Check accepted locally but not persisted")
		if e.onFailure != nil {
			e.onFailure(ctx, req, err)
		}
		return sub, err
	}

	e.metrics.ObserveSubmission(string(verdict.Status))
	return sub, nil
}
