package report

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"inspect-mcp/internal/clock"
	"inspect-mcp/internal/model"
	"inspect-mcp/internal/store"
)

// Persistence operations named in PersistError.
const (
	OpFindReports     = "find_reports"
	OpCreateReport    = "create_report"
	OpUpdateReport    = "update_report"
	OpUpdateEquipment = "update_last_inspected"
	OpCreateAbnormal  = "create_abnormal"
)

// PersistError wraps a store failure with the operation that raised it.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// Locker serializes find-or-create of a building's daily report across sessions.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Outcome is what the reconciler wrote.
type Outcome struct {
	Report     model.Report
	Created    bool
	AbnormalID string
}

// Reconciler folds checks into reports and issues the store writes.
type Reconciler struct {
	reports   store.ReportStore
	equipment store.EquipmentStore
	abnormal  store.AbnormalStore
	locker    Locker
}

// NewReconciler wires the store primitives. locker may be nil.
func NewReconciler(reports store.ReportStore, equipment store.EquipmentStore, abnormal store.AbnormalStore, locker Locker) *Reconciler {
	return &Reconciler{
		reports:   reports,
		equipment: equipment,
		abnormal:  abnormal,
		locker:    locker,
	}
}

// LockKey names the lock guarding a building's report for now's day.
func LockKey(building string, now time.Time) string {
	return fmt.Sprintf("report:%s:%s", building, now.Format("2006-01-02"))
}

// Save upserts c into today's report and writes the report, the equipment's
// last-inspected timestamp and, for abnormal checks, an abnormal record.
// The equipment write runs alongside the report write; the abnormal record
// follows the report so it can point at it. The first failure is returned.
func (r *Reconciler) Save(ctx context.Context, c Check, failedNames []string, now time.Time) (Outcome, error) {
	building := c.Equipment.BuildingName

	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, LockKey(building, now))
		if err != nil {
			log.Warn().Err(err).Str("building", building).Msg("Report lock not obtained; proceeding without lock")
		} else {
			defer unlock()
		}
	}

	existing, err := r.reports.FindReports(ctx, building, clock.StartOfDay(now), time.Time{})
	if err != nil {
		return Outcome{}, &PersistError{Op: OpFindReports, Err: err}
	}

	rep, isNew := Upsert(existing, c, now)
	out := Outcome{Report: rep, Created: isNew}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if isNew {
			id, err := r.reports.CreateReport(gctx, rep)
			if err != nil {
				return &PersistError{Op: OpCreateReport, Err: err}
			}
			out.Report.ID = id
		} else if err := r.reports.UpdateReport(gctx, rep); err != nil {
			return &PersistError{Op: OpUpdateReport, Err: err}
		}

		if c.Item.Status != model.CheckAbnormal {
			return nil
		}
		rec := AbnormalRecord(c, failedNames, now)
		rec.ReportID = out.Report.ID
		id, err := r.abnormal.CreateAbnormal(gctx, rec)
		if err != nil {
			return &PersistError{Op: OpCreateAbnormal, Err: err}
		}
		out.AbnormalID = id
		return nil
	})

	g.Go(func() error {
		if err := r.equipment.UpdateLastInspected(gctx, c.Equipment.ID, now); err != nil {
			return &PersistError{Op: OpUpdateEquipment, Err: err}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return out, err
	}

	log.Info().
		Str("report", out.Report.ID).
		Str("building", building).
		Str("equipment", c.Equipment.ID).
		Bool("created", isNew).
		Bool("archived", out.Report.Archived).
		Msg("Check reconciled into report")
	return out, nil
}

// AbnormalRecord builds the follow-up record for an abnormal check.
func AbnormalRecord(c Check, failedNames []string, now time.Time) model.AbnormalRecord {
	failed := make([]string, 0, len(failedNames))
	failed = append(failed, failedNames...)
	if len(failed) == 0 {
		failed = []string{UnspecifiedItem}
	}
	return model.AbnormalRecord{
		EquipmentID:    c.Equipment.ID,
		EquipmentName:  c.Equipment.Name,
		Barcode:        c.Equipment.Barcode,
		SiteName:       c.Equipment.SiteName,
		BuildingName:   c.Equipment.BuildingName,
		FailedItems:    failed,
		AbnormalReason: c.Item.Notes,
		Status:         model.AbnormalPending,
		CreatedAt:      now,
	}
}
