package inspection

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"inspect-mcp/internal/checks"
	"inspect-mcp/internal/clock"
	"inspect-mcp/internal/metrics"
	"inspect-mcp/internal/model"
	"inspect-mcp/internal/report"
	"inspect-mcp/internal/store"
	"inspect-mcp/internal/store/filestore"
)

var today = time.Date(2026, 10, 16, 10, 30, 0, 0, time.Local)

// countingStore wraps a filestore and counts every write.
type countingStore struct {
	*filestore.Store
	writes    atomic.Int32
	failWrite error
}

func (c *countingStore) CreateReport(ctx context.Context, r model.Report) (string, error) {
	c.writes.Add(1)
	if c.failWrite != nil {
		return "", c.failWrite
	}
	return c.Store.CreateReport(ctx, r)
}

func (c *countingStore) UpdateReport(ctx context.Context, r model.Report) error {
	c.writes.Add(1)
	return c.Store.UpdateReport(ctx, r)
}

func (c *countingStore) UpdateLastInspected(ctx context.Context, id string, at time.Time) error {
	c.writes.Add(1)
	return c.Store.UpdateLastInspected(ctx, id, at)
}

func (c *countingStore) CreateAbnormal(ctx context.Context, rec model.AbnormalRecord) (string, error) {
	c.writes.Add(1)
	return c.Store.CreateAbnormal(ctx, rec)
}

func hydrant() model.Equipment {
	return model.Equipment{
		ID:             "eq-1",
		Barcode:        "HYD-001",
		Name:           "Hydrant 1",
		SiteName:       "North Campus",
		BuildingName:   "Block A",
		CheckFrequency: "monthly",
		CheckItems: []model.CheckDefinition{
			{ID: "valve", Name: "Valve operable", InputType: model.InputBoolean},
		},
	}
}

func newEngine(t *testing.T, items ...model.Equipment) (*Engine, *countingStore, *clock.Manual) {
	t.Helper()
	fs := filestore.New("", model.DefaultLightSettings())
	for _, item := range items {
		if err := fs.SaveEquipment(context.Background(), item); err != nil {
			t.Fatalf("seed %s: %v", item.ID, err)
		}
	}
	cs := &countingStore{Store: fs}
	clk := clock.NewManual(today)
	return New(cs, WithClock(clk), WithInspector("lee")), cs, clk
}

func TestSubmit_NeverInspectedNormalCheck(t *testing.T) {
	ctx := context.Background()
	e, cs, _ := newEngine(t, hydrant())

	sub, err := e.Submit(ctx, SubmitRequest{
		Equipment: hydrant(),
		Results:   map[string]any{"valve": true},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if sub.Verdict.Status != model.CheckNormal {
		t.Errorf("expected Normal, got %s", sub.Verdict.Status)
	}
	if !sub.ReportCreated || sub.Report.ID == "" {
		t.Errorf("expected a created report with an id, got %+v", sub.Report)
	}
	if !sub.Report.Archived {
		t.Error("expected report to be archived")
	}
	if sub.Report.InspectorName != "lee" {
		t.Errorf("expected default inspector, got %q", sub.Report.InspectorName)
	}
	if sub.AbnormalID != "" {
		t.Errorf("expected no abnormal record, got %q", sub.AbnormalID)
	}

	abnormal, _ := cs.ListAbnormal(ctx)
	if len(abnormal) != 0 {
		t.Errorf("expected no abnormal records, got %d", len(abnormal))
	}

	stored, err := cs.GetEquipment(ctx, "eq-1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.LastInspectedDate == nil || stored.LastInspectedDate.UnixMilli() != today.UnixMilli() {
		t.Errorf("expected lastInspectedDate advanced to %v, got %v", today, stored.LastInspectedDate)
	}

	if st := e.Status(stored, model.DefaultLightSettings()); st.Status != model.LightCompleted {
		t.Errorf("expected COMPLETED after submit, got %s", st.Status)
	}
}

func TestSubmit_AbnormalWithoutNotesDoesNothing(t *testing.T) {
	e, cs, _ := newEngine(t, hydrant())

	_, err := e.Submit(context.Background(), SubmitRequest{
		Equipment: hydrant(),
		Results:   map[string]any{"valve": false},
		Notes:     "   ",
	})
	if !errors.Is(err, checks.ErrMissingAbnormalNotes) {
		t.Fatalf("expected ErrMissingAbnormalNotes, got %v", err)
	}
	if n := cs.writes.Load(); n != 0 {
		t.Errorf("expected no store writes, got %d", n)
	}
	if e.Ledger().Len() != 0 {
		t.Error("expected no override to be marked")
	}
}

func TestSubmit_AbnormalCreatesRecord(t *testing.T) {
	ctx := context.Background()
	e, cs, _ := newEngine(t, hydrant())

	sub, err := e.Submit(ctx, SubmitRequest{
		Equipment:     hydrant(),
		Results:       map[string]any{"valve": false},
		Notes:         "valve seized",
		InspectorName: "park",
	})
	if err != nil {
		t.Fatal(err)
	}
	if sub.Report.Archived {
		t.Error("abnormal submission should not archive the report")
	}
	if sub.AbnormalID == "" {
		t.Fatal("expected an abnormal record id")
	}

	records, _ := cs.ListAbnormal(ctx)
	if len(records) != 1 {
		t.Fatalf("expected 1 abnormal record, got %d", len(records))
	}
	if got := records[0].FailedItems; len(got) != 1 || got[0] != "Valve operable" {
		t.Errorf("unexpected failed items %v", got)
	}
	if records[0].AbnormalReason != "valve seized" {
		t.Errorf("unexpected reason %q", records[0].AbnormalReason)
	}
}

func TestSubmit_PersistFailureKeepsOverride(t *testing.T) {
	e, cs, _ := newEngine(t, hydrant())
	cs.failWrite = errors.New("store offline")

	var hooked error
	e.onFailure = func(ctx context.Context, req SubmitRequest, err error) { hooked = err }
	reg := prometheus.NewRegistry()
	e.metrics = metrics.New(reg)

	_, err := e.Submit(context.Background(), SubmitRequest{
		Equipment: hydrant(),
		Results:   map[string]any{"valve": true},
	})

	var pe *report.PersistError
	if !errors.As(err, &pe) || pe.Op != report.OpCreateReport {
		t.Fatalf("expected create_report PersistError, got %v", err)
	}
	if !errors.Is(hooked, cs.failWrite) {
		t.Errorf("expected failure hook to see the store error, got %v", hooked)
	}
	if !e.Ledger().Active(KeyFor(hydrant()), e.Now()) {
		t.Error("expected override to survive a failed save")
	}

	if st := e.Status(hydrant(), model.DefaultLightSettings()); st.Status != model.LightCompleted || !st.Overridden {
		t.Errorf("expected overridden COMPLETED, got %+v", st)
	}
}

func TestStatus_OverrideExpires(t *testing.T) {
	e, _, clk := newEngine(t)
	settings := model.DefaultLightSettings()

	// Inspected 40 days ago on a monthly cycle: really PENDING.
	item := hydrant()
	item.LastInspectedDate = model.Time(today.AddDate(0, 0, -40))

	e.Ledger().Mark(KeyFor(item), today)

	clk.Set(today.Add(23*time.Hour + 59*time.Minute))
	if st := e.Status(item, settings); st.Status != model.LightCompleted || !st.Overridden {
		t.Errorf("at T+23h59m expected override, got %+v", st)
	}

	clk.Set(today.Add(24*time.Hour + time.Minute))
	if st := e.Status(item, settings); st.Status != model.LightPending || st.Overridden {
		t.Errorf("at T+24h01m expected real PENDING, got %+v", st)
	}
}

func TestStatus_OverrideMatchesEitherHandle(t *testing.T) {
	e, _, _ := newEngine(t)
	item := hydrant()
	item.LastInspectedDate = model.Time(today.AddDate(0, 0, -40))

	e.Ledger().Mark(KeyFor(model.Equipment{Barcode: item.Barcode}), today)

	if st := e.Status(item, model.DefaultLightSettings()); !st.Overridden {
		t.Error("expected barcode-only mark to override the item")
	}
}

func TestBoard_SortsByUrgency(t *testing.T) {
	due := hydrant()
	due.ID, due.Barcode, due.Name = "eq-due", "B-DUE", "Due"
	due.LastInspectedDate = model.Time(today.AddDate(0, 0, -31))

	fresh := hydrant()
	fresh.ID, fresh.Barcode, fresh.Name = "eq-fresh", "B-FRESH", "Fresh"
	fresh.LastInspectedDate = model.Time(today.AddDate(0, 0, -3))

	soon := hydrant()
	soon.ID, soon.Barcode, soon.Name = "eq-soon", "B-SOON", "Soon"
	soon.LastInspectedDate = model.Time(today.AddDate(0, 0, -27))

	done := hydrant()
	done.ID, done.Barcode, done.Name = "eq-done", "B-DONE", "Done"
	done.LastInspectedDate = model.Time(today.Add(-time.Hour))

	other := hydrant()
	other.ID, other.Barcode, other.BuildingName = "eq-b", "B-B", "Block B"

	e, _, _ := newEngine(t, fresh, done, soon, due, other)

	b, err := e.Board(context.Background(), store.Filter{BuildingName: "Block A"})
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Items) != 4 {
		t.Fatalf("expected 4 items in Block A, got %d", len(b.Items))
	}

	want := []string{"eq-due", "eq-soon", "eq-fresh", "eq-done"}
	for i, id := range want {
		if b.Items[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, b.Items[i].ID)
		}
	}
	if b.Counts[model.LightPending] != 1 || b.Counts[model.LightCompleted] != 1 {
		t.Errorf("unexpected counts %v", b.Counts)
	}
	if b.Items[0].Color != model.DefaultColors()[model.LightPending] {
		t.Errorf("expected pending color, got %q", b.Items[0].Color)
	}
}

func TestReconcile_ReleasesOnlyExpiredOverrides(t *testing.T) {
	e, _, _ := newEngine(t)
	item := hydrant()
	e.Ledger().Mark(KeyFor(item), today)

	if n := e.Reconcile(today.Add(23*time.Hour + 59*time.Minute)); n != 0 {
		t.Errorf("expected an unexpired override to stay, released %d", n)
	}
	if !e.Ledger().Active(KeyFor(item), today.Add(time.Hour)) {
		t.Error("expected override to remain active")
	}

	if n := e.Reconcile(today.Add(24*time.Hour + time.Minute)); n != 2 {
		t.Errorf("expected both handles released, got %d", n)
	}
	if e.Ledger().Len() != 0 {
		t.Error("expected ledger to be empty after reconcile")
	}
}

func TestBoard_OverrideHoldsAcrossMidnightAfterSave(t *testing.T) {
	e, _, clk := newEngine(t, hydrant())
	ctx := context.Background()

	sub, err := e.Submit(ctx, SubmitRequest{
		Equipment: hydrant(),
		Results:   map[string]any{"valve": true},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if sub.Report.ID == "" {
		t.Fatal("expected the report to be saved")
	}

	itemAt := func(at time.Time) ItemStatus {
		t.Helper()
		clk.Set(at)
		b, err := e.Board(ctx, store.Filter{})
		if err != nil {
			t.Fatal(err)
		}
		if len(b.Items) != 1 {
			t.Fatalf("expected 1 item, got %d", len(b.Items))
		}
		return b.Items[0]
	}

	if st := itemAt(today); st.Status != model.LightCompleted || !st.Overridden {
		t.Errorf("same day: expected overridden COMPLETED, got %+v", st)
	}

	// Next calendar day, still inside the window: the stored date alone would read UNNECESSARY.
	st := itemAt(today.Add(23*time.Hour + 59*time.Minute))
	if st.Status != model.LightCompleted || !st.Overridden {
		t.Errorf("at T+23h59m expected overridden COMPLETED, got %+v", st)
	}
	if st.Color != model.DefaultColors()[model.LightCompleted] {
		t.Errorf("expected completed color, got %q", st.Color)
	}

	if st := itemAt(today.Add(24*time.Hour + time.Minute)); st.Status != model.LightUnnecessary || st.Overridden {
		t.Errorf("at T+24h01m expected real UNNECESSARY, got %+v", st)
	}
	if e.Ledger().Len() != 0 {
		t.Error("expected the expired override to be released by the board")
	}
}

func TestFindEquipment(t *testing.T) {
	e, _, _ := newEngine(t, hydrant())
	ctx := context.Background()

	tests := []struct {
		code  string
		found bool
	}{
		{"HYD-001", true},
		{" eq-1 ", true},
		{"nope", false},
		{"", false},
	}
	for _, tt := range tests {
		item, found, err := e.FindEquipment(ctx, tt.code)
		if err != nil {
			t.Errorf("FindEquipment(%q) error: %v", tt.code, err)
			continue
		}
		if found != tt.found {
			t.Errorf("FindEquipment(%q) found = %v, want %v", tt.code, found, tt.found)
		}
		if found && item.ID != "eq-1" {
			t.Errorf("FindEquipment(%q) returned %s", tt.code, item.ID)
		}
	}
}
