package redisstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"inspect-mcp/internal/model"
	"inspect-mcp/internal/store"
)

// These tests need a live server: REDIS_ADDRESS=localhost:6379 go test ./...
func openTestStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_ADDRESS not set")
	}
	prefix := "inspect-test:" + uuid.NewString() + ":"
	s, err := Connect(context.Background(), Options{Address: addr, Prefix: prefix}, model.DefaultLightSettings())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			s.rdb.Del(ctx, iter.Val())
		}
		s.Close()
	})
	return s
}

func TestRedisStore_EquipmentAndBarcodeIndex(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	eq := model.Equipment{ID: "eq-1", Barcode: "OLD", Name: "Pump", BuildingName: "A"}
	if err := s.SaveEquipment(ctx, eq); err != nil {
		t.Fatal(err)
	}
	eq.Barcode = "NEW"
	if err := s.SaveEquipment(ctx, eq); err != nil {
		t.Fatal(err)
	}

	if _, err := s.FindEquipmentByBarcode(ctx, "OLD"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected stale barcode to be dropped, got %v", err)
	}
	got, err := s.FindEquipmentByBarcode(ctx, "NEW")
	if err != nil || got.ID != "eq-1" {
		t.Fatalf("expected eq-1 by barcode, got %+v, %v", got, err)
	}

	at := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	if err := s.UpdateLastInspected(ctx, "eq-1", at); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetEquipment(ctx, "eq-1")
	if got.LastInspectedDate == nil || !got.LastInspectedDate.Equal(at) {
		t.Errorf("expected %v, got %v", at, got.LastInspectedDate)
	}

	if err := s.UpdateLastInspected(ctx, "ghost", at); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStore_ReportsByBuildingAndDate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	day := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	oldID, _ := s.CreateReport(ctx, model.Report{BuildingName: "A", Date: day.Add(-time.Hour)})
	todayID, err := s.CreateReport(ctx, model.Report{BuildingName: "A", Date: day.Add(time.Hour)})
	if err != nil {
		t.Fatal(err)
	}

	reports, err := s.FindReports(ctx, "A", day, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 || reports[0].ID != todayID {
		t.Fatalf("expected only today's report, got %+v (old %s)", reports, oldID)
	}

	r := reports[0]
	r.Archived = true
	if err := s.UpdateReport(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateReport(ctx, model.Report{ID: "missing", BuildingName: "A"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLocker_ExcludesSecondHolder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	l := NewLocker(s.Client(), s.prefix, 5*time.Second, 200*time.Millisecond)

	unlock, err := l.Lock(ctx, "report:A:2026-10-16")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Lock(ctx, "report:A:2026-10-16"); !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked while held, got %v", err)
	}
	unlock()

	unlock2, err := l.Lock(ctx, "report:A:2026-10-16")
	if err != nil {
		t.Fatalf("expected lock after release, got %v", err)
	}
	unlock2()
}
