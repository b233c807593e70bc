package sqlite

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndRecentOptimizerRuns(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.InsertOptimizerRun(8, 4, 2, []int{0, 1}, 1.25, false, 150*time.Microsecond); err != nil {
		t.Fatalf("InsertOptimizerRun() error: %v", err)
	}
	if _, err := db.InsertOptimizerRun(8, 4, 2, nil, 0, true, 50*time.Microsecond); err != nil {
		t.Fatalf("InsertOptimizerRun() error: %v", err)
	}

	runs, err := db.RecentOptimizerRuns(10)
	if err != nil {
		t.Fatalf("RecentOptimizerRuns() error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}

	// Most recent first: the infeasible run was inserted last.
	if !runs[0].Infeasible {
		t.Error("runs[0].Infeasible = false, want true (most recent insert)")
	}
	if len(runs[0].Selections) != 0 {
		t.Errorf("runs[0].Selections = %v, want empty", runs[0].Selections)
	}

	if runs[1].Infeasible {
		t.Error("runs[1].Infeasible = true, want false")
	}
	if len(runs[1].Selections) != 2 || runs[1].Selections[0] != 0 || runs[1].Selections[1] != 1 {
		t.Errorf("runs[1].Selections = %v, want [0 1]", runs[1].Selections)
	}
	if runs[1].TotalLoss != 1.25 {
		t.Errorf("runs[1].TotalLoss = %v, want 1.25", runs[1].TotalLoss)
	}
}

func TestRecentOptimizerRuns_LimitIsRespected(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 5; i++ {
		if _, err := db.InsertOptimizerRun(8, 4, 1, []int{0}, float64(i), false, time.Microsecond); err != nil {
			t.Fatalf("InsertOptimizerRun() error: %v", err)
		}
	}

	runs, err := db.RecentOptimizerRuns(2)
	if err != nil {
		t.Fatalf("RecentOptimizerRuns() error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	// Most recent first: last inserted had total_loss=4.
	if runs[0].TotalLoss != 4 {
		t.Errorf("runs[0].TotalLoss = %v, want 4", runs[0].TotalLoss)
	}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.Migrate(AuditMigrations()); err != nil {
		t.Fatalf("second Migrate() call should be a no-op, got error: %v", err)
	}
}
