package sqlite

import (
	"encoding/json"
	"fmt"
	"time"
)

// AuditMigrations returns the optimizer-run audit log schema.
func AuditMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS optimizer_runs (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			max_cpu        INTEGER NOT NULL,
			max_sms        INTEGER NOT NULL,
			num_tasks      INTEGER NOT NULL,
			selections_json TEXT NOT NULL,
			total_loss     REAL NOT NULL,
			infeasible     INTEGER NOT NULL DEFAULT 0,
			duration_us    INTEGER NOT NULL DEFAULT 0,
			ran_at         TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_optimizer_runs_ran_at ON optimizer_runs(ran_at)`,
	}
}

// OptimizerRun is one row of the audit log.
type OptimizerRun struct {
	ID          int64
	MaxCPU      int
	MaxSMS      int
	NumTasks    int
	Selections  []int
	TotalLoss   float64
	Infeasible  bool
	DurationUs  int64
	RanAt       time.Time
}

// InsertOptimizerRun records one optimizer invocation. selections is nil
// for an infeasible run.
func (db *DB) InsertOptimizerRun(maxCPU, maxSMS, numTasks int, selections []int, totalLoss float64, infeasible bool, duration time.Duration) (int64, error) {
	if selections == nil {
		selections = []int{}
	}
	blob, err := json.Marshal(selections)
	if err != nil {
		return 0, fmt.Errorf("sqlite: marshal selections: %w", err)
	}

	infeasibleInt := 0
	if infeasible {
		infeasibleInt = 1
	}

	res, err := db.db.Exec(`
		INSERT INTO optimizer_runs (max_cpu, max_sms, num_tasks, selections_json, total_loss, infeasible, duration_us)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, maxCPU, maxSMS, numTasks, string(blob), totalLoss, infeasibleInt, duration.Microseconds())
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert optimizer run: %w", err)
	}
	return res.LastInsertId()
}

// RecentOptimizerRuns returns up to limit audit rows, most recent first.
func (db *DB) RecentOptimizerRuns(limit int) ([]OptimizerRun, error) {
	rows, err := db.db.Query(`
		SELECT id, max_cpu, max_sms, num_tasks, selections_json, total_loss, infeasible, duration_us, ran_at
		FROM optimizer_runs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query optimizer runs: %w", err)
	}
	defer rows.Close()

	var out []OptimizerRun
	for rows.Next() {
		var r OptimizerRun
		var selBlob, ranAtStr string
		var infeasibleInt int
		if err := rows.Scan(&r.ID, &r.MaxCPU, &r.MaxSMS, &r.NumTasks, &selBlob, &r.TotalLoss, &infeasibleInt, &r.DurationUs, &ranAtStr); err != nil {
			return nil, fmt.Errorf("sqlite: scan optimizer run: %w", err)
		}
		if err := json.Unmarshal([]byte(selBlob), &r.Selections); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal selections: %w", err)
		}
		r.Infeasible = infeasibleInt == 1
		r.RanAt, _ = time.Parse("2006-01-02 15:04:05", ranAtStr)
		out = append(out, r)
	}
	return out, rows.Err()
}
