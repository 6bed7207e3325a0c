package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/papapumpkin/magorder/internal/enumerate"
	"github.com/papapumpkin/magorder/internal/structure"
	"github.com/papapumpkin/magorder/internal/workflow"
)

// testStore opens a temporary SQLite store and registers cleanup.
func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.magorder.db")
	s, err := Open(context.Background(), DriverSQLite, path)
	if err != nil {
		t.Fatalf("Open(%q): %v", path, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testPlan(t *testing.T, runID string, created time.Time) *workflow.Plan {
	t.Helper()
	lat := structure.NewLattice(structure.Vec3{4.17, 0, 0}, structure.Vec3{0, 4.17, 0}, structure.Vec3{0, 0, 8.34})
	fm := structure.New(lat, []structure.Site{
		{Species: "Ni", Spin: 5},
		{Species: "O", Frac: structure.Vec3{0.5, 0.5, 0.25}},
		{Species: "Ni", Frac: structure.Vec3{0, 0, 0.5}, Spin: 5},
		{Species: "O", Frac: structure.Vec3{0.5, 0.5, 0.75}},
	})
	afm, err := fm.WithSpins([]float64{5, 0, -5, 0})
	if err != nil {
		t.Fatal(err)
	}
	pool := []enumerate.Candidate{
		{Structure: fm, Strategy: enumerate.StrategyFerromagnetic},
		{Structure: afm, Strategy: enumerate.StrategyAntiferromagnetic},
	}
	prov := enumerate.Provenance{Tracked: true, Index: 1}
	g, err := workflow.BuildOrderingGraph(workflow.GraphInput{
		RunID:      runID,
		Formula:    "NiO",
		Parent:     fm,
		Pool:       pool,
		Provenance: prov,
		Calc:       workflow.DefaultCalcOptions(),
	})
	if err != nil {
		t.Fatalf("BuildOrderingGraph: %v", err)
	}
	return &workflow.Plan{
		RunID:       runID,
		Kind:        workflow.KindOrderings,
		Formula:     "NiO",
		CreatedAt:   created,
		Strategies:  []enumerate.Strategy{enumerate.StrategyFerromagnetic, enumerate.StrategyAntiferromagnetic},
		MaxCellSize: 2,
		Provenance:  prov,
		Pool:        pool,
		Graph:       g,
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database and tables", func(t *testing.T) {
		t.Parallel()
		s := testStore(t)

		var mode string
		if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("query journal_mode: %v", err)
		}
		if mode != "wal" {
			t.Errorf("journal_mode = %q, want %q", mode, "wal")
		}

		tables := map[string]bool{"runs": false, "candidates": false, "tasks": false}
		rows, err := s.db.Query("SELECT name FROM sqlite_master WHERE type='table'")
		if err != nil {
			t.Fatalf("query sqlite_master: %v", err)
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				t.Fatalf("scan table name: %v", err)
			}
			tables[name] = true
		}
		for name, found := range tables {
			if !found {
				t.Errorf("table %q not created", name)
			}
		}
	})

	t.Run("reopening is idempotent", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "reopen.db")
		for i := 0; i < 2; i++ {
			s, err := Open(context.Background(), DriverSQLite, path)
			if err != nil {
				t.Fatalf("Open #%d: %v", i+1, err)
			}
			s.Close()
		}
	})

	t.Run("unsupported driver", func(t *testing.T) {
		t.Parallel()
		_, err := Open(context.Background(), "postgres", "x")
		if !errors.Is(err, ErrUnsupportedDriver) {
			t.Errorf("err = %v, want ErrUnsupportedDriver", err)
		}
	})
}

func TestSaveAndLoadRun(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	plan := testPlan(t, "run-a", created)

	if err := s.SavePlan(ctx, plan); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}

	rec, err := s.LoadRun(ctx, "run-a")
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if rec.Formula != "NiO" || rec.Kind != workflow.KindOrderings {
		t.Errorf("formula/kind = %q/%q", rec.Formula, rec.Kind)
	}
	if rec.WorkflowName != "NiO - magnetic orderings" {
		t.Errorf("workflow name = %q", rec.WorkflowName)
	}
	if !rec.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want %v", rec.CreatedAt, created)
	}
	if rec.Provenance != plan.Provenance {
		t.Errorf("provenance = %+v, want %+v", rec.Provenance, plan.Provenance)
	}
	if len(rec.Strategies) != 2 || rec.Strategies[1] != enumerate.StrategyAntiferromagnetic {
		t.Errorf("strategies = %v", rec.Strategies)
	}
	if rec.Candidates != 2 || rec.RunSummary.Tasks != 5 {
		t.Errorf("counts = %d candidates, %d tasks; want 2, 5", rec.Candidates, rec.RunSummary.Tasks)
	}

	if len(rec.Pool) != 2 {
		t.Fatalf("pool = %d entries, want 2", len(rec.Pool))
	}
	if rec.Pool[1].Ordering != "AFM" {
		t.Errorf("pool[1] ordering = %q, want AFM", rec.Pool[1].Ordering)
	}
	var doc structure.Structure
	if err := json.Unmarshal(rec.Pool[1].Structure, &doc); err != nil {
		t.Fatalf("decode stored structure: %v", err)
	}
	if doc.Len() != 4 || doc.Site(2).Spin != -5 {
		t.Errorf("stored structure lost its spins: %v", doc.Spins())
	}

	if len(rec.Tasks) != 5 {
		t.Fatalf("tasks = %d, want 5", len(rec.Tasks))
	}
	last := rec.Tasks[len(rec.Tasks)-1]
	if last.ID != workflow.AggregateID || last.Role != workflow.RoleAggregate {
		t.Errorf("last task = %s (%s), want aggregate", last.ID, last.Role)
	}
	if strings.Join(last.Predecessors, " ") != "ordering-0-static ordering-1-static" {
		t.Errorf("aggregate predecessors = %v", last.Predecessors)
	}
	if !strings.Contains(string(last.Payload), `"wf_uuid":"run-a"`) {
		t.Errorf("aggregate payload missing run id: %s", last.Payload)
	}
	if rec.Tasks[0].Predecessors != nil {
		t.Errorf("relax task predecessors = %v, want none", rec.Tasks[0].Predecessors)
	}
}

func TestSavePlan_Duplicate(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()
	plan := testPlan(t, "run-dup", time.Now())

	if err := s.SavePlan(ctx, plan); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}
	if err := s.SavePlan(ctx, plan); !errors.Is(err, ErrRunExists) {
		t.Errorf("second SavePlan err = %v, want ErrRunExists", err)
	}
}

func TestLoadRun_NotFound(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	if _, err := s.LoadRun(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "new", "mid"} {
		offset := map[string]time.Duration{"old": 0, "mid": time.Hour, "new": 2 * time.Hour}[id]
		if err := s.SavePlan(ctx, testPlan(t, id, base.Add(offset))); err != nil {
			t.Fatalf("SavePlan #%d: %v", i, err)
		}
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	var got []string
	for _, r := range runs {
		got = append(got, r.ID)
	}
	if strings.Join(got, ",") != "new,mid,old" {
		t.Errorf("order = %v, want [new mid old]", got)
	}
}

func TestNormalizeMySQLDSN(t *testing.T) {
	t.Parallel()
	got, err := normalizeMySQLDSN("user:secret@tcp(127.0.0.1:3306)/magorder")
	if err != nil {
		t.Fatalf("normalizeMySQLDSN: %v", err)
	}
	for _, want := range []string{"parseTime=true", "charset=utf8mb4", "/magorder"} {
		if !strings.Contains(got, want) {
			t.Errorf("dsn %q missing %q", got, want)
		}
	}

	if _, err := normalizeMySQLDSN("no-slash-here"); err == nil {
		t.Error("malformed dsn: want error")
	}
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()
	stmts := splitStatements(schemaSQL)
	if len(stmts) != 3 {
		t.Fatalf("got %d statements, want 3", len(stmts))
	}
	for _, stmt := range stmts {
		if !strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS") {
			t.Errorf("unexpected statement: %q", stmt)
		}
	}
	if got := splitStatements("-- only a comment\n;\n  ;"); len(got) != 0 {
		t.Errorf("comment-only script produced %v", got)
	}
}
