// Package store persists built workflow plans so an execution runtime, or
// a later `runs` invocation, can pick them up. SQLite is the default
// backend; MySQL serves a results database shared between machines.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/papapumpkin/magorder/internal/enumerate"
	"github.com/papapumpkin/magorder/internal/workflow"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

var (
	// ErrRunNotFound is returned by LoadRun for an unknown run ID.
	ErrRunNotFound = errors.New("run not found")
	// ErrRunExists is returned by SavePlan when the run ID is already stored.
	ErrRunExists = errors.New("run already stored")
	// ErrUnsupportedDriver is returned by Open for drivers other than
	// sqlite and mysql.
	ErrUnsupportedDriver = errors.New("unsupported store driver")
)

// Store reads and writes plans.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database, prepares the connection for the driver
// and creates the schema if needed.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		db, err = openSQLite(ctx, dsn)
	case DriverMySQL:
		db, err = openMySQL(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	if err != nil {
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, driver: driver}, nil
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open(DriverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	// SQLite supports a single writer; one connection avoids SQLITE_BUSY
	// between pooled connections that each need their own PRAGMA setup.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set busy timeout: %w", err)
	}
	return db, nil
}

func openMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	normalized, err := normalizeMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(DriverMySQL, normalized)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: database not reachable: %w", err)
	}
	return db, nil
}

// normalizeMySQLDSN parses dsn and turns on the options the store relies on.
func normalizeMySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("store: parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	if !strings.Contains(dsn, "charset=") {
		if cfg.Params == nil {
			cfg.Params = make(map[string]string)
		}
		cfg.Params["charset"] = "utf8mb4"
	}
	return cfg.FormatDSN(), nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the driver the store was opened with.
func (s *Store) Driver() string { return s.driver }

// RunSummary is one row of ListRuns.
type RunSummary struct {
	ID           string
	Kind         workflow.Kind
	Formula      string
	WorkflowName string
	Strategies   []enumerate.Strategy
	MaxCellSize  int
	Duplicates   int
	Provenance   enumerate.Provenance
	CreatedAt    time.Time
	Candidates   int
	Tasks        int
}

// CandidateRecord is a stored pool entry.
type CandidateRecord struct {
	Index     int
	Label     int
	Strategy  enumerate.Strategy
	Rank      int
	Ordering  string
	Structure json.RawMessage
}

// TaskRecord is a stored task node.
type TaskRecord struct {
	ID           string
	Role         workflow.Role
	Name         string
	Predecessors []string
	Payload      json.RawMessage
}

// RunRecord is a fully loaded run.
type RunRecord struct {
	RunSummary
	Pool  []CandidateRecord
	Tasks []TaskRecord
}

// SavePlan writes the run, its candidates and its tasks in one transaction.
func (s *Store) SavePlan(ctx context.Context, p *workflow.Plan) error {
	if p == nil || p.Graph == nil {
		return errors.New("store: plan has no graph")
	}
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE id = ?", p.RunID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("store: check run %s: %w", p.RunID, err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", ErrRunExists, p.RunID)
	}

	strategies := make([]string, len(p.Strategies))
	for i, st := range p.Strategies {
		strategies[i] = string(st)
	}
	tracked := 0
	if p.Provenance.Tracked {
		tracked = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertRun = `
		INSERT INTO runs (id, kind, formula, workflow_name, strategies, max_cell_size,
			duplicates_removed, provenance_tracked, provenance_index, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertRun,
		p.RunID, string(p.Kind), p.Formula, p.Graph.Name, strings.Join(strategies, ","),
		p.MaxCellSize, p.DuplicatesRemoved, tracked, p.Provenance.Index,
		p.CreatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("store: insert run %s: %w", p.RunID, err)
	}

	if err := saveCandidates(ctx, tx, p); err != nil {
		return err
	}
	if err := saveTasks(ctx, tx, p); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit run %s: %w", p.RunID, err)
	}
	return nil
}

func saveCandidates(ctx context.Context, tx *sql.Tx, p *workflow.Plan) error {
	agg, ok := p.Graph.Node(workflow.AggregateID)
	if !ok {
		return nil
	}
	payload, ok := agg.Payload.(*workflow.AggregatePayload)
	if !ok {
		return nil
	}
	const q = `
		INSERT INTO candidates (run_id, pool_index, label, strategy, rank_in_call, ordering_type, structure)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, e := range payload.Pool {
		doc, err := json.Marshal(e.Structure)
		if err != nil {
			return fmt.Errorf("store: encode candidate %d: %w", e.Index, err)
		}
		if _, err := tx.ExecContext(ctx, q, p.RunID, e.Index, e.Label, string(e.Strategy), e.Rank, string(e.Ordering), string(doc)); err != nil {
			return fmt.Errorf("store: insert candidate %d: %w", e.Index, err)
		}
	}
	return nil
}

func saveTasks(ctx context.Context, tx *sql.Tx, p *workflow.Plan) error {
	const q = `
		INSERT INTO tasks (run_id, task_id, seq, role, name, predecessors, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	for i, n := range p.Graph.Nodes() {
		payload, err := json.Marshal(n.Payload)
		if err != nil {
			return fmt.Errorf("store: encode task %s: %w", n.ID, err)
		}
		preds := strings.Join(p.Graph.Predecessors(n.ID), ",")
		if _, err := tx.ExecContext(ctx, q, p.RunID, n.ID, i, string(n.Role), n.Name, preds, string(payload)); err != nil {
			return fmt.Errorf("store: insert task %s: %w", n.ID, err)
		}
	}
	return nil
}

const selectSummary = `
	SELECT r.id, r.kind, r.formula, r.workflow_name, r.strategies, r.max_cell_size,
		r.duplicates_removed, r.provenance_tracked, r.provenance_index, r.created_at,
		(SELECT COUNT(*) FROM candidates c WHERE c.run_id = r.id),
		(SELECT COUNT(*) FROM tasks t WHERE t.run_id = r.id)
	FROM runs r`

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (RunSummary, error) {
	var (
		rs         RunSummary
		kind       string
		strategies string
		tracked    int
		created    string
	)
	err := row.Scan(&rs.ID, &kind, &rs.Formula, &rs.WorkflowName, &strategies, &rs.MaxCellSize,
		&rs.Duplicates, &tracked, &rs.Provenance.Index, &created, &rs.Candidates, &rs.Tasks)
	if err != nil {
		return RunSummary{}, err
	}
	rs.Kind = workflow.Kind(kind)
	rs.Provenance.Tracked = tracked != 0
	if strategies != "" {
		for _, st := range strings.Split(strategies, ",") {
			rs.Strategies = append(rs.Strategies, enumerate.Strategy(st))
		}
	}
	rs.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return RunSummary{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	return rs, nil
}

// ListRuns returns every stored run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, selectSummary+" ORDER BY r.created_at DESC, r.id")
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		rs, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		out = append(out, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	return out, nil
}

// LoadRun returns the run with the given ID, its pool and its tasks.
func (s *Store) LoadRun(ctx context.Context, id string) (*RunRecord, error) {
	rs, err := scanSummary(s.db.QueryRowContext(ctx, selectSummary+" WHERE r.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load run %s: %w", id, err)
	}
	rec := &RunRecord{RunSummary: rs}

	rows, err := s.db.QueryContext(ctx, `
		SELECT pool_index, label, strategy, rank_in_call, ordering_type, structure
		FROM candidates WHERE run_id = ? ORDER BY pool_index`, id)
	if err != nil {
		return nil, fmt.Errorf("store: load candidates of %s: %w", id, err)
	}
	for rows.Next() {
		var (
			c        CandidateRecord
			strategy string
			doc      string
		)
		if err := rows.Scan(&c.Index, &c.Label, &strategy, &c.Rank, &c.Ordering, &doc); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan candidate: %w", err)
		}
		c.Strategy = enumerate.Strategy(strategy)
		c.Structure = json.RawMessage(doc)
		rec.Pool = append(rec.Pool, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: load candidates of %s: %w", id, err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT task_id, role, name, predecessors, payload
		FROM tasks WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("store: load tasks of %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			t       TaskRecord
			role    string
			preds   string
			payload string
		)
		if err := rows.Scan(&t.ID, &role, &t.Name, &preds, &payload); err != nil {
			return nil, fmt.Errorf("store: scan task: %w", err)
		}
		t.Role = workflow.Role(role)
		if preds != "" {
			t.Predecessors = strings.Split(preds, ",")
		}
		t.Payload = json.RawMessage(payload)
		rec.Tasks = append(rec.Tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: load tasks of %s: %w", id, err)
	}
	return rec, nil
}
