package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"hexplan.ai/internal/persistence/snapshot"
	"hexplan.ai/internal/sim/runner"
	"hexplan.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable secondary index of runs, plans and runner
// events. Writes are queued and applied by a single writer goroutine; the
// JSONL logs remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropRun      atomic.Uint64
	dropPlan     atomic.Uint64
	dropEvent    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqRun reqKind = iota + 1
	reqPlan
	reqEvent
	reqSnapshot
)

type req struct {
	kind reqKind

	run      RunRow
	plan     runner.PlanRecord
	event    runner.Event
	snapshot snapshotRow
}

type RunRow struct {
	RunID          string
	ScenarioID     string
	ScenarioDigest string
	TuningDigest   string
	StartedAt      string
}

type snapshotRow struct {
	RunID  string
	Tick   uint64
	Path   string
	Digest string
	Facts  int
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int

	DropRunTotal      uint64
	DropPlanTotal     uint64
	DropEventTotal    uint64
	DropSnapshotTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-only workload.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tunings (
			digest TEXT PRIMARY KEY,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			scenario_id TEXT NOT NULL,
			scenario_digest TEXT NOT NULL,
			tuning_digest TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS plans (
			run_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			agent_id TEXT NOT NULL,
			goal TEXT,
			found INTEGER NOT NULL,
			cost REAL NOT NULL,
			expanded INTEGER NOT NULL,
			actions_json TEXT NOT NULL,
			PRIMARY KEY (run_id, round, agent_id)
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			round INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			agent_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			action TEXT NOT NULL,
			effects_json TEXT,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_agent_tick ON events(agent_id, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			path TEXT NOT NULL,
			digest TEXT NOT NULL,
			facts INTEGER NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// DB exposes the handle for read queries.
func (s *SQLiteIndex) DB() *sql.DB { return s.db }

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropRunTotal:      s.dropRun.Load(),
		DropPlanTotal:     s.dropPlan.Load(),
		DropEventTotal:    s.dropEvent.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

// enqueue drops the request when the writer falls behind.
func (s *SQLiteIndex) enqueue(r req) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		switch r.kind {
		case reqRun:
			s.dropRun.Add(1)
		case reqPlan:
			s.dropPlan.Add(1)
		case reqEvent:
			s.dropEvent.Add(1)
		case reqSnapshot:
			s.dropSnapshot.Add(1)
		}
	}
}

func (s *SQLiteIndex) RecordRun(r RunRow) {
	if r.StartedAt == "" {
		r.StartedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	s.enqueue(req{kind: reqRun, run: r})
}

func (s *SQLiteIndex) RecordPlan(p runner.PlanRecord) {
	s.enqueue(req{kind: reqPlan, plan: p})
}

func (s *SQLiteIndex) Emit(e runner.Event) {
	s.enqueue(req{kind: reqEvent, event: e})
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	s.enqueue(req{kind: reqSnapshot, snapshot: snapshotRow{
		RunID:  snap.Header.RunID,
		Tick:   snap.Header.Tick,
		Path:   path,
		Digest: snap.Header.Digest,
		Facts:  len(snap.Facts),
	}})
}

// UpsertTuning stores the tuning values actually applied, keyed by digest.
func (s *SQLiteIndex) UpsertTuning(tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('protocol_version',?)`, tune.ProtocolVersion); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO tunings(digest,json,updated_at) VALUES(?,?,?)`, tune.Digest(), string(b), now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,scenario_id,scenario_digest,tuning_digest,started_at) VALUES(?,?,?,?,?)`)
	insertPlan, _ := s.db.Prepare(`INSERT OR REPLACE INTO plans(run_id,round,agent_id,goal,found,cost,expanded,actions_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO events(run_id,seq,round,tick,agent_id,kind,action,effects_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(run_id,tick,path,digest,facts) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRun, insertPlan, insertEvent, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		// Event sequence per run, assigned here so it follows queue order.
		eventSeq = map[string]int{}
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqRun:
			ru := r.run
			exec(insertRun, ru.RunID, ru.ScenarioID, ru.ScenarioDigest, ru.TuningDigest, ru.StartedAt)

		case reqPlan:
			p := r.plan
			actions := p.Actions
			if actions == nil {
				actions = []string{}
			}
			b, _ := json.Marshal(actions)
			found := 0
			if p.Found {
				found = 1
			}
			exec(insertPlan, p.RunID, p.Round, p.Agent, p.Goal, found, p.Cost, p.Expanded, string(b))

		case reqEvent:
			e := r.event
			seq := eventSeq[e.RunID]
			eventSeq[e.RunID] = seq + 1
			var effects any
			if len(e.Effects) > 0 {
				b, _ := json.Marshal(e.Effects)
				effects = string(b)
			}
			exec(insertEvent, e.RunID, seq, e.Round, int64(e.Tick), e.Agent, string(e.Kind), e.Action, effects)

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, sn.RunID, int64(sn.Tick), sn.Path, sn.Digest, sn.Facts)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
