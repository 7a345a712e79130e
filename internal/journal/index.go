package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteIndex keeps a queryable summary of past runs next to the JSONL
// logs. Writes are buffered through a single goroutine; the JSONL log
// remains the source of truth if the indexer falls behind.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan Entry
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
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
		ch: make(chan Entry, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
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
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			wall INTEGER NOT NULL,
			edges INTEGER NOT NULL,
			start_edge INTEGER NOT NULL,
			err TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS veins (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			material TEXT NOT NULL,
			depth_left INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_veins_material ON veins(material);`,
		`CREATE TABLE IF NOT EXISTS cycles (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			reason TEXT NOT NULL,
			path_runs INTEGER NOT NULL,
			retrace_cost REAL NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS edges (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			edge INTEGER NOT NULL,
			length INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
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

// Record enqueues an entry for indexing. Entries are dropped rather
// than blocking the dig loop when the buffer is full.
func (s *SQLiteIndex) Record(e Entry) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- e:
	default:
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,started_at,wall,edges,start_edge) VALUES(?,?,?,?,?)`)
	endRun, _ := s.db.Prepare(`UPDATE runs SET ended_at=?, err=? WHERE run_id=?`)
	insertVein, _ := s.db.Prepare(`INSERT OR REPLACE INTO veins(run_id,seq,material,depth_left,recorded_at) VALUES(?,?,?,?,?)`)
	insertCycle, _ := s.db.Prepare(`INSERT OR REPLACE INTO cycles(run_id,seq,reason,path_runs,retrace_cost,recorded_at) VALUES(?,?,?,?,?,?)`)
	insertEdge, _ := s.db.Prepare(`INSERT OR REPLACE INTO edges(run_id,seq,edge,length,recorded_at) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRun, endRun, insertVein, insertCycle, insertEdge} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = 2 * time.Second
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

	for e := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		var err error
		switch e.Kind {
		case EvRunStart:
			if insertRun != nil {
				_, err = tx.Stmt(insertRun).Exec(e.RunID, e.TS, e.Wall, e.Edges, e.StartEdge)
			}
		case EvRunEnd:
			if endRun != nil {
				_, err = tx.Stmt(endRun).Exec(e.TS, e.Err, e.RunID)
			}
		case EvVeinFound:
			if insertVein != nil {
				_, err = tx.Stmt(insertVein).Exec(e.RunID, int64(e.Seq), e.Material, e.DepthLeft, e.TS)
			}
		case EvMaintenance:
			if insertCycle != nil {
				_, err = tx.Stmt(insertCycle).Exec(e.RunID, int64(e.Seq), e.Reason, e.PathRuns, e.RetraceCost, e.TS)
			}
		case EvEdgeDone:
			if insertEdge != nil {
				_, err = tx.Stmt(insertEdge).Exec(e.RunID, int64(e.Seq), e.Edge, e.Length, e.TS)
			}
		}
		if err != nil {
			rollback()
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}
