// Package journal records what a dig run did: a compressed JSONL trip
// log as the source of truth, plus an optional sqlite index for
// querying across runs.
package journal

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Journal fans every event out to the run log and, when configured,
// the sqlite index. It satisfies the sink interfaces of the drive
// packages so the dig loop never imports persistence directly.
type Journal struct {
	runID string
	w     *JSONLZstdWriter
	idx   *SQLiteIndex
	seq   atomic.Uint64
}

// Open creates the run log under baseDir and, if indexPath is non-empty,
// opens (creating if needed) the sqlite index.
func Open(baseDir, indexPath string) (*Journal, error) {
	runID := uuid.NewString()
	w, err := NewJSONLZstdWriter(baseDir, runID)
	if err != nil {
		return nil, err
	}
	j := &Journal{runID: runID, w: w}
	if indexPath != "" {
		idx, err := OpenSQLite(indexPath)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		j.idx = idx
	}
	return j, nil
}

func (j *Journal) RunID() string   { return j.runID }
func (j *Journal) LogPath() string { return j.w.Path() }

func (j *Journal) Close() error {
	err := j.w.Close()
	if j.idx != nil {
		if e := j.idx.Close(); err == nil {
			err = e
		}
	}
	return err
}

func (j *Journal) emit(e Entry) {
	e.RunID = j.runID
	e.Seq = j.seq.Add(1)
	e.TS = time.Now().UTC().Format(time.RFC3339Nano)
	_ = j.w.Write(e)
	if j.idx != nil {
		j.idx.Record(e)
	}
}

func (j *Journal) RunStart(wall, edges, startEdge int) {
	j.emit(Entry{Kind: EvRunStart, Wall: wall, Edges: edges, StartEdge: startEdge})
}

// RunEnd records the outcome. runErr may be nil.
func (j *Journal) RunEnd(runErr error) {
	e := Entry{Kind: EvRunEnd}
	if runErr != nil {
		e.Err = runErr.Error()
	}
	j.emit(e)
}

func (j *Journal) VeinFound(material string, depthLeft int) {
	j.emit(Entry{Kind: EvVeinFound, Material: material, DepthLeft: depthLeft})
}

func (j *Journal) MaintenanceCycle(reason string, pathRuns int, retraceCost float64) {
	j.emit(Entry{Kind: EvMaintenance, Reason: reason, PathRuns: pathRuns, RetraceCost: retraceCost})
}

func (j *Journal) EdgeDone(edge, length int) {
	j.emit(Entry{Kind: EvEdgeDone, Edge: edge, Length: length})
}
