package journal

// Trip journal entry kinds. One JSON object per line in the run log.
const (
	EvRunStart    = "run_start"
	EvRunEnd      = "run_end"
	EvVeinFound   = "vein_found"
	EvMaintenance = "maintenance"
	EvEdgeDone    = "edge_done"
)

// Entry is the JSONL envelope. Only the fields relevant to Kind are set.
type Entry struct {
	Kind  string `json:"kind"`
	RunID string `json:"run_id"`
	Seq   uint64 `json:"seq"`
	TS    string `json:"ts"`

	// run_start / run_end
	Wall      int    `json:"wall,omitempty"`
	Edges     int    `json:"edges,omitempty"`
	StartEdge int    `json:"start_edge,omitempty"`
	Err       string `json:"err,omitempty"`

	// vein_found
	Material  string `json:"material,omitempty"`
	DepthLeft int    `json:"depth_left,omitempty"`

	// maintenance
	Reason      string  `json:"reason,omitempty"`
	PathRuns    int     `json:"path_runs,omitempty"`
	RetraceCost float64 `json:"retrace_cost,omitempty"`

	// edge_done
	Edge   int `json:"edge,omitempty"`
	Length int `json:"length,omitempty"`
}
