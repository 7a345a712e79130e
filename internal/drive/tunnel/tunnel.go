// Package tunnel is the top-level drive loop: straight digging runs with
// headroom clearing and vein exploration at every step, composed into an
// expanding square spiral of right turns. It consumes only the step/turn
// and maintenance primitives; all navigation state lives in the ledger.
package tunnel

import (
	"errors"
	"fmt"
	"log"

	"tunneler/internal/drive/maintain"
	"tunneler/internal/drive/motion"
	"tunneler/internal/drive/vein"
	"tunneler/internal/rig"
)

// ErrCargoFull reports insufficient free cargo space at startup. It is a
// precondition failure, checked before the rig moves at all.
var ErrCargoFull = errors.New("tunnel: not enough free cargo slots to start")

type Config struct {
	// Wall is the thickness of untouched rock left between tunnel laps.
	Wall int

	// StartEdge and StartOffset resume the spiral iteration mid-pattern
	// after an earlier run was cut short.
	StartEdge   int
	StartOffset int

	// Edges is how many spiral edges to dig this run.
	Edges int

	// VeinDepth caps the recursive neighbor search at each step.
	VeinDepth int

	// MarkerEvery places a consumable marker after every n forward
	// steps; zero disables the observer.
	MarkerEvery int

	// MinFreeCargo is the startup precondition on empty cargo slots.
	MinFreeCargo int
}

// Sink receives per-edge progress events for the trip journal.
type Sink interface {
	EdgeDone(edge, length int)
}

type Driver struct {
	r     rig.Rig
	ctrl  *motion.Controller
	ex    *vein.Explorer
	maint *maintain.Scheduler
	log   *log.Logger
	sink  Sink

	cfg   Config
	steps int
}

func New(r rig.Rig, ctrl *motion.Controller, ex *vein.Explorer, maint *maintain.Scheduler, logger *log.Logger, cfg Config) *Driver {
	if cfg.Wall < 0 {
		cfg.Wall = 0
	}
	if cfg.VeinDepth <= 0 {
		cfg.VeinDepth = 8
	}
	return &Driver{r: r, ctrl: ctrl, ex: ex, maint: maint, log: logger, cfg: cfg}
}

func (d *Driver) SetSink(sink Sink) { d.sink = sink }

// DigRun advances length cells in a straight line. Every step clears the
// cell overhead for headroom, explores any vein touching the new cell and
// lets the scheduler interrupt for maintenance.
func (d *Driver) DigRun(length int) error {
	for i := 0; i < length; i++ {
		if err := d.maint.Run(false); err != nil {
			return err
		}
		if err := d.ctrl.Step(rig.Forward); err != nil {
			return err
		}
		if err := d.ctrl.ClearAbove(); err != nil {
			return err
		}
		if err := d.ex.Explore(d.cfg.VeinDepth); err != nil {
			return err
		}
	}
	return nil
}

// edgeLength is the spiral edge length for a 0-based edge index: laps are
// spaced wall+1 apart, and the edge grows every two turns.
func (d *Driver) edgeLength(edge int) int {
	return (edge/2 + 1) * (d.cfg.Wall + 1)
}

// Run digs the configured stretch of the spiral and finishes with a
// final return to base. The cargo precondition is checked before any
// motion so a doomed run never leaves the depot.
func (d *Driver) Run() error {
	if d.r.FreeCargoSlots() < d.cfg.MinFreeCargo {
		return fmt.Errorf("%w: have %d, need %d", ErrCargoFull, d.r.FreeCargoSlots(), d.cfg.MinFreeCargo)
	}
	if d.cfg.MarkerEvery > 0 {
		d.ctrl.SetObserver(d.markerObserver)
	}

	for e := d.cfg.StartEdge; e < d.cfg.StartEdge+d.cfg.Edges; e++ {
		length := d.edgeLength(e)
		run := length
		if e == d.cfg.StartEdge && d.cfg.StartOffset > 0 {
			run -= d.cfg.StartOffset
			if run < 0 {
				run = 0
			}
		}
		if err := d.DigRun(run); err != nil {
			return err
		}
		if err := d.ctrl.Turn(rig.TurnRight); err != nil {
			return err
		}
		if d.log != nil {
			d.log.Printf("edge %d done len=%d dist=%d energy=%d", e, run, d.ctrl.Ledger().DistanceFromBase(), d.r.EnergyLevel())
		}
		if d.sink != nil {
			d.sink.EdgeDone(e, run)
		}
	}
	return d.maint.ReturnHome()
}

// markerObserver drops a marker every MarkerEvery forward steps. It is
// suspended by the scheduler for the whole of any maintenance trip.
func (d *Driver) markerObserver(moved bool) {
	if !moved {
		return
	}
	d.steps++
	if d.steps%d.cfg.MarkerEvery != 0 {
		return
	}
	if !d.r.PlaceMarker() && d.log != nil {
		d.log.Printf("marker placement failed at step %d", d.steps)
	}
}
