// Package maintain decides when on-board resources force a trip back to
// base and performs the trip so that no caller can tell it happened: the
// full move history is drained home and replayed back out, and the ledger
// mark afterwards must be identical to the mark before. This is the only
// component allowed to drain or replay the ledger.
package maintain

import (
	"errors"
	"fmt"

	"tunneler/internal/drive/ledger"
	"tunneler/internal/drive/motion"
	"tunneler/internal/rig"
)

// ErrAbandoned reports that the operator declined a return trip whose
// retrace cost risked stranding the rig. It ends the run cleanly.
var ErrAbandoned = errors.New("maintain: operator declined risky return")

// ErrLedgerMismatch reports that a maintenance round trip did not restore
// the ledger to its exact pre-trip mark. This is a logic defect, not a
// runtime condition: the caller must abort.
var ErrLedgerMismatch = errors.New("maintain: ledger mark mismatch after round trip")

type Config struct {
	// FixedReserve is the flat energy floor kept aside regardless of
	// distance, covering servicing and estimation error near base.
	FixedReserve float64

	// SafetyFactor scales the distance-proportional return cost to
	// cover obstructions met on the way home. Must be > 1 to be useful.
	SafetyFactor float64

	// RiskAuthorized skips the operator confirmation for expensive
	// retraces (the force-continue flag).
	RiskAuthorized bool
}

// Sink receives maintenance cycle events for the trip journal.
type Sink interface {
	MaintenanceCycle(reason string, pathRuns int, retraceCost float64)
}

type Scheduler struct {
	r      rig.Rig
	ctrl   *motion.Controller
	energy *motion.EnergyState
	depot  rig.Depot
	prompt rig.Prompter
	cfg    Config
	sink   Sink
}

func New(r rig.Rig, ctrl *motion.Controller, energy *motion.EnergyState, depot rig.Depot, prompt rig.Prompter, cfg Config) *Scheduler {
	if cfg.SafetyFactor <= 0 {
		cfg.SafetyFactor = 1.25
	}
	return &Scheduler{r: r, ctrl: ctrl, energy: energy, depot: depot, prompt: prompt, cfg: cfg}
}

func (s *Scheduler) SetSink(sink Sink) { s.sink = sink }

// CostToReturn estimates the energy needed to get home from the current
// pose. Non-decreasing in both distance from base and average move cost.
func (s *Scheduler) CostToReturn() float64 {
	dist := s.ctrl.Ledger().DistanceFromBase()
	if dist < 0 {
		dist = 0
	}
	return s.cfg.FixedReserve + s.energy.AvgMoveCost()*float64(dist)*s.cfg.SafetyFactor
}

func (s *Scheduler) needsReason() (bool, string) {
	if !s.r.ToolUsable() {
		return true, "tool"
	}
	if float64(s.r.EnergyLevel()) < s.CostToReturn() {
		return true, "energy"
	}
	if s.r.ConsumableStock() == 0 {
		return true, "markers"
	}
	return false, ""
}

func (s *Scheduler) NeedsMaintenance() bool {
	need, _ := s.needsReason()
	return need
}

// Hook returns the per-obstruction resource check the motion controller
// installs. A full cargo hold forces a cycle even when resources are
// fine, so a freshly mined block always has somewhere to go.
func (s *Scheduler) Hook() func() error {
	return func() error {
		if s.r.FreeCargoSlots() == 0 {
			return s.cycle("cargo")
		}
		return s.Run(false)
	}
}

// Run performs a maintenance cycle when forced or needed: drain home,
// service at the depot, replay back out, verify the ledger mark.
func (s *Scheduler) Run(force bool) error {
	need, reason := s.needsReason()
	if !force && !need {
		return nil
	}
	if reason == "" {
		reason = "forced"
	}
	return s.cycle(reason)
}

func (s *Scheduler) cycle(reason string) error {
	led := s.ctrl.Ledger()

	// The marker observer must not fire along the return corridor.
	s.ctrl.SuspendObserver()
	defer s.ctrl.ResumeObserver()

	before := led.Tip()
	saved, err := led.DrainAll()
	if err != nil {
		return fmt.Errorf("maintain: drain home: %w", err)
	}
	if err := s.depot.Service(s.r); err != nil {
		return fmt.Errorf("maintain: depot service: %w", err)
	}

	retrace := s.retraceCost(saved)
	if retrace > float64(s.r.MaxEnergy())/2 && !s.cfg.RiskAuthorized {
		msg := fmt.Sprintf("retracing %d runs needs ~%.0f energy of %d max; continue?", len(saved), retrace, s.r.MaxEnergy())
		if s.prompt == nil || !s.prompt.Confirm(msg) {
			return ErrAbandoned
		}
	}

	if err := led.Replay(saved); err != nil {
		return fmt.Errorf("maintain: replay: %w", err)
	}
	if after := led.Tip(); after != before {
		return fmt.Errorf("%w: before=%+v after=%+v", ErrLedgerMismatch, before, after)
	}
	if s.sink != nil {
		s.sink.MaintenanceCycle(reason, len(saved), retrace)
	}
	return nil
}

// retraceCost estimates the energy to walk the saved path again.
func (s *Scheduler) retraceCost(saved []ledger.Move) float64 {
	units := 0
	for _, m := range saved {
		if m.Kind == ledger.KindTranslate {
			units += m.Count
		}
	}
	return s.energy.AvgMoveCost() * float64(units) * s.cfg.SafetyFactor
}

// ReturnHome ends the run: drain the whole ledger back to base and hand
// the rig to the depot one last time. No replay follows.
func (s *Scheduler) ReturnHome() error {
	s.ctrl.SuspendObserver()
	defer s.ctrl.ResumeObserver()
	if _, err := s.ctrl.Ledger().DrainAll(); err != nil {
		return fmt.Errorf("maintain: final return: %w", err)
	}
	if err := s.depot.Service(s.r); err != nil {
		return fmt.Errorf("maintain: final service: %w", err)
	}
	return nil
}
