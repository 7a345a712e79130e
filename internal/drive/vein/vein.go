// Package vein performs a bounded recursive search of the six neighbor
// cells for interesting material. The load-bearing guarantee: however
// many branches are taken and however deep the recursion goes, the rig
// comes back to the exact pose and ledger tip it had at call entry, so
// callers can treat an exploration as a pure side-step.
package vein

import (
	"path"

	"tunneler/internal/drive/motion"
	"tunneler/internal/rig"
)

// Classifier decides whether a probed material is worth digging into.
// The core never depends on the rig's concrete naming scheme.
type Classifier func(rig.Material) bool

// MatchAny builds a classifier from glob patterns over material names.
// Malformed patterns simply never match.
func MatchAny(patterns []string) Classifier {
	return func(m rig.Material) bool {
		for _, p := range patterns {
			if ok, err := path.Match(p, m.Name); err == nil && ok {
				return true
			}
		}
		return false
	}
}

// Sink receives vein finds for the trip journal.
type Sink interface {
	VeinFound(material string, depthLeft int)
}

type probe struct {
	look  rig.Dir
	turns int
	turn  rig.Turn
	step  rig.Dir
}

// Probe order is fixed so exploration is deterministic for a given world.
// Horizontal side and rear neighbors are entered by rotating first; the
// rotations are recorded and undone by the mark restore like any move.
var probes = [6]probe{
	{look: rig.Forward, step: rig.Forward},
	{look: rig.Up, step: rig.Up},
	{look: rig.Down, step: rig.Down},
	{look: rig.Left, turns: 1, turn: rig.TurnLeft, step: rig.Forward},
	{look: rig.Right, turns: 1, turn: rig.TurnRight, step: rig.Forward},
	{look: rig.Back, turns: 2, turn: rig.TurnRight, step: rig.Forward},
}

type Explorer struct {
	r           rig.Rig
	ctrl        *motion.Controller
	interesting Classifier
	sink        Sink
}

func New(r rig.Rig, ctrl *motion.Controller, interesting Classifier) *Explorer {
	return &Explorer{r: r, ctrl: ctrl, interesting: interesting}
}

func (e *Explorer) SetSink(sink Sink) { e.sink = sink }

// Explore recursively follows interesting neighbors up to maxDepth steps
// away, restoring pose and ledger between branches and before returning.
func (e *Explorer) Explore(maxDepth int) error {
	if maxDepth <= 0 {
		return nil
	}
	for _, p := range probes {
		mat, ok := e.r.Classify(p.look)
		if !ok || !e.interesting(mat) {
			continue
		}

		m := e.ctrl.Ledger().Tip()
		for i := 0; i < p.turns; i++ {
			if err := e.ctrl.Turn(p.turn); err != nil {
				return err
			}
		}
		if err := e.ctrl.Step(p.step); err != nil {
			return err
		}
		if e.sink != nil {
			e.sink.VeinFound(mat.Name, maxDepth)
		}
		if err := e.Explore(maxDepth - 1); err != nil {
			return err
		}
		if err := e.ctrl.Ledger().Restore(m, true); err != nil {
			return err
		}
	}
	return nil
}
