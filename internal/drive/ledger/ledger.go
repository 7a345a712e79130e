// Package ledger records the rig's motion history as a reversible,
// run-length-compressed sequence of moves. Replaying the ledger from the
// base reproduces the rig's pose; unwinding it from the current pose
// returns to the base. This is the only notion of position the drive core
// has: there is no map and there are no absolute coordinates.
package ledger

import (
	"errors"
	"fmt"

	"tunneler/internal/rig"
)

// Kind discriminates the two elementary action families.
type Kind int

const (
	KindTranslate Kind = iota
	KindRotate
)

// Move is one run of identical elementary actions, stored compressed.
// For KindTranslate, Dir is the translation direction; for KindRotate,
// Turn is the rotation direction. Count is always >= 1.
type Move struct {
	Kind  Kind
	Dir   rig.Dir
	Turn  rig.Turn
	Count int
}

func (m Move) String() string {
	if m.Kind == KindRotate {
		return fmt.Sprintf("rot %s x%d", m.Turn, m.Count)
	}
	return fmt.Sprintf("mov %s x%d", m.Dir, m.Count)
}

// Mark is a snapshot handle into the ledger: the run count at mark time
// and the unit count within the last run. Restoring to a mark discards
// everything recorded after it.
type Mark struct {
	Index int
	Count int
}

// Env supplies the physical actions the ledger needs to unwind or replay
// itself. Both are forced: they must retry through obstructions and only
// return an error on a fault that ends the run.
type Env struct {
	ForcedStepFn func(d rig.Dir) error
	ForcedTurnFn func(t rig.Turn) error
}

func (e Env) forcedStep(d rig.Dir) error {
	if e.ForcedStepFn == nil {
		return nil
	}
	return e.ForcedStepFn(d)
}

func (e Env) forcedTurn(t rig.Turn) error {
	if e.ForcedTurnFn == nil {
		return nil
	}
	return e.ForcedTurnFn(t)
}

// ErrBadMark reports a restore target that does not describe a prefix of
// the current ledger. It always indicates a caller logic defect.
var ErrBadMark = errors.New("ledger: mark does not address a ledger prefix")

type Ledger struct {
	env   Env
	moves []Move
	dist  int
}

func New(env Env) *Ledger {
	return &Ledger{env: env}
}

// Len returns the number of runs currently recorded.
func (l *Ledger) Len() int { return len(l.moves) }

// DistanceFromBase is the signed sum of forward/backward translation
// units in the ledger. It is zero exactly when no net forward progress
// is recorded, and always zero on an empty ledger.
func (l *Ledger) DistanceFromBase() int { return l.dist }

// Runs returns a copy of the recorded runs, oldest first.
func (l *Ledger) Runs() []Move {
	out := make([]Move, len(l.moves))
	copy(out, l.moves)
	return out
}

func distanceDelta(d rig.Dir) int {
	switch d {
	case rig.Forward:
		return 1
	case rig.Back:
		return -1
	}
	return 0
}

// PushTranslation records one elementary translation, merging into the
// last run when it continues the same direction.
func (l *Ledger) PushTranslation(d rig.Dir) {
	l.dist += distanceDelta(d)
	if n := len(l.moves); n > 0 {
		last := &l.moves[n-1]
		if last.Kind == KindTranslate && last.Dir == d {
			last.Count++
			return
		}
	}
	l.moves = append(l.moves, Move{Kind: KindTranslate, Dir: d, Count: 1})
}

// PushRotation records one elementary 90 degree rotation, merging runs
// like PushTranslation.
func (l *Ledger) PushRotation(t rig.Turn) {
	if n := len(l.moves); n > 0 {
		last := &l.moves[n-1]
		if last.Kind == KindRotate && last.Turn == t {
			last.Count++
			return
		}
	}
	l.moves = append(l.moves, Move{Kind: KindRotate, Turn: t, Count: 1})
}

// undoUnit physically performs the inverse of one unit of m and adjusts
// the distance counter. When physical is false only bookkeeping changes.
func (l *Ledger) undoUnit(m Move, physical bool) error {
	if m.Kind == KindTranslate {
		l.dist -= distanceDelta(m.Dir)
		if physical {
			return l.env.forcedStep(m.Dir.Inverse())
		}
		return nil
	}
	if physical {
		return l.env.forcedTurn(m.Turn.Inverse())
	}
	return nil
}

// PopLastRun physically reverses every unit of the most recent run and
// removes it from the ledger. Returns false when the ledger is empty.
func (l *Ledger) PopLastRun() (Move, bool, error) {
	n := len(l.moves)
	if n == 0 {
		return Move{}, false, nil
	}
	m := l.moves[n-1]
	for i := 0; i < m.Count; i++ {
		if err := l.undoUnit(m, true); err != nil {
			return Move{}, false, err
		}
	}
	l.moves = l.moves[:n-1]
	return m, true, nil
}

// Tip returns a mark addressing the current ledger tip.
func (l *Ledger) Tip() Mark {
	n := len(l.moves)
	if n == 0 {
		return Mark{}
	}
	return Mark{Index: n, Count: l.moves[n-1].Count}
}

// Restore discards every unit recorded after m. With physical set, each
// discarded unit is undone by its real inverse action, so the rig ends at
// the marked pose. The bookkeeping-only path is valid only when the
// caller has independently guaranteed the rig is already there (a
// maintenance round trip that came back via forced replay).
func (l *Ledger) Restore(m Mark, physical bool) error {
	if m.Index < 0 || m.Index > len(l.moves) {
		return ErrBadMark
	}
	for len(l.moves) > m.Index {
		cur := l.moves[len(l.moves)-1]
		for i := 0; i < cur.Count; i++ {
			if err := l.undoUnit(cur, physical); err != nil {
				return err
			}
		}
		l.moves = l.moves[:len(l.moves)-1]
	}
	if m.Index == 0 {
		return nil
	}
	cur := &l.moves[m.Index-1]
	if cur.Count < m.Count {
		return ErrBadMark
	}
	for cur.Count > m.Count {
		if err := l.undoUnit(*cur, physical); err != nil {
			return err
		}
		cur.Count--
	}
	if cur.Count == 0 {
		l.moves = l.moves[:m.Index-1]
	}
	return nil
}

// DrainAll physically unwinds the whole ledger, newest run first,
// leaving the rig at base, and returns the removed runs in chronological
// order so a later Replay can walk back out.
func (l *Ledger) DrainAll() ([]Move, error) {
	saved := make([]Move, len(l.moves))
	copy(saved, l.moves)
	for len(l.moves) > 0 {
		if _, _, err := l.PopLastRun(); err != nil {
			return nil, err
		}
	}
	return saved, nil
}

// Replay re-executes a previously drained sequence in original order
// using forced actions, re-populating the ledger as if freshly walked.
// Because a drained sequence never contains two adjacent runs of the
// same action, the rebuilt ledger is structurally identical to the one
// that was drained.
func (l *Ledger) Replay(moves []Move) error {
	for _, m := range moves {
		for i := 0; i < m.Count; i++ {
			if m.Kind == KindTranslate {
				if err := l.env.forcedStep(m.Dir); err != nil {
					return err
				}
				l.PushTranslation(m.Dir)
			} else {
				if err := l.env.forcedTurn(m.Turn); err != nil {
					return err
				}
				l.PushRotation(m.Turn)
			}
		}
	}
	return nil
}
