// Package rig defines the hardware contract between the drive core and a
// physical (or simulated) excavation rig. All directions are relative to
// the rig's own frame: the core never sees absolute coordinates.
package rig

// Dir is a probe/translation direction in the rig's frame.
type Dir int

const (
	Forward Dir = iota
	Back
	Up
	Down
	Left
	Right
)

func (d Dir) String() string {
	switch d {
	case Forward:
		return "FORWARD"
	case Back:
		return "BACK"
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	}
	return "?"
}

// Inverse returns the direction that undoes a translation along d.
func (d Dir) Inverse() Dir {
	switch d {
	case Forward:
		return Back
	case Back:
		return Forward
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return d
}

// Turn is a 90 degree rotation in place.
type Turn int

const (
	TurnLeft Turn = iota
	TurnRight
)

func (t Turn) String() string {
	if t == TurnLeft {
		return "LEFT"
	}
	return "RIGHT"
}

// Inverse returns the rotation that undoes t.
func (t Turn) Inverse() Turn {
	if t == TurnLeft {
		return TurnRight
	}
	return TurnLeft
}

// Scan is the result of a non-destructive probe.
type Scan int

const (
	ScanEmpty Scan = iota
	ScanPassable
	ScanSolid
)

func (s Scan) String() string {
	switch s {
	case ScanEmpty:
		return "EMPTY"
	case ScanPassable:
		return "PASSABLE"
	case ScanSolid:
		return "SOLID"
	}
	return "?"
}

// Material describes the contents of a probed cell. Name is the rig's own
// naming scheme; the core only ever passes it to an injected classifier.
type Material struct {
	Name string
}

// Rig is the hardware interface consumed by the drive core.
//
// Translate and Rotate return false on obstruction; the motion layer owns
// retry and clearing. Clear is destructive and consumes tool durability;
// it supports Forward, Up and Down only (the tool faces forward). Detect
// and Classify accept any of the six directions.
type Rig interface {
	Detect(d Dir) Scan
	Classify(d Dir) (Material, bool)
	Clear(d Dir) (bool, error)
	Translate(d Dir) bool
	Rotate(t Turn) bool

	EnergyLevel() int
	MaxEnergy() int
	ToolUsable() bool
	ConsumableStock() int
	FreeCargoSlots() int

	// PlaceMarker drops one consumable marker in the cell below the rig.
	PlaceMarker() bool
}

// Faulter is implemented by rigs whose link to the hardware can die.
// A non-nil Fault means every later call will fail; retry loops must
// check it and abort instead of spinning on permanent false returns.
type Faulter interface {
	Fault() error
}

// Depot services a rig that is parked at base: replaces the worn tool,
// restocks markers, unloads mined cargo and recharges energy. Slot-level
// inventory choreography lives entirely behind this interface.
type Depot interface {
	Service(r Rig) error
}

// Prompter asks the operator a yes/no question. Used at exactly one
// decision point: authorizing a return trip that may strand the rig.
type Prompter interface {
	Confirm(msg string) bool
}
