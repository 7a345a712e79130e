// Package sim is an in-memory voxel rig used for tests and embedded runs.
// It models exactly what the drive core can observe through the rig
// contract: blocks, obstructions (including transient ones), tool wear,
// energy, markers and cargo. The rig tracks its absolute pose internally;
// none of that state is visible through the rig interface.
package sim

import (
	"fmt"
	"sync"

	"tunneler/internal/rig"
)

type Vec3 struct{ X, Y, Z int }

func (v Vec3) add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) neg() Vec3 { return Vec3{-v.X, -v.Y, -v.Z} }

// headings in rotation order: +Z, +X, -Z, -X.
var headings = [4]Vec3{{0, 0, 1}, {1, 0, 0}, {0, 0, -1}, {-1, 0, 0}}

const slotStack = 64

// MarkerBlock is passable: the rig can occupy and move through it.
const MarkerBlock = "MARKER"

type Config struct {
	MaxEnergy      int
	MoveCost       int // energy per translation
	ToolDurability int // clears per fresh tool
	Markers        int
	CargoSlots     int
}

func (c *Config) defaults() {
	if c.MaxEnergy <= 0 {
		c.MaxEnergy = 100000
	}
	if c.MoveCost <= 0 {
		c.MoveCost = 10
	}
	if c.ToolDurability <= 0 {
		c.ToolDurability = 1000
	}
	if c.Markers < 0 {
		c.Markers = 0
	}
	if c.CargoSlots <= 0 {
		c.CargoSlots = 16
	}
}

type Rig struct {
	mu  sync.Mutex
	cfg Config

	blocks map[Vec3]string

	pos     Vec3
	heading int

	energy  int
	tool    int
	markers int
	cargo   map[string]int

	// stubborn holds per-cell counts of clear attempts that fail before
	// the obstruction finally gives (a mob standing in the way).
	stubborn map[Vec3]int

	// pours holds per-cell counts of blocks that refill the cell after a
	// successful clear (a gravel column pouring back in).
	pours map[Vec3]int

	moves  int
	clears int
}

func New(cfg Config) *Rig {
	cfg.defaults()
	return &Rig{
		cfg:      cfg,
		blocks:   map[Vec3]string{},
		energy:   cfg.MaxEnergy,
		tool:     cfg.ToolDurability,
		markers:  cfg.Markers,
		cargo:    map[string]int{},
		stubborn: map[Vec3]int{},
		pours:    map[Vec3]int{},
	}
}

// --- world scripting (test/daemon side, not part of the rig contract) ---

func (r *Rig) SetBlock(p Vec3, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		delete(r.blocks, p)
		return
	}
	r.blocks[p] = name
}

func (r *Rig) BlockAt(p Vec3) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blocks[p]
}

// SetStubborn makes the next n clears of the cell fail before one succeeds.
func (r *Rig) SetStubborn(p Vec3, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stubborn[p] = n
}

// SetPour makes the cell refill n times after successful clears.
func (r *Rig) SetPour(p Vec3, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pours[p] = n
}

func (r *Rig) SetEnergy(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.energy = n
}

func (r *Rig) SetToolWear(left int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tool = left
}

func (r *Rig) Pos() Vec3 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

func (r *Rig) Heading() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.heading
}

func (r *Rig) Moves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.moves
}

func (r *Rig) Cargo() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.cargo))
	for k, v := range r.cargo {
		out[k] = v
	}
	return out
}

func (r *Rig) dirVec(d rig.Dir) Vec3 {
	switch d {
	case rig.Forward:
		return headings[r.heading]
	case rig.Back:
		return headings[r.heading].neg()
	case rig.Up:
		return Vec3{0, 1, 0}
	case rig.Down:
		return Vec3{0, -1, 0}
	case rig.Left:
		return headings[(r.heading+3)%4]
	case rig.Right:
		return headings[(r.heading+1)%4]
	}
	return Vec3{}
}

// --- rig contract ---

func (r *Rig) Detect(d rig.Dir) rig.Scan {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := r.blocks[r.pos.add(r.dirVec(d))]
	switch name {
	case "":
		return rig.ScanEmpty
	case MarkerBlock:
		return rig.ScanPassable
	}
	return rig.ScanSolid
}

func (r *Rig) Classify(d rig.Dir) (rig.Material, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := r.blocks[r.pos.add(r.dirVec(d))]
	if name == "" {
		return rig.Material{}, false
	}
	return rig.Material{Name: name}, true
}

func (r *Rig) Clear(d rig.Dir) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch d {
	case rig.Forward, rig.Up, rig.Down:
	default:
		return false, fmt.Errorf("sim: tool cannot reach %s", d)
	}
	p := r.pos.add(r.dirVec(d))
	name := r.blocks[p]
	if name == "" || name == MarkerBlock {
		return false, nil
	}
	if r.stubborn[p] > 0 {
		r.stubborn[p]--
		return false, nil
	}
	if r.tool <= 0 {
		return false, nil
	}
	r.tool--
	r.clears++
	if r.freeCargoSlotsLocked() > 0 || r.cargo[name]%slotStack != 0 {
		r.cargo[name]++
	}
	if r.pours[p] > 0 {
		r.pours[p]--
		return true, nil // removed one, but the cell refilled
	}
	delete(r.blocks, p)
	return true, nil
}

func (r *Rig) Translate(d rig.Dir) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch d {
	case rig.Forward, rig.Back, rig.Up, rig.Down:
	default:
		return false
	}
	p := r.pos.add(r.dirVec(d))
	if name := r.blocks[p]; name != "" && name != MarkerBlock {
		return false
	}
	if r.energy < r.cfg.MoveCost {
		return false
	}
	r.energy -= r.cfg.MoveCost
	r.pos = p
	r.moves++
	return true
}

func (r *Rig) Rotate(t rig.Turn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t == rig.TurnLeft {
		r.heading = (r.heading + 3) % 4
	} else {
		r.heading = (r.heading + 1) % 4
	}
	return true
}

func (r *Rig) EnergyLevel() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.energy
}

func (r *Rig) MaxEnergy() int { return r.cfg.MaxEnergy }

func (r *Rig) ToolUsable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tool > 0
}

func (r *Rig) ConsumableStock() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.markers
}

func (r *Rig) freeCargoSlotsLocked() int {
	used := 0
	for _, n := range r.cargo {
		used += (n + slotStack - 1) / slotStack
	}
	free := r.cfg.CargoSlots - used
	if free < 0 {
		free = 0
	}
	return free
}

func (r *Rig) FreeCargoSlots() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.freeCargoSlotsLocked()
}

func (r *Rig) PlaceMarker() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markers <= 0 {
		return false
	}
	if r.blocks[r.pos] != "" {
		return false
	}
	r.markers--
	r.blocks[r.pos] = MarkerBlock
	return true
}

// --- depot ---

// Depot services a rig parked at base: fresh tool, full markers, cargo
// unloaded, energy recharged. The sim depot is at the world origin.
type Depot struct {
	R *Rig
}

func (d Depot) Service(_ rig.Rig) error {
	r := d.R
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos != (Vec3{}) {
		return fmt.Errorf("sim: depot service away from base at %+v", r.pos)
	}
	r.tool = r.cfg.ToolDurability
	r.markers = r.cfg.Markers
	r.cargo = map[string]int{}
	r.energy = r.cfg.MaxEnergy
	return nil
}
