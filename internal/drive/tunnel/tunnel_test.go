package tunnel

import (
	"errors"
	"strings"
	"testing"
	"time"

	"tunneler/internal/drive/maintain"
	"tunneler/internal/drive/motion"
	"tunneler/internal/drive/vein"
	"tunneler/internal/rig"
	"tunneler/internal/rig/sim"
)

type yes struct{}

func (yes) Confirm(string) bool { return true }

type countingDepot struct {
	inner    sim.Depot
	services int
}

func (d *countingDepot) Service(r rig.Rig) error {
	d.services++
	return d.inner.Service(r)
}

type fixture struct {
	r     *sim.Rig
	ctrl  *motion.Controller
	depot *countingDepot
	maint *maintain.Scheduler
}

func newFixture(simCfg sim.Config, maintCfg maintain.Config) *fixture {
	r := sim.New(simCfg)
	es := motion.NewEnergyState(0.2)
	ctrl := motion.New(r, es, motion.Config{
		ClearRetryWait: time.Millisecond,
		Sleep:          func(time.Duration) {},
	})
	depot := &countingDepot{inner: sim.Depot{R: r}}
	m := maintain.New(r, ctrl, es, depot, yes{}, maintCfg)
	ctrl.SetMaintenanceHook(m.Hook())
	return &fixture{r: r, ctrl: ctrl, depot: depot, maint: m}
}

func (f *fixture) driver(cfg Config) *Driver {
	ore := func(m rig.Material) bool { return strings.HasSuffix(m.Name, "_ORE") }
	ex := vein.New(f.r, f.ctrl, ore)
	return New(f.r, f.ctrl, ex, f.maint, nil, cfg)
}

func TestDigRun_ClearsHeadroomAndMinesVeins(t *testing.T) {
	f := newFixture(sim.Config{Markers: 16, MaxEnergy: 100000, ToolDurability: 1000}, maintain.Config{FixedReserve: 10})
	// Stone corridor with headroom blocks and one ore beside the path.
	for z := 1; z <= 3; z++ {
		f.r.SetBlock(sim.Vec3{Z: z}, "STONE")
		f.r.SetBlock(sim.Vec3{Y: 1, Z: z}, "STONE")
	}
	f.r.SetBlock(sim.Vec3{X: 1, Z: 2}, "CRYSTAL_ORE")

	d := f.driver(Config{VeinDepth: 4})
	if err := d.DigRun(3); err != nil {
		t.Fatalf("dig run: %v", err)
	}
	if got := f.r.Pos(); got != (sim.Vec3{Z: 3}) {
		t.Fatalf("pos=%+v want end of corridor", got)
	}
	for z := 1; z <= 3; z++ {
		if f.r.BlockAt(sim.Vec3{Y: 1, Z: z}) != "" {
			t.Fatalf("headroom at z=%d not cleared", z)
		}
	}
	if f.r.Cargo()["CRYSTAL_ORE"] != 1 {
		t.Fatalf("cargo=%v want side ore mined", f.r.Cargo())
	}
	if got := f.ctrl.Ledger().DistanceFromBase(); got != 3 {
		t.Fatalf("dist=%d want 3 (vein detour fully unwound)", got)
	}
}

func TestRun_SpiralEndsAtBaseWithEmptyLedger(t *testing.T) {
	f := newFixture(sim.Config{Markers: 32, MaxEnergy: 100000, ToolDurability: 1000}, maintain.Config{FixedReserve: 10})
	d := f.driver(Config{Wall: 1, Edges: 4, VeinDepth: 2, MinFreeCargo: 1})

	if err := d.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := f.r.Pos(); got != (sim.Vec3{}) {
		t.Fatalf("pos=%+v want base after final return", got)
	}
	if f.ctrl.Ledger().Len() != 0 || f.ctrl.Ledger().DistanceFromBase() != 0 {
		t.Fatalf("ledger len=%d dist=%d want drained", f.ctrl.Ledger().Len(), f.ctrl.Ledger().DistanceFromBase())
	}
	if f.depot.services == 0 {
		t.Fatal("final return must hand the rig to the depot")
	}
}

func TestRun_PlacesMarkersAtInterval(t *testing.T) {
	f := newFixture(sim.Config{Markers: 8, MaxEnergy: 100000, ToolDurability: 1000}, maintain.Config{FixedReserve: 10})
	d := f.driver(Config{Wall: 3, Edges: 2, MarkerEvery: 3, VeinDepth: 1, MinFreeCargo: 1})

	if err := d.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	// Edges of length 4 and 4: markers after steps 3 and 6.
	placed := 0
	for z := 1; z <= 4; z++ {
		if f.r.BlockAt(sim.Vec3{Z: z}) == sim.MarkerBlock {
			placed++
		}
		if f.r.BlockAt(sim.Vec3{X: z, Z: 4}) == sim.MarkerBlock {
			placed++
		}
	}
	if placed != 2 {
		t.Fatalf("placed=%d markers, want 2", placed)
	}
}

func TestRun_CargoPreconditionRefusesToStart(t *testing.T) {
	f := newFixture(sim.Config{Markers: 8, CargoSlots: 2}, maintain.Config{FixedReserve: 10})
	d := f.driver(Config{Edges: 1, MinFreeCargo: 4})

	err := d.Run()
	if !errors.Is(err, ErrCargoFull) {
		t.Fatalf("err=%v want ErrCargoFull", err)
	}
	if f.r.Moves() != 0 {
		t.Fatal("rig must not move when the precondition fails")
	}
}

func TestRun_WornToolTriggersMaintenanceMidRun(t *testing.T) {
	f := newFixture(sim.Config{Markers: 16, MaxEnergy: 100000, ToolDurability: 2}, maintain.Config{FixedReserve: 10})
	// Enough stone that the tool wears out mid-corridor.
	for z := 1; z <= 5; z++ {
		f.r.SetBlock(sim.Vec3{Z: z}, "STONE")
	}
	d := f.driver(Config{Wall: 4, Edges: 1, VeinDepth: 1, MinFreeCargo: 1})

	if err := d.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if f.depot.services < 2 {
		t.Fatalf("services=%d want a mid-run cycle plus the final return", f.depot.services)
	}
	if got := f.r.Pos(); got != (sim.Vec3{}) {
		t.Fatalf("pos=%+v want base", got)
	}
}

func TestRun_ResumesFromEdgeOffset(t *testing.T) {
	f := newFixture(sim.Config{Markers: 16, MaxEnergy: 100000}, maintain.Config{FixedReserve: 10})
	// Edge 2 has length (2/2+1)*(0+1) = 2; offset 1 leaves a single step.
	d := f.driver(Config{Wall: 0, StartEdge: 2, StartOffset: 1, Edges: 1, VeinDepth: 1, MinFreeCargo: 1})

	if err := d.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := f.r.Moves(); got != 2 {
		t.Fatalf("moves=%d want 1 out + 1 home", got)
	}
}
