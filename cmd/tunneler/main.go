package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"tunneler/internal/drive/maintain"
	"tunneler/internal/drive/motion"
	"tunneler/internal/drive/tunnel"
	"tunneler/internal/drive/vein"
	"tunneler/internal/journal"
	"tunneler/internal/rig"
	"tunneler/internal/rig/remote"
	"tunneler/internal/rig/sim"
	"tunneler/internal/tuning"
)

func main() {
	var (
		wall   = flag.Int("wall", 3, "rock thickness left between tunnel laps")
		edge   = flag.Int("edge", 0, "starting spiral edge index (resume)")
		offset = flag.Int("offset", 0, "steps already dug on the starting edge (resume)")
		edges  = flag.Int("edges", 8, "number of spiral edges to dig this run")
		yes    = flag.Bool("yes", false, "skip the risky-return confirmation")
		force  = flag.Bool("force", false, "start even when energy is below the fixed reserve")

		url        = flag.String("url", "", "rig daemon websocket url (empty: embedded sim)")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		journalDir = flag.String("journal", "", "trip journal directory (empty: no journal)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[tunneler] ", log.LstdFlags|log.Lmicroseconds)

	tn, err := tuning.Load(*tuningPath)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}

	var (
		hw    rig.Rig
		depot rig.Depot
	)
	if strings.TrimSpace(*url) != "" {
		rr, err := remote.Dial(strings.TrimSpace(*url), "tunneler", logger)
		if err != nil {
			logger.Fatalf("dial rig daemon: %v", err)
		}
		defer rr.Close()
		hw = rr
		depot = remote.Depot{R: rr}
	} else {
		sr := sim.New(sim.Config{
			MaxEnergy:      tn.Rig.MaxEnergy,
			MoveCost:       tn.Rig.MoveCost,
			ToolDurability: tn.Rig.ToolDurability,
			Markers:        tn.Rig.Markers,
			CargoSlots:     tn.Rig.CargoSlots,
		})
		sim.Generate(sr, tn.Rig.Seed, tn.Rig.Radius)
		hw = sr
		depot = sim.Depot{R: sr}
	}

	if !*force && float64(hw.EnergyLevel()) < tn.FixedReserve {
		logger.Printf("energy %d is below the fixed reserve %.0f; refusing to start (use -force to override)",
			hw.EnergyLevel(), tn.FixedReserve)
		os.Exit(1)
	}

	var prompt rig.Prompter = stdinPrompter{in: bufio.NewReader(os.Stdin), out: os.Stderr}
	if *yes {
		prompt = autoYes{}
	}

	energy := motion.NewEnergyState(tn.EnergyAlpha)
	ctrl := motion.New(hw, energy, motion.Config{
		ClearRetryWait: time.Duration(tn.ClearRetryWaitMs) * time.Millisecond,
	})
	sched := maintain.New(hw, ctrl, energy, depot, prompt, maintain.Config{
		FixedReserve:   tn.FixedReserve,
		SafetyFactor:   tn.SafetyFactor,
		RiskAuthorized: *yes,
	})
	ctrl.SetMaintenanceHook(sched.Hook())

	ex := vein.New(hw, ctrl, vein.MatchAny(tn.OrePatterns))
	drv := tunnel.New(hw, ctrl, ex, sched, logger, tunnel.Config{
		Wall:         *wall,
		StartEdge:    *edge,
		StartOffset:  *offset,
		Edges:        *edges,
		VeinDepth:    tn.VeinMaxDepth,
		MarkerEvery:  tn.MarkerInterval,
		MinFreeCargo: tn.MinFreeCargo,
	})

	var j *journal.Journal
	if strings.TrimSpace(*journalDir) != "" {
		dir := strings.TrimSpace(*journalDir)
		j, err = journal.Open(dir, dir+"/index.db")
		if err != nil {
			logger.Fatalf("open journal: %v", err)
		}
		logger.Printf("journal run %s -> %s", j.RunID(), j.LogPath())
		sched.SetSink(j)
		ex.SetSink(j)
		drv.SetSink(j)
		j.RunStart(*wall, *edges, *edge)
	}

	runErr := drv.Run()
	if j != nil {
		j.RunEnd(runErr)
		if err := j.Close(); err != nil {
			logger.Printf("close journal: %v", err)
		}
	}
	if runErr != nil {
		logger.Printf("run failed: %v", runErr)
		os.Exit(exitCode(runErr))
	}
	logger.Printf("run complete: rig parked at base")
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, tunnel.ErrCargoFull):
		return 2
	case errors.Is(err, maintain.ErrAbandoned):
		return 3
	default:
		return 1
	}
}

// stdinPrompter asks the operator on the controlling terminal.
type stdinPrompter struct {
	in  *bufio.Reader
	out *os.File
}

func (p stdinPrompter) Confirm(msg string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", msg)
	line, err := p.in.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

type autoYes struct{}

func (autoYes) Confirm(string) bool { return true }
