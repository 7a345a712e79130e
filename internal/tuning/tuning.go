// Package tuning loads the operating parameters of a dig run from yaml.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	// Maintenance thresholds.
	FixedReserve float64 `yaml:"fixed_reserve"`
	SafetyFactor float64 `yaml:"safety_factor"`

	// Exponential smoothing factor for the per-move energy average.
	EnergyAlpha float64 `yaml:"energy_alpha"`

	MarkerInterval int `yaml:"marker_interval"`
	VeinMaxDepth   int `yaml:"vein_max_depth"`
	MinFreeCargo   int `yaml:"min_free_cargo"`

	ClearRetryWaitMs int `yaml:"clear_retry_wait_ms"`

	// OrePatterns are glob patterns matched against material names to
	// decide what counts as an interesting vein.
	OrePatterns []string `yaml:"ore_patterns"`

	Rig RigTuning `yaml:"rig"`
}

// RigTuning parameterizes the embedded simulated rig.
type RigTuning struct {
	MaxEnergy      int   `yaml:"max_energy"`
	MoveCost       int   `yaml:"move_cost"`
	ToolDurability int   `yaml:"tool_durability"`
	Markers        int   `yaml:"markers"`
	CargoSlots     int   `yaml:"cargo_slots"`
	Seed           int64 `yaml:"seed"`
	Radius         int   `yaml:"radius"`
}

func Default() Tuning {
	return Tuning{
		FixedReserve:     5000,
		SafetyFactor:     1.25,
		EnergyAlpha:      0.2,
		MarkerInterval:   8,
		VeinMaxDepth:     8,
		MinFreeCargo:     4,
		ClearRetryWaitMs: 400,
		OrePatterns:      []string{"*_ORE"},
		Rig: RigTuning{
			MaxEnergy:      100000,
			MoveCost:       10,
			ToolDurability: 1500,
			Markers:        64,
			CargoSlots:     16,
			Seed:           1337,
			Radius:         64,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.SafetyFactor <= 1 {
		return t, fmt.Errorf("tuning.yaml: safety_factor must be > 1, got %v", t.SafetyFactor)
	}
	if t.EnergyAlpha <= 0 || t.EnergyAlpha > 1 {
		return t, fmt.Errorf("tuning.yaml: energy_alpha must be in (0,1], got %v", t.EnergyAlpha)
	}
	return t, nil
}
