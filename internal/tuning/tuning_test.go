package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoad_OverridesDefaults(t *testing.T) {
	p := writeFile(t, `
fixed_reserve: 2500
safety_factor: 1.5
marker_interval: 12
ore_patterns: ["*_ORE", "CRYSTAL*"]
rig:
  max_energy: 4000
  seed: 99
`)
	tn, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tn.FixedReserve != 2500 || tn.SafetyFactor != 1.5 || tn.MarkerInterval != 12 {
		t.Fatalf("overrides not applied: %+v", tn)
	}
	if tn.VeinMaxDepth != 8 {
		t.Fatalf("default vein_max_depth lost: %d", tn.VeinMaxDepth)
	}
	if tn.Rig.MaxEnergy != 4000 || tn.Rig.Seed != 99 {
		t.Fatalf("rig overrides not applied: %+v", tn.Rig)
	}
	if len(tn.OrePatterns) != 2 {
		t.Fatalf("ore_patterns=%v", tn.OrePatterns)
	}
}

func TestLoad_RejectsUselessSafetyFactor(t *testing.T) {
	p := writeFile(t, "safety_factor: 0.9\n")
	if _, err := Load(p); err == nil {
		t.Fatal("safety_factor <= 1 must be rejected")
	}
}

func TestLoad_RejectsBadAlpha(t *testing.T) {
	p := writeFile(t, "energy_alpha: 2.0\n")
	if _, err := Load(p); err == nil {
		t.Fatal("energy_alpha > 1 must be rejected")
	}
}
