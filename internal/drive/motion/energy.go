package motion

// EnergyState keeps an exponentially smoothed estimate of the energy cost
// of one elementary translation. Only positive deltas are folded in, so
// recharges and other unrelated energy gains never corrupt the average.
type EnergyState struct {
	alpha  float64
	avg    float64
	primed bool
}

func NewEnergyState(alpha float64) *EnergyState {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.2
	}
	return &EnergyState{alpha: alpha}
}

// Fold mixes one observed per-move energy delta into the running average.
// Non-positive deltas are ignored.
func (e *EnergyState) Fold(delta float64) {
	if delta <= 0 {
		return
	}
	if !e.primed {
		e.avg = delta
		e.primed = true
		return
	}
	e.avg = e.avg*(1-e.alpha) + delta*e.alpha
}

// AvgMoveCost is the current estimate; zero until the first sample.
func (e *EnergyState) AvgMoveCost() float64 { return e.avg }
