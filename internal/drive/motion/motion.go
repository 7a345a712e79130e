// Package motion turns intent ("go forward") into guaranteed physical
// progress. A step never gives up on obstruction: it clears and retries
// with a bounded idle wait until the world yields. The controller is the
// sole writer of the move ledger and of the energy average.
package motion

import (
	"fmt"
	"time"

	"tunneler/internal/drive/ledger"
	"tunneler/internal/rig"
)

// Config tunes the retry behavior of a controller.
type Config struct {
	// ClearRetryWait is the idle wait between clearing attempts when a
	// clear reports nothing removed (a transient obstacle).
	ClearRetryWait time.Duration

	// Sleep is injectable for tests; nil means time.Sleep.
	Sleep func(time.Duration)
}

type Controller struct {
	r      rig.Rig
	led    *ledger.Ledger
	energy *EnergyState

	wait  time.Duration
	sleep func(time.Duration)

	// maintHook runs before the first clearing attempt of a blocked
	// step, so resource checks happen proactively and a full cargo can
	// be unloaded before a freshly mined block has nowhere to go.
	maintHook func() error

	observer    func(moved bool)
	observerOff bool
}

func New(r rig.Rig, energy *EnergyState, cfg Config) *Controller {
	c := &Controller{
		r:      r,
		energy: energy,
		wait:   cfg.ClearRetryWait,
		sleep:  cfg.Sleep,
	}
	if c.wait <= 0 {
		c.wait = 400 * time.Millisecond
	}
	if c.sleep == nil {
		c.sleep = time.Sleep
	}
	c.led = ledger.New(ledger.Env{
		ForcedStepFn: c.ForcedStep,
		ForcedTurnFn: c.ForcedTurn,
	})
	return c
}

// Ledger exposes the move ledger owned by this controller.
func (c *Controller) Ledger() *ledger.Ledger { return c.led }

// SetMaintenanceHook installs the resource check invoked before the
// first clearing attempt of any blocked step.
func (c *Controller) SetMaintenanceHook(fn func() error) { c.maintHook = fn }

// SetObserver installs the per-step observer, fired synchronously after
// every successful recorded action. moved is true for translations and
// false for rotations in place.
func (c *Controller) SetObserver(fn func(moved bool)) { c.observer = fn }

// SuspendObserver stops the observer from firing until ResumeObserver.
// Maintenance round trips run with the observer suspended.
func (c *Controller) SuspendObserver() { c.observerOff = true }

func (c *Controller) ResumeObserver() { c.observerOff = false }

func (c *Controller) notify(moved bool) {
	if c.observer != nil && !c.observerOff {
		c.observer(moved)
	}
}

// settle records a successful translation: folds the observed energy
// delta into the average, pushes the ledger entry and fires the observer.
func (c *Controller) settle(d rig.Dir, energyBefore int) {
	if delta := energyBefore - c.r.EnergyLevel(); delta > 0 {
		c.energy.Fold(float64(delta))
	}
	c.led.PushTranslation(d)
	c.notify(true)
}

// Step performs one elementary translation in d, clearing obstructions
// as needed. It returns an error only from the maintenance hook or a rig
// fault; mere obstruction is retried until the move physically succeeds.
func (c *Controller) Step(d rig.Dir) error {
	switch d {
	case rig.Forward, rig.Back, rig.Up, rig.Down:
	default:
		return fmt.Errorf("motion: cannot translate %s; rotate instead", d)
	}

	before := c.r.EnergyLevel()
	if c.r.Detect(d) != rig.ScanSolid && c.r.Translate(d) {
		c.settle(d, before)
		return nil
	}

	// Blocked. Resource check comes before the first swing of the tool.
	if c.maintHook != nil {
		if err := c.maintHook(); err != nil {
			return err
		}
	}

	if d == rig.Back {
		if err := c.clearBackward(); err != nil {
			return err
		}
		c.led.PushTranslation(rig.Back)
		c.notify(true)
		return nil
	}

	for {
		before = c.r.EnergyLevel()
		if c.r.Translate(d) {
			c.settle(d, before)
			return nil
		}
		removed, err := c.r.Clear(d)
		if err != nil {
			return fmt.Errorf("motion: clear %s: %w", d, err)
		}
		if !removed {
			c.sleep(c.wait)
		}
	}
}

// clearBackward handles a blocked backward step. The tool faces forward,
// so the rig turns 180 degrees, clears and moves, then turns back. The
// rotations cancel and are not recorded; the caller records the move as
// a single backward translation.
func (c *Controller) clearBackward() error {
	if err := c.turnAround(); err != nil {
		return err
	}
	for {
		before := c.r.EnergyLevel()
		if c.r.Translate(rig.Forward) {
			if delta := before - c.r.EnergyLevel(); delta > 0 {
				c.energy.Fold(float64(delta))
			}
			break
		}
		removed, err := c.r.Clear(rig.Forward)
		if err != nil {
			return fmt.Errorf("motion: clear backward: %w", err)
		}
		if !removed {
			c.sleep(c.wait)
		}
	}
	return c.turnAround()
}

func (c *Controller) turnAround() error {
	if err := c.rawTurn(rig.TurnRight); err != nil {
		return err
	}
	return c.rawTurn(rig.TurnRight)
}

// rawTurn rotates without recording. Rotation has no obstruction model;
// a false return is a transient rig hiccup and is retried, unless the
// rig reports a permanent fault.
func (c *Controller) rawTurn(t rig.Turn) error {
	for !c.r.Rotate(t) {
		if f, ok := c.r.(rig.Faulter); ok {
			if err := f.Fault(); err != nil {
				return fmt.Errorf("motion: rotate %s: %w", t, err)
			}
		}
		c.sleep(c.wait)
	}
	return nil
}

// Turn performs one recorded 90 degree rotation.
func (c *Controller) Turn(t rig.Turn) error {
	if err := c.rawTurn(t); err != nil {
		return err
	}
	c.led.PushRotation(t)
	c.notify(false)
	return nil
}

// ForcedStep is the unrecorded obstruction-clearing translation used for
// ledger unwind and replay. It never consults the maintenance hook: a
// maintenance round trip must not re-enter maintenance.
func (c *Controller) ForcedStep(d rig.Dir) error {
	if d == rig.Back {
		if c.r.Detect(rig.Back) != rig.ScanSolid && c.r.Translate(rig.Back) {
			return nil
		}
		return c.clearBackward()
	}
	for {
		before := c.r.EnergyLevel()
		if c.r.Translate(d) {
			if delta := before - c.r.EnergyLevel(); delta > 0 {
				c.energy.Fold(float64(delta))
			}
			return nil
		}
		removed, err := c.r.Clear(d)
		if err != nil {
			return fmt.Errorf("motion: forced clear %s: %w", d, err)
		}
		if !removed {
			c.sleep(c.wait)
		}
	}
}

// ForcedTurn is the unrecorded rotation counterpart of ForcedStep.
func (c *Controller) ForcedTurn(t rig.Turn) error {
	return c.rawTurn(t)
}

// ClearAbove removes the cell over the rig, retrying through pour-back
// and transient failures until the headroom is open.
func (c *Controller) ClearAbove() error {
	for c.r.Detect(rig.Up) == rig.ScanSolid {
		removed, err := c.r.Clear(rig.Up)
		if err != nil {
			return fmt.Errorf("motion: clear above: %w", err)
		}
		if !removed {
			c.sleep(c.wait)
		}
	}
	return nil
}
