package integrate

import (
	"github.com/oyin-bo/three-g-sub003/kernel"
	"github.com/oyin-bo/three-g-sub003/particles"
)

// Euler is the combined kick(dt); drift(dt) step. Not symplectic;
// provided as the baseline the KDK integrator's energy drift is measured
// against.
type Euler struct {
	Dt       float32
	MaxAccel float32
	Damping  float32
	MaxSpeed float32

	Input  *particles.Set
	Forces *particles.Force
	Output *particles.Set
}

// Run applies a kick followed by a drift, writing the result to Output.
func (e *Euler) Run() error {
	if e.Input == nil || e.Forces == nil {
		return kernel.ErrInvalidState("K-Euler", "missing particle or force input")
	}
	kick := &Kick{Dt: e.Dt, MaxAccel: e.MaxAccel, Damping: e.Damping, MaxSpeed: e.MaxSpeed, Input: e.Input, Forces: e.Forces}
	if err := kick.Run(); err != nil {
		return err
	}
	drift := &Drift{Dt: e.Dt, Input: kick.Output, Output: e.Output}
	if err := drift.Run(); err != nil {
		return err
	}
	e.Output = drift.Output
	return nil
}

// Dispose drops the Output reference.
func (e *Euler) Dispose() {
	e.Output = nil
}
