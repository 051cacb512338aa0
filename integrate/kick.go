// Package integrate implements the velocity/position integrators:
// Kick (K-IntegrateVelocity), Drift (K-IntegratePosition), a combined Euler
// step, and the orchestrator-level KDK (kick-drift-kick) symplectic
// integrator.
package integrate

import (
	"math"

	"github.com/oyin-bo/three-g-sub003/kernel"
	"github.com/oyin-bo/three-g-sub003/particles"
)

// Kick is K-IntegrateVelocity: v <- v + f*dt, with acceleration
// clamped to MaxAccel, the result damped by (1-Damping), then clamped to
// MaxSpeed. NaN mass or velocity freezes the particle: its velocity,
// NaN included, is copied through unchanged and no force is applied.
type Kick struct {
	Dt       float32
	MaxAccel float32 // <=0 disables the clamp
	Damping  float32 // fraction removed from |v| each kick, [0,1)
	MaxSpeed float32 // <=0 disables the clamp

	Input  *particles.Set
	Forces *particles.Force
	Output *particles.Set // velocity only; position/mass carried through
}

// Run computes Output's velocity from Input's velocity and Forces,
// allocating Output (as a clone of Input) if nil.
func (k *Kick) Run() error {
	if k.Input == nil || k.Forces == nil {
		return kernel.ErrInvalidState("K-IntegrateVelocity", "missing particle or force input")
	}
	out := k.Output
	if out == nil {
		out = k.Input.Clone()
	} else {
		copy(out.PositionMass, k.Input.PositionMass)
	}
	k.Output = out

	for i := 0; i < out.Slots(); i++ {
		m := k.Input.Mass(i)
		v := k.Input.Velocity3(i)
		if math.IsNaN(float64(m)) || math.IsNaN(float64(v[0])) || math.IsNaN(float64(v[1])) || math.IsNaN(float64(v[2])) {
			out.SetVelocity(i, v[0], v[1], v[2])
			kernel.WarnNonFinite("K-IntegrateVelocity", i, "velocity", v[0])
			continue
		}
		f := k.Forces.Get(i)
		fx, fy, fz := f[0], f[1], f[2]
		if k.MaxAccel > 0 {
			fx, fy, fz = kernel.ClampMag(fx, fy, fz, k.MaxAccel)
		}
		nx := v[0] + fx*k.Dt
		ny := v[1] + fy*k.Dt
		nz := v[2] + fz*k.Dt

		if k.Damping > 0 {
			damp := 1 - k.Damping
			nx *= damp
			ny *= damp
			nz *= damp
		}
		if k.MaxSpeed > 0 {
			nx, ny, nz = kernel.ClampMag(nx, ny, nz, k.MaxSpeed)
		}
		out.SetVelocity(i, nx, ny, nz)
	}
	return nil
}

// Dispose drops the Output reference. Output has no owner tracking of
// its own, so nothing else is freed.
func (k *Kick) Dispose() {
	k.Output = nil
}
