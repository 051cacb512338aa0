package integrate

import (
	"github.com/oyin-bo/three-g-sub003/kernel"
	"github.com/oyin-bo/three-g-sub003/particles"
)

// ForceFunc recomputes the per-particle force for a given particle state.
// Supplied by the orchestrator (GravityMesh or GravityTree), since it is the
// only thing that knows how to rebuild the mesh/octree for the new
// positions.
type ForceFunc func(*particles.Set) (*particles.Force, error)

// KDK is the orchestrator-level kick-drift-kick symplectic integrator:
// kick(dt/2, f_prev); drift(dt); rebuild + recompute f_new;
// kick(dt/2, f_new); swap (f_prev, f_new).
type KDK struct {
	Dt       float32
	MaxAccel float32
	Damping  float32
	MaxSpeed float32

	Recompute ForceFunc

	// FPrev is the force evaluated at the start of the step (from the
	// previous step's f_new, or an initial evaluation before the first
	// step). After Run, it holds the new f_new for the following step,
	// the orchestrator's force ping-pong.
	FPrev *particles.Force

	Input  *particles.Set
	Output *particles.Set
}

// Run advances Input by one KDK step.
func (k *KDK) Run() error {
	if k.Input == nil || k.FPrev == nil || k.Recompute == nil {
		return kernel.ErrInvalidState("K-KDK", "missing particle input, previous force, or recompute function")
	}
	half := k.Dt / 2

	kick1 := &Kick{Dt: half, MaxAccel: k.MaxAccel, Damping: k.Damping, MaxSpeed: k.MaxSpeed, Input: k.Input, Forces: k.FPrev}
	if err := kick1.Run(); err != nil {
		return err
	}

	drift := &Drift{Dt: k.Dt, Input: kick1.Output}
	if err := drift.Run(); err != nil {
		return err
	}

	fNew, err := k.Recompute(drift.Output)
	if err != nil {
		return err
	}

	kick2 := &Kick{Dt: half, MaxAccel: k.MaxAccel, Damping: k.Damping, MaxSpeed: k.MaxSpeed, Input: drift.Output, Forces: fNew}
	if err := kick2.Run(); err != nil {
		return err
	}

	k.Output = kick2.Output
	k.FPrev = fNew
	return nil
}

// Dispose drops the Output reference; FPrev is owned by the orchestrator.
func (k *KDK) Dispose() {
	k.Output = nil
}
