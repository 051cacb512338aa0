package integrate

import (
	"github.com/oyin-bo/three-g-sub003/kernel"
	"github.com/oyin-bo/three-g-sub003/particles"
)

// Drift is K-IntegratePosition: x <- x + v*dt. Mass is carried
// through unchanged.
type Drift struct {
	Dt float32

	Input  *particles.Set
	Output *particles.Set
}

// Run computes Output's position from Input's position and velocity,
// allocating Output (as a clone of Input) if nil.
func (d *Drift) Run() error {
	if d.Input == nil {
		return kernel.ErrInvalidState("K-IntegratePosition", "missing particle input")
	}
	out := d.Output
	if out == nil {
		out = d.Input.Clone()
	} else {
		copy(out.Velocity, d.Input.Velocity)
	}
	d.Output = out

	for i := 0; i < out.Slots(); i++ {
		pos := d.Input.Position(i)
		m := d.Input.Mass(i)
		v := d.Input.Velocity3(i)
		out.SetPositionMass(i, pos[0]+v[0]*d.Dt, pos[1]+v[1]*d.Dt, pos[2]+v[2]*d.Dt, m)
	}
	return nil
}

// Dispose drops the Output reference.
func (d *Drift) Dispose() {
	d.Output = nil
}
