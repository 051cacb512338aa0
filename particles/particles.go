// Package particles implements the particle ping-pong data model:
// positionMass and velocity live as two parallel flat buffers of size
// W*H >= N, laid out row-major, with padding slots carrying mass 0.
package particles

import "github.com/oyin-bo/three-g-sub003/kernel"

// Set is one generation of particle state: positionMass (x,y,z,m) and
// velocity (vx,vy,vz,·), both W*H*4 float32 slots.
type Set struct {
	W, H  int
	Count int // active particle count, <= W*H

	PositionMass []float32 // x,y,z,m interleaved
	Velocity     []float32 // vx,vy,vz,pad interleaved
}

// New allocates a zeroed particle Set sized for count particles in a W×H
// texture. Returns a CapacityExceeded error if W*H < count.
func New(w, h, count int) (*Set, error) {
	if w*h < count {
		return nil, kernel.ErrCapacityExceeded("particles.New", "texture %dx%d cannot hold %d particles", w, h, count)
	}
	return &Set{
		W:            w,
		H:            h,
		Count:        count,
		PositionMass: make([]float32, w*h*4),
		Velocity:     make([]float32, w*h*4),
	}, nil
}

// Slots returns the total number of particle slots (W*H), including padding.
func (s *Set) Slots() int {
	return s.W * s.H
}

// Position returns the (x,y,z) of slot i.
func (s *Set) Position(i int) [3]float32 {
	o := i * 4
	return [3]float32{s.PositionMass[o], s.PositionMass[o+1], s.PositionMass[o+2]}
}

// Mass returns the mass of slot i. Padding slots read back 0.
func (s *Set) Mass(i int) float32 {
	return s.PositionMass[i*4+3]
}

// Velocity3 returns the (vx,vy,vz) of slot i.
func (s *Set) Velocity3(i int) [3]float32 {
	o := i * 4
	return [3]float32{s.Velocity[o], s.Velocity[o+1], s.Velocity[o+2]}
}

// SetPositionMass writes slot i's position and mass.
func (s *Set) SetPositionMass(i int, x, y, z, m float32) {
	o := i * 4
	s.PositionMass[o], s.PositionMass[o+1], s.PositionMass[o+2], s.PositionMass[o+3] = x, y, z, m
}

// SetVelocity writes slot i's velocity.
func (s *Set) SetVelocity(i int, vx, vy, vz float32) {
	o := i * 4
	s.Velocity[o], s.Velocity[o+1], s.Velocity[o+2] = vx, vy, vz
}

// Active reports whether slot i carries real mass (m>0), i.e. is not a
// padding slot.
func (s *Set) Active(i int) bool {
	return s.PositionMass[i*4+3] > 0
}

// TotalMass sums the mass of every active slot, used by mass-conservation
// tests and by conservation telemetry.
func (s *Set) TotalMass() float64 {
	var total float64
	for i := 0; i < s.Slots(); i++ {
		total += float64(s.Mass(i))
	}
	return total
}

// Clone returns a deep copy of s, used by the orchestrators' ping-pong swap
// and by tests that need an independent before/after snapshot.
func (s *Set) Clone() *Set {
	c := &Set{W: s.W, H: s.H, Count: s.Count}
	c.PositionMass = append([]float32(nil), s.PositionMass...)
	c.Velocity = append([]float32(nil), s.Velocity...)
	return c
}

// KineticEnergy sums (1/2)*m*v^2 over every active slot.
func (s *Set) KineticEnergy() float64 {
	var total float64
	for i := 0; i < s.Slots(); i++ {
		m := float64(s.Mass(i))
		if m <= 0 {
			continue
		}
		v := s.Velocity3(i)
		speedSq := float64(v[0])*float64(v[0]) + float64(v[1])*float64(v[1]) + float64(v[2])*float64(v[2])
		total += 0.5 * m * speedSq
	}
	return total
}

// Momentum returns the vector sum of m*v over every active slot.
func (s *Set) Momentum() [3]float64 {
	var p [3]float64
	for i := 0; i < s.Slots(); i++ {
		m := float64(s.Mass(i))
		if m <= 0 {
			continue
		}
		v := s.Velocity3(i)
		p[0] += m * float64(v[0])
		p[1] += m * float64(v[1])
		p[2] += m * float64(v[2])
	}
	return p
}
