package gravity

import (
	"github.com/google/uuid"

	"github.com/oyin-bo/three-g-sub003/bounds"
	"github.com/oyin-bo/three-g-sub003/integrate"
	"github.com/oyin-bo/three-g-sub003/kernel"
	"github.com/oyin-bo/three-g-sub003/mesh"
	"github.com/oyin-bo/three-g-sub003/particles"
	"github.com/oyin-bo/three-g-sub003/tree"
)

// Mesh is the particle-mesh orchestrator: it owns the ping-pong
// particle state and sequences Deposit, FFT, Poisson, Gradient,
// inverse FFT x3, ForceSample, NearField, then the integrator each step.
// Its ID is carried for log/telemetry correlation across steps and across
// the sibling Tree orchestrator, should both run side by side.
type Mesh struct {
	id  uuid.UUID
	cfg Config

	current *particles.Set
	fPrev   *particles.Force // only used by the KDK integrator

	deposit    *mesh.Deposit
	moments    *tree.Aggregator // reused for NearField's A0 moment input, see DESIGN.md
	fwd        *mesh.FFT
	poisson    *mesh.Poisson
	gradient   *mesh.Gradient
	invX       *mesh.FFT
	invY       *mesh.FFT
	invZ       *mesh.FFT
	sample     *mesh.ForceSample
	nearField  *mesh.NearField
	nearSample *mesh.ForceSample

	lastForces *particles.Force
	disposed   bool
}

// NewMesh validates cfg and builds the initial particle state and kernel
// pipeline.
func NewMesh(cfg Config) (*Mesh, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MeshGridSize < 2 || cfg.MeshGridSize&(cfg.MeshGridSize-1) != 0 {
		return nil, kernel.ErrInvalidConfig("gravity.Mesh", "mesh.grid_size %d is not a power of two", cfg.MeshGridSize)
	}
	ps, err := newParticleSet(cfg)
	if err != nil {
		return nil, err
	}

	m := &Mesh{id: uuid.New(), cfg: cfg, current: ps}

	m.deposit = &mesh.Deposit{Grid: cfg.MeshGridSize, SlicesRow: cfg.MeshSlicesPerRow, Bounds: cfg.WorldBounds, Assignment: cfg.MeshAssignment}
	m.moments = &tree.Aggregator{N: cfg.MeshGridSize, SlicesRow: cfg.MeshSlicesPerRow, Bounds: cfg.WorldBounds}

	size := cfg.WorldBounds.Size()
	n := float32(cfg.MeshGridSize)
	cellVolume := (size[0] / n) * (size[1] / n) * (size[2] / n)

	m.fwd, err = mesh.NewFFT(cfg.MeshGridSize, cfg.MeshSlicesPerRow, cellVolume)
	if err != nil {
		return nil, err
	}
	m.poisson, err = mesh.NewPoisson(cfg.MeshGridSize, cfg.MeshSlicesPerRow, size, cfg.GravityStrength, cfg.MeshSplit, cfg.MeshKCut, cfg.MeshSplitSigma, cfg.MeshAssignment.DeconvolveOrder(), true)
	if err != nil {
		return nil, err
	}
	m.gradient = &mesh.Gradient{N: cfg.MeshGridSize, SlicesRow: cfg.MeshSlicesPerRow, WorldSize: size, UseDiscrete: true}

	m.invX, _ = mesh.NewFFT(cfg.MeshGridSize, cfg.MeshSlicesPerRow, 0)
	m.invY, _ = mesh.NewFFT(cfg.MeshGridSize, cfg.MeshSlicesPerRow, 0)
	m.invZ, _ = mesh.NewFFT(cfg.MeshGridSize, cfg.MeshSlicesPerRow, 0)

	m.sample = &mesh.ForceSample{N: cfg.MeshGridSize, SlicesRow: cfg.MeshSlicesPerRow, Bounds: cfg.WorldBounds}
	m.nearField = mesh.NewNearField(cfg.MeshGridSize, cfg.MeshSlicesPerRow, cfg.WorldBounds, cfg.GravityStrength, cfg.Softening, cfg.NearFieldRadius)
	m.nearSample = &mesh.ForceSample{N: cfg.MeshGridSize, SlicesRow: cfg.MeshSlicesPerRow, Bounds: cfg.WorldBounds, Accumulate: true}

	f, err := m.computeForces(ps)
	if err != nil {
		return nil, err
	}
	m.fPrev = f
	m.lastForces = f
	return m, nil
}

func newParticleSet(cfg Config) (*particles.Set, error) {
	ps, err := particles.New(cfg.TexWidth, cfg.TexHeight, cfg.particleCount())
	if err != nil {
		return nil, err
	}
	for i := 0; i < ps.Slots(); i++ {
		var x, y, z, mass float32
		if o := i * 4; o+3 < len(cfg.Positions) {
			x, y, z, mass = cfg.Positions[o], cfg.Positions[o+1], cfg.Positions[o+2], cfg.Positions[o+3]
		}
		ps.SetPositionMass(i, x, y, z, mass)
		var vx, vy, vz float32
		if o := i * 4; o+2 < len(cfg.Velocities) {
			vx, vy, vz = cfg.Velocities[o], cfg.Velocities[o+1], cfg.Velocities[o+2]
		}
		ps.SetVelocity(i, vx, vy, vz)
	}
	return ps, nil
}

// computeForces runs the full PM pipeline for a given particle state,
// serving both Step's direct force evaluation and the KDK integrator's
// ForceFunc recomputation.
func (m *Mesh) computeForces(p *particles.Set) (*particles.Force, error) {
	if err := m.deposit.Run(p); err != nil {
		return nil, err
	}
	if err := m.moments.Run(p); err != nil {
		return nil, err
	}

	m.fwd.InputReal = m.deposit.Output
	if err := m.fwd.Run(mesh.Forward); err != nil {
		return nil, err
	}

	m.poisson.Input = m.fwd.Output
	if err := m.poisson.Run(); err != nil {
		return nil, err
	}

	m.gradient.Input = m.poisson.Output
	if err := m.gradient.Run(); err != nil {
		return nil, err
	}

	m.invX.InputSpectrum = m.gradient.OutputX
	if err := m.invX.Run(mesh.Inverse); err != nil {
		return nil, err
	}
	m.invY.InputSpectrum = m.gradient.OutputY
	if err := m.invY.Run(mesh.Inverse); err != nil {
		return nil, err
	}
	m.invZ.InputSpectrum = m.gradient.OutputZ
	if err := m.invZ.Run(mesh.Inverse); err != nil {
		return nil, err
	}

	out := particles.NewForce(p.W, p.H)
	m.sample.ForceX, m.sample.ForceY, m.sample.ForceZ = m.invX.Output, m.invY.Output, m.invZ.Output
	if err := m.sample.Run(p, out); err != nil {
		return nil, err
	}

	m.nearField.Moments = m.moments.A0
	if err := m.nearField.Run(); err != nil {
		return nil, err
	}
	m.nearSample.ForceX, m.nearSample.ForceY, m.nearSample.ForceZ = m.nearField.OutputX, m.nearField.OutputY, m.nearField.OutputZ
	if err := m.nearSample.Run(p, out); err != nil {
		return nil, err
	}

	return out, nil
}

// Step advances the simulation by one dt, applying the configured
// integrator.
func (m *Mesh) Step() error {
	if m.disposed {
		return kernel.ErrInvalidState("gravity.Mesh", "step called after dispose")
	}
	switch m.cfg.Integrator {
	case KDKIntegrator:
		step := &integrate.KDK{
			Dt: m.cfg.Dt, MaxAccel: m.cfg.MaxAccel, Damping: m.cfg.Damping, MaxSpeed: m.cfg.MaxSpeed,
			Recompute: m.computeForces, FPrev: m.fPrev, Input: m.current,
		}
		if err := step.Run(); err != nil {
			return err
		}
		m.current = step.Output
		m.fPrev = step.FPrev
		m.lastForces = step.FPrev
	default:
		f, err := m.computeForces(m.current)
		if err != nil {
			return err
		}
		m.lastForces = f
		step := &integrate.Euler{
			Dt: m.cfg.Dt, MaxAccel: m.cfg.MaxAccel, Damping: m.cfg.Damping, MaxSpeed: m.cfg.MaxSpeed,
			Input: m.current, Forces: f,
		}
		if err := step.Run(); err != nil {
			return err
		}
		m.current = step.Output
	}
	return nil
}

// ID returns this orchestrator instance's identity.
func (m *Mesh) ID() uuid.UUID { return m.id }

// CurrentPositions returns the current positionMass buffer (x,y,z,m
// interleaved), the CPU stand-in for current_position_texture().
func (m *Mesh) CurrentPositions() []float32 { return m.current.PositionMass }

// CurrentVelocities returns the current velocity buffer (vx,vy,vz,·
// interleaved), the CPU stand-in for current_velocity_texture().
func (m *Mesh) CurrentVelocities() []float32 { return m.current.Velocity }

// Bounds returns the configured world bounds.
func (m *Mesh) Bounds() bounds.Box { return m.cfg.WorldBounds }

// Dispose frees every kernel's owned textures. Idempotent.
func (m *Mesh) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	for _, d := range []disposer{
		m.deposit, m.moments, m.fwd, m.poisson, m.gradient,
		m.invX, m.invY, m.invZ, m.sample, m.nearField, m.nearSample,
	} {
		d.Dispose()
	}
}

// disposer is the minimal contract every kernel in this package satisfies,
// whatever shape its Run takes.
type disposer interface {
	Dispose()
}
