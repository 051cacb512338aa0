package gravity

import (
	"github.com/google/uuid"

	"github.com/oyin-bo/three-g-sub003/bounds"
	"github.com/oyin-bo/three-g-sub003/integrate"
	"github.com/oyin-bo/three-g-sub003/kernel"
	"github.com/oyin-bo/three-g-sub003/particles"
	"github.com/oyin-bo/three-g-sub003/tree"
)

// Tree is the Barnes-Hut orchestrator: it owns the ping-pong
// particle state and sequences Aggregator, PyramidBuild x (L-1),
// Traversal, then the integrator each step, with BoundsReduce run on a
// coarse schedule rather than every step.
type Tree struct {
	id  uuid.UUID
	cfg Config

	current *particles.Set
	fPrev   *particles.Force

	aggregator   *tree.Aggregator
	pyramids     []*tree.PyramidBuild // one per level transition, finest-to-coarsest
	boundsReduce *tree.BoundsReduce

	stepCount int

	lastForces *particles.Force
	disposed   bool
}

// NewTree validates cfg and builds the initial particle state and level
// pyramid.
func NewTree(cfg Config) (*Tree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.TreeNumLevels < 1 {
		return nil, kernel.ErrInvalidConfig("gravity.Tree", "tree.num_levels must be >= 1, got %d", cfg.TreeNumLevels)
	}
	if cfg.TreeSlicesPerRow < 1 {
		cfg.TreeSlicesPerRow = 1
	}
	ps, err := newParticleSet(cfg)
	if err != nil {
		return nil, err
	}

	t := &Tree{id: uuid.New(), cfg: cfg, current: ps}

	t.aggregator = &tree.Aggregator{
		N: cfg.TreeGridSize, SlicesRow: cfg.TreeSlicesPerRow, Bounds: cfg.WorldBounds,
		Quadrupole: cfg.TreeUseOccupancy,
	}
	t.boundsReduce = &tree.BoundsReduce{}

	numTransitions := cfg.TreeNumLevels - 1
	t.pyramids = make([]*tree.PyramidBuild, numTransitions)
	n := cfg.TreeGridSize
	for i := 0; i < numTransitions; i++ {
		t.pyramids[i] = &tree.PyramidBuild{
			ChildN: n, ChildSlicesRow: cfg.TreeSlicesPerRow,
			ParentN: n / 2, ParentSlicesRow: cfg.TreeSlicesPerRow,
			Quadrupole: cfg.TreeUseOccupancy,
		}
		n /= 2
	}

	f, err := t.computeForces(ps)
	if err != nil {
		return nil, err
	}
	t.fPrev = f
	t.lastForces = f
	return t, nil
}

// buildLevels runs the aggregator and pyramid chain, returning the full
// level list finest-to-coarsest for K-Traversal.
func (t *Tree) buildLevels(p *particles.Set) ([]tree.Level, error) {
	if err := t.aggregator.Run(p); err != nil {
		return nil, err
	}
	levels := make([]tree.Level, 0, len(t.pyramids)+1)
	levels = append(levels, tree.Level{
		N: t.aggregator.N, SlicesRow: t.aggregator.SlicesRow,
		A0: t.aggregator.A0, A1: t.aggregator.A1, A2: t.aggregator.A2,
		Occupancy: t.aggregator.Occupancy,
	})

	childA0, childA1, childA2 := t.aggregator.A0, t.aggregator.A1, t.aggregator.A2
	for _, pb := range t.pyramids {
		pb.ChildA0, pb.ChildA1, pb.ChildA2 = childA0, childA1, childA2
		if err := pb.Run(); err != nil {
			return nil, err
		}
		levels = append(levels, tree.Level{
			N: pb.ParentN, SlicesRow: pb.ParentSlicesRow,
			A0: pb.ParentA0, A1: pb.ParentA1, A2: pb.ParentA2,
		})
		childA0, childA1, childA2 = pb.ParentA0, pb.ParentA1, pb.ParentA2
	}
	return levels, nil
}

// computeForces runs the full tree pipeline for a given particle state,
// serving both Step's direct force evaluation and the KDK integrator's
// ForceFunc recomputation.
func (t *Tree) computeForces(p *particles.Set) (*particles.Force, error) {
	levels, err := t.buildLevels(p)
	if err != nil {
		return nil, err
	}
	trav := tree.NewTraversal(t.cfg.WorldBounds, levels, t.cfg.Theta, t.cfg.Softening, t.cfg.GravityStrength, t.cfg.TreeUseOccupancy, t.cfg.NearFieldRadius)
	if err := trav.Run(p); err != nil {
		return nil, err
	}
	return trav.Output, nil
}

// Step advances the simulation by one dt. BoundsReduce runs every
// BoundsUpdatePeriod steps; the reduced box is informational only
// here since Aggregator already reads Config.WorldBounds directly; the
// reduced box is exposed through ReducedBounds() and is not fed back into
// the configured WorldBounds.
func (t *Tree) Step() error {
	if t.disposed {
		return kernel.ErrInvalidState("gravity.Tree", "step called after dispose")
	}
	period := t.cfg.BoundsUpdatePeriod
	if period < 1 {
		period = 1
	}
	if t.stepCount%period == 0 {
		if err := t.boundsReduce.Run(t.current); err != nil {
			return err
		}
	}
	t.stepCount++

	switch t.cfg.Integrator {
	case KDKIntegrator:
		step := &integrate.KDK{
			Dt: t.cfg.Dt, MaxAccel: t.cfg.MaxAccel, Damping: t.cfg.Damping, MaxSpeed: t.cfg.MaxSpeed,
			Recompute: t.computeForces, FPrev: t.fPrev, Input: t.current,
		}
		if err := step.Run(); err != nil {
			return err
		}
		t.current = step.Output
		t.fPrev = step.FPrev
		t.lastForces = step.FPrev
	default:
		f, err := t.computeForces(t.current)
		if err != nil {
			return err
		}
		t.lastForces = f
		step := &integrate.Euler{
			Dt: t.cfg.Dt, MaxAccel: t.cfg.MaxAccel, Damping: t.cfg.Damping, MaxSpeed: t.cfg.MaxSpeed,
			Input: t.current, Forces: f,
		}
		if err := step.Run(); err != nil {
			return err
		}
		t.current = step.Output
	}
	return nil
}

// ID returns this orchestrator instance's identity.
func (t *Tree) ID() uuid.UUID { return t.id }

// CurrentPositions returns the current positionMass buffer.
func (t *Tree) CurrentPositions() []float32 { return t.current.PositionMass }

// CurrentVelocities returns the current velocity buffer.
func (t *Tree) CurrentVelocities() []float32 { return t.current.Velocity }

// ReducedBounds returns the most recent K-BoundsReduce result, or the
// configured world bounds if BoundsReduce has not run yet.
func (t *Tree) ReducedBounds() bounds.Box {
	if t.boundsReduce.Output == nil {
		return t.cfg.WorldBounds
	}
	return t.boundsReduce.Box()
}

// Dispose frees every kernel's owned textures. Idempotent.
func (t *Tree) Dispose() {
	if t.disposed {
		return
	}
	t.disposed = true
	t.aggregator.Dispose()
	t.boundsReduce.Dispose()
	for _, pb := range t.pyramids {
		pb.Dispose()
	}
}
