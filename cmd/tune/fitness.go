package main

import (
	"math"
	"math/rand"
	"sync"

	"github.com/oyin-bo/three-g-sub003/bounds"
	"github.com/oyin-bo/three-g-sub003/config"
	"github.com/oyin-bo/three-g-sub003/gravity"
	"github.com/oyin-bo/three-g-sub003/particles"
	"github.com/oyin-bo/three-g-sub003/telemetry"
)

// Fitness weights: drift dominates, step time is a tie-breaker that
// pushes theta up when two parameter sets conserve energy equally well.
const (
	driftWeight = 1.0
	speedWeight = 0.02
)

// seedResult is one seed's evaluation outcome.
type seedResult struct {
	drift     float64
	stepMicro float64
}

// FitnessEvaluator runs the tree orchestrator over a fixed cluster
// fixture for maxTicks steps per seed, scoring how well each parameter
// set conserves energy relative to how fast it runs.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int32
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	bestFitness float64
	bestParams  []float64
}

// NewFitnessEvaluator builds an evaluator over the given base config.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseConfig *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseConfig,
		bestFitness: math.Inf(1),
	}
}

// BestParams returns the best parameter values seen so far, or nil.
func (fe *FitnessEvaluator) BestParams() []float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestParams
}

// Evaluate scores one denormalized parameter vector, averaging over all
// configured seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(x, s)
		}(i, seed)
	}
	wg.Wait()

	var totalFitness float64
	for _, r := range results {
		totalFitness += driftWeight*r.drift + speedWeight*r.stepMicro
	}
	fitness := totalFitness / float64(len(results))

	fe.mu.Lock()
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
		fe.bestParams = append([]float64(nil), x...)
	}
	fe.mu.Unlock()

	return fitness
}

// runSimulation builds a clustered fixture keyed by seed, steps a tree
// orchestrator built with x's parameters for maxTicks steps, and returns
// the final energy drift and average per-step wall time.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) seedResult {
	cfg := &config.Config{
		Physics:   fe.baseConfig.Physics,
		Mesh:      fe.baseConfig.Mesh,
		Tree:      fe.baseConfig.Tree,
		Telemetry: fe.baseConfig.Telemetry,
	}
	fe.params.ApplyToConfig(cfg, x)

	pos, vel, count := clusterFixture(seed)
	scene := gravity.Config{
		Positions:     pos,
		Velocities:    vel,
		ParticleCount: count,
		TexWidth:      count,
		TexHeight:     1,
		WorldBounds:   bounds.Box{Min: [3]float32{-32, -32, -32}, Max: [3]float32{32, 32, 32}},
	}
	gcfg := cfg.GravityConfig(scene)

	t, err := gravity.NewTree(gcfg)
	if err != nil {
		return seedResult{drift: math.Inf(1)}
	}
	defer t.Dispose()

	stats := telemetry.NewConservationStats(int(fe.maxTicks) + 1)
	perf := telemetry.NewPerfCollector(int(fe.maxTicks) + 1)

	p := wrapSet(t, gcfg)
	stats.Record(0, 0, p, gcfg.GravityStrength, gcfg.Softening, 2000)

	for step := int32(1); step <= fe.maxTicks; step++ {
		perf.StartTick()
		perf.StartPhase(telemetry.PhaseTraversal)
		if err := t.Step(); err != nil {
			break
		}
		perf.EndTick()

		p = wrapSet(t, gcfg)
		stats.Record(step, float64(step)*float64(gcfg.Dt), p, gcfg.GravityStrength, gcfg.Softening, 2000)
	}

	return seedResult{
		drift:     math.Abs(stats.Latest().EnergyDrift),
		stepMicro: float64(perf.Stats().AvgTickDuration.Microseconds()),
	}
}

// wrapSet adapts the orchestrator's raw position/velocity buffers into a
// particles.Set view for telemetry, without copying.
func wrapSet(t *gravity.Tree, cfg gravity.Config) *particles.Set {
	return &particles.Set{
		W:            cfg.TexWidth,
		H:            cfg.TexHeight,
		Count:        cfg.ParticleCount,
		PositionMass: t.CurrentPositions(),
		Velocity:     t.CurrentVelocities(),
	}
}

// clusterFixture builds a deterministic-but-seed-varied cloud of
// particles orbiting a common center, used as the tuning fixture.
func clusterFixture(seed int64) ([]float32, []float32, int) {
	const n = 64
	pos := make([]float32, n*4)
	vel := make([]float32, n*4)

	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < n; i++ {
		angle := rng.Float64() * 2 * math.Pi
		radius := 4 + rng.Float64()*12
		x := float32(radius * math.Cos(angle))
		y := float32(radius * math.Sin(angle))
		z := float32((rng.Float64() - 0.5) * 2)

		pos[i*4+0] = x
		pos[i*4+1] = y
		pos[i*4+2] = z
		pos[i*4+3] = float32(1 + rng.Float64()*4)

		speed := 1.0 / math.Sqrt(radius)
		vel[i*4+0] = float32(-speed * math.Sin(angle))
		vel[i*4+1] = float32(speed * math.Cos(angle))
	}
	return pos, vel, n
}
