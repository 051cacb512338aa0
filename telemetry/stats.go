package telemetry

import (
	"log/slog"
	"math"

	"github.com/oyin-bo/three-g-sub003/particles"
)

// ConservationSample holds one step's conservation quantities.
type ConservationSample struct {
	Step      int32   `csv:"step"`
	SimTime   float64 `csv:"sim_time"`
	Particles int     `csv:"particles"`

	KineticEnergy   float64 `csv:"kinetic_energy"`
	PotentialEnergy float64 `csv:"potential_energy"`
	TotalEnergy     float64 `csv:"total_energy"`
	EnergyDrift     float64 `csv:"energy_drift"` // |ΔE/E0|

	MomentumX float64 `csv:"momentum_x"`
	MomentumY float64 `csv:"momentum_y"`
	MomentumZ float64 `csv:"momentum_z"`
	MomentumMag float64 `csv:"momentum_mag"`

	TotalMass float64 `csv:"total_mass"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s ConservationSample) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("step", int(s.Step)),
		slog.Float64("sim_time", s.SimTime),
		slog.Int("particles", s.Particles),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Float64("potential_energy", s.PotentialEnergy),
		slog.Float64("total_energy", s.TotalEnergy),
		slog.Float64("energy_drift", s.EnergyDrift),
		slog.Float64("momentum_mag", s.MomentumMag),
		slog.Float64("total_mass", s.TotalMass),
	)
}

// LogStats logs the sample using slog.
func (s ConservationSample) LogStats() {
	slog.Info("conservation",
		"step", s.Step,
		"sim_time", s.SimTime,
		"particles", s.Particles,
		"kinetic_energy", s.KineticEnergy,
		"potential_energy", s.PotentialEnergy,
		"total_energy", s.TotalEnergy,
		"energy_drift", s.EnergyDrift,
		"momentum_mag", s.MomentumMag,
		"total_mass", s.TotalMass,
	)
}

// ConservationStats tracks energy and momentum conservation over a rolling
// window, directly operationalizing the energy-drift property as a
// runtime-observable metric rather than just a test assertion.
type ConservationStats struct {
	windowSize int
	samples    []ConservationSample
	writeIndex int
	sampleCount int

	e0    float64 // total energy at the first recorded sample
	e0Set bool
}

// NewConservationStats creates a conservation tracker with the given
// rolling window size.
func NewConservationStats(windowSize int) *ConservationStats {
	if windowSize < 1 {
		windowSize = 120
	}
	return &ConservationStats{
		windowSize: windowSize,
		samples:    make([]ConservationSample, windowSize),
	}
}

// potentialEnergyPairwise estimates total potential energy -G*sum(m_i*m_j/r)
// over all unordered active pairs, sampling at most maxSample particles
// when the active count exceeds it (the tree pipeline has no readily
// summable potential grid the way the mesh pipeline's Poisson output
// does, so both pipelines share this direct estimator for uniformity).
func potentialEnergyPairwise(p *particles.Set, g, softening float32, maxSample int) float64 {
	active := make([]int, 0, p.Slots())
	for i := 0; i < p.Slots(); i++ {
		if p.Active(i) {
			active = append(active, i)
		}
	}
	if len(active) > maxSample {
		stride := (len(active) + maxSample - 1) / maxSample
		if stride < 1 {
			stride = 1
		}
		sampled := active[:0:0]
		for i := 0; i < len(active); i += stride {
			sampled = append(sampled, active[i])
		}
		active = sampled
	}

	soft2 := float64(softening) * float64(softening)
	var pe float64
	for a := 0; a < len(active); a++ {
		ia := active[a]
		pa := p.Position(ia)
		ma := float64(p.Mass(ia))
		for b := a + 1; b < len(active); b++ {
			ib := active[b]
			pb := p.Position(ib)
			mb := float64(p.Mass(ib))

			dx := float64(pa[0] - pb[0])
			dy := float64(pa[1] - pb[1])
			dz := float64(pa[2] - pb[2])
			r := math.Sqrt(dx*dx+dy*dy+dz*dz+soft2)
			if r == 0 {
				continue
			}
			pe -= float64(g) * ma * mb / r
		}
	}

	// scale back up if we subsampled, to approximate the full-population value
	n := 0
	for i := 0; i < p.Slots(); i++ {
		if p.Active(i) {
			n++
		}
	}
	if len(active) > 1 && len(active) < n {
		scale := float64(n*(n-1)) / float64(len(active)*(len(active)-1))
		pe *= scale
	}
	return pe
}

// Record computes a ConservationSample from the given particle state and
// appends it to the rolling window.
func (c *ConservationStats) Record(step int32, simTime float64, p *particles.Set, g, softening float32, maxSample int) ConservationSample {
	ke := p.KineticEnergy()
	pe := potentialEnergyPairwise(p, g, softening, maxSample)
	total := ke + pe

	if !c.e0Set {
		c.e0 = total
		c.e0Set = true
	}

	var drift float64
	if c.e0 != 0 {
		drift = math.Abs((total - c.e0) / c.e0)
	}

	mom := p.Momentum()
	momMag := math.Sqrt(mom[0]*mom[0] + mom[1]*mom[1] + mom[2]*mom[2])

	sample := ConservationSample{
		Step:            step,
		SimTime:         simTime,
		Particles:       p.Count,
		KineticEnergy:   ke,
		PotentialEnergy: pe,
		TotalEnergy:     total,
		EnergyDrift:     drift,
		MomentumX:       mom[0],
		MomentumY:       mom[1],
		MomentumZ:       mom[2],
		MomentumMag:     momMag,
		TotalMass:       p.TotalMass(),
	}

	c.samples[c.writeIndex] = sample
	c.writeIndex = (c.writeIndex + 1) % c.windowSize
	if c.sampleCount < c.windowSize {
		c.sampleCount++
	}

	return sample
}

// Latest returns the most recently recorded sample, or the zero value if
// none has been recorded yet.
func (c *ConservationStats) Latest() ConservationSample {
	if c.sampleCount == 0 {
		return ConservationSample{}
	}
	idx := (c.writeIndex - 1 + c.windowSize) % c.windowSize
	return c.samples[idx]
}

// MaxDrift returns the largest |ΔE/E0| seen across the current window.
func (c *ConservationStats) MaxDrift() float64 {
	var max float64
	for i := 0; i < c.sampleCount; i++ {
		if d := c.samples[i].EnergyDrift; d > max {
			max = d
		}
	}
	return max
}
