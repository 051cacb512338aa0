package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for a simulation step.
const (
	PhaseDeposit    = "deposit"
	PhaseAggregate  = "aggregate"
	PhaseFFTForward = "fft_forward"
	PhasePoisson    = "poisson"
	PhaseGradient   = "gradient"
	PhaseFFTInverse = "fft_inverse"
	PhaseForceSample = "force_sample"
	PhaseNearField  = "near_field"
	PhasePyramid    = "pyramid"
	PhaseTraversal  = "traversal"
	PhaseBoundsReduce = "bounds_reduce"
	PhaseIntegrate  = "integrate"
)

// PerfSample holds timing data for a single step.
type PerfSample struct {
	TickDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks performance metrics over a rolling window.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	tickStart     time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of steps to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartTick begins timing a new simulation step.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a specific kernel phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndTick finishes timing the current step and records the sample.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	sample := PerfSample{
		TickDuration: now.Sub(p.tickStart),
		Phases:       p.currentPhases,
	}

	p.samples[p.writeIndex] = sample
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics over the window.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	StepsPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var totalTick time.Duration
	var minTick, maxTick time.Duration
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		totalTick += s.TickDuration

		if i == 0 || s.TickDuration < minTick {
			minTick = s.TickDuration
		}
		if s.TickDuration > maxTick {
			maxTick = s.TickDuration
		}

		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avgTick := totalTick / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avgTick > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avgTick) * 100
		}
	}

	var stepsPerSec float64
	if avgTick > 0 {
		stepsPerSec = float64(time.Second) / float64(avgTick)
	}

	return PerfStats{
		AvgTickDuration: avgTick,
		MinTickDuration: minTick,
		MaxTickDuration: maxTick,
		PhaseAvg:        phaseAvg,
		PhasePct:        phasePct,
		StepsPerSecond:  stepsPerSec,
	}
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"min_tick_us", s.MinTickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"steps_per_sec", int(s.StepsPerSecond),
	}

	phases := []string{
		PhaseDeposit, PhaseAggregate, PhaseFFTForward, PhasePoisson,
		PhaseGradient, PhaseFFTInverse, PhaseForceSample, PhaseNearField,
		PhasePyramid, PhaseTraversal, PhaseBoundsReduce, PhaseIntegrate,
	}

	for _, phase := range phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}

	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("steps_per_sec", s.StepsPerSecond),
	}

	for phase, pct := range s.PhasePct {
		attrs = append(attrs, slog.Float64(phase+"_pct", pct))
	}

	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd       int32   `csv:"window_end"`
	AvgTickUS       int64   `csv:"avg_tick_us"`
	MinTickUS       int64   `csv:"min_tick_us"`
	MaxTickUS       int64   `csv:"max_tick_us"`
	StepsPerSec     float64 `csv:"steps_per_sec"`
	DepositPct      float64 `csv:"deposit_pct"`
	AggregatePct    float64 `csv:"aggregate_pct"`
	FFTForwardPct   float64 `csv:"fft_forward_pct"`
	PoissonPct      float64 `csv:"poisson_pct"`
	GradientPct     float64 `csv:"gradient_pct"`
	FFTInversePct   float64 `csv:"fft_inverse_pct"`
	ForceSamplePct  float64 `csv:"force_sample_pct"`
	NearFieldPct    float64 `csv:"near_field_pct"`
	PyramidPct      float64 `csv:"pyramid_pct"`
	TraversalPct    float64 `csv:"traversal_pct"`
	BoundsReducePct float64 `csv:"bounds_reduce_pct"`
	IntegratePct    float64 `csv:"integrate_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:       windowEnd,
		AvgTickUS:       s.AvgTickDuration.Microseconds(),
		MinTickUS:       s.MinTickDuration.Microseconds(),
		MaxTickUS:       s.MaxTickDuration.Microseconds(),
		StepsPerSec:     s.StepsPerSecond,
		DepositPct:      s.PhasePct[PhaseDeposit],
		AggregatePct:    s.PhasePct[PhaseAggregate],
		FFTForwardPct:   s.PhasePct[PhaseFFTForward],
		PoissonPct:      s.PhasePct[PhasePoisson],
		GradientPct:     s.PhasePct[PhaseGradient],
		FFTInversePct:   s.PhasePct[PhaseFFTInverse],
		ForceSamplePct:  s.PhasePct[PhaseForceSample],
		NearFieldPct:    s.PhasePct[PhaseNearField],
		PyramidPct:      s.PhasePct[PhasePyramid],
		TraversalPct:    s.PhasePct[PhaseTraversal],
		BoundsReducePct: s.PhasePct[PhaseBoundsReduce],
		IntegratePct:    s.PhasePct[PhaseIntegrate],
	}
}
