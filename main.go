// Command three-g-sub003 runs a gravity simulation scene to completion
// (or indefinitely), either headless for batch/benchmark use or in a
// raylib window for a quick look, writing conservation/perf/anomaly
// telemetry to an output directory as it goes.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/oyin-bo/three-g-sub003/bounds"
	"github.com/oyin-bo/three-g-sub003/config"
	"github.com/oyin-bo/three-g-sub003/gravity"
	"github.com/oyin-bo/three-g-sub003/particles"
	"github.com/oyin-bo/three-g-sub003/telemetry"
)

var (
	configPath = flag.String("config", "", "Config YAML file (empty = embedded defaults)")
	pipeline   = flag.String("pipeline", "tree", "Orchestrator to run: mesh or tree")
	sceneName  = flag.String("scene", "cluster", "Initial condition: cluster, two-body, or grid")
	particleN  = flag.Int("particles", 512, "Particle count for the cluster/grid scenes")
	seed       = flag.Int64("seed", 1, "RNG seed for the cluster scene")
	outputDir  = flag.String("output", "", "Telemetry output directory (empty = disabled)")
	logFile    = flag.String("logfile", "", "Write progress logs to file instead of stdout")
	headless   = flag.Bool("headless", false, "Run without graphics (for logging/benchmarking)")
	maxTicks   = flag.Int("max-ticks", 0, "Stop after N ticks (0 = run forever, useful with -headless)")
	driftAlarm = flag.Float64("drift-threshold", 0.05, "|ΔE/E0| that triggers an energy-drift anomaly")
	logWriter  *os.File
)

// orchestrator is the subset of gravity.Mesh/gravity.Tree the run loop
// drives; telemetry reads CurrentPositions/CurrentVelocities directly
// rather than through this interface, since each concrete type's fields
// line up with what wrapSet needs.
type orchestrator interface {
	Step() error
	Dispose()
}

func main() {
	flag.Parse()

	if *logFile != "" {
		var err error
		logWriter, err = os.Create(*logFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log file: %v\n", err)
			os.Exit(1)
		}
		defer logWriter.Close()
	}

	if err := config.Init(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	pos, vel, count := sceneFixture(*sceneName, *particleN, *seed)
	scene := gravity.Config{
		Positions:     pos,
		Velocities:    vel,
		ParticleCount: count,
		TexWidth:      count,
		TexHeight:     1,
		WorldBounds:   bounds.Box{Min: [3]float32{-64, -64, -64}, Max: [3]float32{64, 64, 64}},
	}
	gcfg := cfg.GravityConfig(scene)

	om, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up output: %v\n", err)
		os.Exit(1)
	}
	defer om.Close()
	om.WriteConfig(cfg)

	var o orchestrator
	var positions func() []float32
	var velocities func() []float32

	switch *pipeline {
	case "mesh":
		m, err := gravity.NewMesh(gcfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to build mesh orchestrator: %v\n", err)
			os.Exit(1)
		}
		defer m.Dispose()
		o = m
		positions = m.CurrentPositions
		velocities = m.CurrentVelocities
	default:
		t, err := gravity.NewTree(gcfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to build tree orchestrator: %v\n", err)
			os.Exit(1)
		}
		defer t.Dispose()
		o = t
		positions = t.CurrentPositions
		velocities = t.CurrentVelocities
	}

	run := &runner{
		o:          o,
		gcfg:       gcfg,
		positions:  positions,
		velocities: velocities,
		om:         om,
		stats:      telemetry.NewConservationStats(cfg.Telemetry.PerfCollectorWindow),
		perf:       telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		anomalies:  telemetry.NewAnomalyDetector(*driftAlarm),
	}

	if *headless {
		run.runHeadless()
		return
	}

	rl.InitWindow(800, 600, "three-g-sub003")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	for !rl.WindowShouldClose() {
		if err := run.step(); err != nil {
			logf("step %d failed: %v", run.tick, err)
			break
		}
		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)
		run.draw()
		rl.EndDrawing()
		if *maxTicks > 0 && int(run.tick) >= *maxTicks {
			break
		}
	}
}

// runner owns a single orchestrator's run loop: stepping, telemetry
// recording, and anomaly/CSV output, independent of whether the caller
// drives it headlessly or inside a raylib frame loop.
type runner struct {
	o          orchestrator
	gcfg       gravity.Config
	positions  func() []float32
	velocities func() []float32

	om        *telemetry.OutputManager
	stats     *telemetry.ConservationStats
	perf      *telemetry.PerfCollector
	anomalies *telemetry.AnomalyDetector

	tick int32
}

// step advances the orchestrator once and records its telemetry.
func (r *runner) step() error {
	r.perf.StartTick()
	if err := r.o.Step(); err != nil {
		return err
	}
	r.perf.EndTick()
	r.tick++

	p := r.wrapSet()
	sample := r.stats.Record(r.tick, float64(r.tick)*float64(r.gcfg.Dt), p, r.gcfg.GravityStrength, r.gcfg.Softening, 2000)
	r.om.WriteTelemetry(sample)

	if a := r.anomalies.CheckDrift(sample); a != nil {
		a.LogAnomaly()
		r.om.WriteAnomaly(*a)
	}

	return nil
}

// wrapSet adapts the orchestrator's raw buffers into a particles.Set
// view for telemetry, without copying.
func (r *runner) wrapSet() *particles.Set {
	return &particles.Set{
		W:            r.gcfg.TexWidth,
		H:            r.gcfg.TexHeight,
		Count:        r.gcfg.ParticleCount,
		PositionMass: r.positions(),
		Velocity:     r.velocities(),
	}
}

// draw renders current particle positions as points projected onto the
// XY plane, scaled to fit the window; a quick look, not a polished view
// (cmd/fieldpreview covers the latter).
func (r *runner) draw() {
	pos := r.positions()
	b := r.gcfg.WorldBounds
	size := b.Size()
	for i := 0; i+3 < len(pos); i += 4 {
		if pos[i+3] <= 0 {
			continue
		}
		u := (pos[i] - b.Min[0]) / size[0]
		v := (pos[i+1] - b.Min[1]) / size[1]
		px := int32(u * 800)
		py := int32(v * 600)
		rl.DrawCircle(px, py, 2, rl.Blue)
	}
	rl.DrawText(fmt.Sprintf("tick %d", r.tick), 10, 10, 18, rl.DarkGray)
}

// runHeadless advances the orchestrator without graphics, reporting
// progress every 10 seconds and honoring -max-ticks.
func (r *runner) runHeadless() {
	logf("Starting headless run (pipeline=%s)...", *pipeline)
	logf("  Particles: %d, max ticks: %d", r.gcfg.ParticleCount, *maxTicks)
	if r.om != nil {
		logf("  Output: %s", r.om.Dir())
	}
	logf("")

	startTime := time.Now()
	lastReport := startTime
	reportInterval := 10 * time.Second

	for {
		if *maxTicks > 0 && int(r.tick) >= *maxTicks {
			logf("Reached max ticks (%d), stopping.", *maxTicks)
			break
		}

		if err := r.step(); err != nil {
			logf("step %d failed: %v", r.tick, err)
			break
		}

		if time.Since(lastReport) >= reportInterval {
			elapsed := time.Since(startTime)
			ticksPerSec := float64(r.tick) / elapsed.Seconds()
			drift := r.stats.Latest().EnergyDrift
			logf("[PROGRESS] Tick %d | %.0f ticks/sec | drift %.4f | elapsed: %s",
				r.tick, ticksPerSec, drift, elapsed.Round(time.Second))
			r.om.WritePerf(r.perf.Stats(), r.tick)
			lastReport = time.Now()
		}
	}

	elapsed := time.Since(startTime)
	logf("")
	logf("Run complete.")
	logf("  Total ticks: %d", r.tick)
	logf("  Elapsed time: %s", elapsed.Round(time.Millisecond))
	logf("  Final drift: %.6f", r.stats.Latest().EnergyDrift)
	r.om.WritePerf(r.perf.Stats(), r.tick)
}

func logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if logWriter != nil {
		fmt.Fprintln(logWriter, msg)
	} else {
		fmt.Println(msg)
	}
}

// sceneFixture builds one of the fixed initial conditions named by
// -scene: a clustered cloud of n orbiting particles, a symmetric
// two-body pair, or a uniform grid.
func sceneFixture(name string, n int, seed int64) ([]float32, []float32, int) {
	switch name {
	case "two-body":
		return []float32{
			-8, 0, 0, 1000,
			8, 0, 0, 1000,
		}, make([]float32, 8), 2

	case "grid":
		var pos []float32
		side := 1
		for side*side*side < n {
			side++
		}
		half := float32(side-1) / 2
		for i := 0; i < side; i++ {
			for j := 0; j < side; j++ {
				for k := 0; k < side; k++ {
					pos = append(pos,
						(float32(i)-half)*4,
						(float32(j)-half)*4,
						(float32(k)-half)*4,
						1)
				}
			}
		}
		return pos, make([]float32, len(pos)), side * side * side

	default: // cluster
		pos := make([]float32, n*4)
		vel := make([]float32, n*4)
		rng := rand.New(rand.NewSource(seed))
		for i := 0; i < n; i++ {
			angle := rng.Float64() * 2 * math.Pi
			radius := 4 + rng.Float64()*24
			x := float32(radius * math.Cos(angle))
			y := float32(radius * math.Sin(angle))
			z := float32((rng.Float64() - 0.5) * 4)

			pos[i*4+0] = x
			pos[i*4+1] = y
			pos[i*4+2] = z
			pos[i*4+3] = float32(1 + rng.Float64()*4)

			speed := 2.0 / math.Sqrt(radius)
			vel[i*4+0] = float32(-speed * math.Sin(angle))
			vel[i*4+1] = float32(speed * math.Cos(angle))
		}
		return pos, vel, n
	}
}
