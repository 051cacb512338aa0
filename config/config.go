// Package config provides configuration loading and access for the
// gravity simulation, using an embedded-defaults/global-singleton
// pattern.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/oyin-bo/three-g-sub003/gravity"
	"github.com/oyin-bo/three-g-sub003/mesh"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds every simulation parameter, grouped the way the YAML
// file groups them.
type Config struct {
	Physics   PhysicsConfig   `yaml:"physics"`
	Mesh      MeshConfig      `yaml:"mesh"`
	Tree      TreeConfig      `yaml:"tree"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PhysicsConfig holds the parameters common to both orchestrators.
type PhysicsConfig struct {
	Dt              float64 `yaml:"dt"`
	GravityStrength float64 `yaml:"gravity_strength"`
	Softening       float64 `yaml:"softening"`
	Damping         float64 `yaml:"damping"`
	MaxSpeed        float64 `yaml:"max_speed"`
	MaxAccel        float64 `yaml:"max_accel"`
	Integrator      string  `yaml:"integrator"` // "euler" or "kdk"
}

// MeshConfig holds the PM-pipeline-only parameters.
type MeshConfig struct {
	Assignment      string  `yaml:"assignment"` // "ngp" or "cic"
	GridSize        int     `yaml:"grid_size"`
	SlicesPerRow    int     `yaml:"slices_per_row"`
	Split           string  `yaml:"split"` // "none", "sharp", or "gaussian"
	KCut            float64 `yaml:"k_cut"`
	SplitSigma      float64 `yaml:"split_sigma"`
	NearFieldRadius int     `yaml:"near_field_radius"`
}

// TreeConfig holds the Barnes-Hut-pipeline-only parameters.
type TreeConfig struct {
	Theta              float64 `yaml:"theta"`
	NumLevels          int     `yaml:"num_levels"`
	SlicesPerRow       int     `yaml:"slices_per_row"`
	UseOccupancyMasks  bool    `yaml:"use_occupancy_masks"`
	BoundsUpdatePeriod int     `yaml:"bounds_update_period"`
	NearFieldRadius    int     `yaml:"near_field_radius"`
}

// TelemetryConfig holds telemetry collector window sizes.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	BookmarkHistorySize int     `yaml:"bookmark_history_size"`
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults
// if path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	return cfg, nil
}

func parseAssignment(s string) mesh.Assignment {
	if s == "cic" {
		return mesh.CIC
	}
	return mesh.NGP
}

func parseSplit(s string) mesh.SplitMode {
	switch s {
	case "sharp":
		return mesh.SharpCutoff
	case "gaussian":
		return mesh.Gaussian
	default:
		return mesh.NoSplit
	}
}

func parseIntegrator(s string) gravity.Integrator {
	if s == "euler" {
		return gravity.EulerIntegrator
	}
	return gravity.KDKIntegrator
}

// GravityConfig builds a gravity.Config for either orchestrator from c's
// physics/mesh/tree sections plus the particle state and world bounds,
// which a YAML file has no natural place for (they come from a scene
// loader, not static configuration). scene carries the fields a YAML file
// can't: positions, velocities, counts, and world bounds.
func (c *Config) GravityConfig(scene gravity.Config) gravity.Config {
	g := scene

	g.Dt = float32(c.Physics.Dt)
	g.GravityStrength = float32(c.Physics.GravityStrength)
	g.Softening = float32(c.Physics.Softening)
	g.Damping = float32(c.Physics.Damping)
	g.MaxSpeed = float32(c.Physics.MaxSpeed)
	g.MaxAccel = float32(c.Physics.MaxAccel)
	g.Integrator = parseIntegrator(c.Physics.Integrator)

	g.MeshAssignment = parseAssignment(c.Mesh.Assignment)
	g.MeshGridSize = c.Mesh.GridSize
	g.MeshSlicesPerRow = c.Mesh.SlicesPerRow
	g.MeshSplit = parseSplit(c.Mesh.Split)
	g.MeshKCut = float32(c.Mesh.KCut)
	g.MeshSplitSigma = float32(c.Mesh.SplitSigma)
	if c.Mesh.NearFieldRadius > 0 {
		g.NearFieldRadius = c.Mesh.NearFieldRadius
	}

	g.Theta = float32(c.Tree.Theta)
	g.TreeNumLevels = c.Tree.NumLevels
	if c.Tree.NumLevels > 0 {
		g.TreeGridSize = 1 << uint(c.Tree.NumLevels-1)
	}
	g.TreeSlicesPerRow = c.Tree.SlicesPerRow
	g.TreeUseOccupancy = c.Tree.UseOccupancyMasks
	g.BoundsUpdatePeriod = c.Tree.BoundsUpdatePeriod
	if c.Tree.NearFieldRadius > 0 {
		g.NearFieldRadius = c.Tree.NearFieldRadius
	}

	return g
}
