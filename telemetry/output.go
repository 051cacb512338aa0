package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

// OutputManager handles structured simulation-run output with CSV logging.
type OutputManager struct {
	dir           string
	telemetryFile *os.File
	perfFile      *os.File
	anomalyFile   *os.File

	// Track if headers have been written
	telemetryHeaderWritten bool
	perfHeaderWritten      bool
	anomalyHeaderWritten   bool
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	// Create output directory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	// Open telemetry.csv
	telemetryPath := filepath.Join(dir, "telemetry.csv")
	f, err := os.Create(telemetryPath)
	if err != nil {
		return nil, fmt.Errorf("creating telemetry.csv: %w", err)
	}
	om.telemetryFile = f

	// Open perf.csv
	perfPath := filepath.Join(dir, "perf.csv")
	f, err = os.Create(perfPath)
	if err != nil {
		om.telemetryFile.Close()
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	om.perfFile = f

	// Open anomalies.csv
	anomalyPath := filepath.Join(dir, "anomalies.csv")
	f, err = os.Create(anomalyPath)
	if err != nil {
		om.telemetryFile.Close()
		om.perfFile.Close()
		return nil, fmt.Errorf("creating anomalies.csv: %w", err)
	}
	om.anomalyFile = f

	return om, nil
}

// WriteConfig saves the given configuration as YAML alongside the run's
// CSV output.
func (om *OutputManager) WriteConfig(cfg any) error {
	if om == nil {
		return nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return os.WriteFile(configPath, data, 0644)
}

// WriteTelemetry writes a conservation sample record to telemetry.csv.
func (om *OutputManager) WriteTelemetry(sample ConservationSample) error {
	if om == nil {
		return nil
	}

	records := []ConservationSample{sample}

	if !om.telemetryHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, om.telemetryFile); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		om.telemetryHeaderWritten = true
	} else {
		// Subsequent writes skip headers
		if err := gocsv.MarshalWithoutHeaders(records, om.telemetryFile); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
	}

	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	if om == nil {
		return nil
	}

	csvRecord := stats.ToCSV(windowEnd)
	records := []PerfStatsCSV{csvRecord}

	if !om.perfHeaderWritten {
		if err := gocsv.Marshal(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
		om.perfHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
	}

	return nil
}

// anomalyCSV is a flat CSV-friendly view of Anomaly (AnomalyType is a
// named string, which gocsv round-trips fine, but keeping a dedicated
// record type matches the pattern used for PerfStats).
type anomalyCSV struct {
	Type        string `csv:"type"`
	Step        int32  `csv:"step"`
	Description string `csv:"description"`
}

// WriteAnomaly writes an anomaly record to anomalies.csv.
func (om *OutputManager) WriteAnomaly(a Anomaly) error {
	if om == nil {
		return nil
	}

	records := []anomalyCSV{{Type: string(a.Type), Step: a.Step, Description: a.Description}}

	if !om.anomalyHeaderWritten {
		if err := gocsv.Marshal(records, om.anomalyFile); err != nil {
			return fmt.Errorf("writing anomaly: %w", err)
		}
		om.anomalyHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.anomalyFile); err != nil {
			return fmt.Errorf("writing anomaly: %w", err)
		}
	}

	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error

	if om.telemetryFile != nil {
		if err := om.telemetryFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if om.perfFile != nil {
		if err := om.perfFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if om.anomalyFile != nil {
		if err := om.anomalyFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
