package telemetry

import (
	"fmt"
	"log/slog"
)

// AnomalyType identifies the kind of notable episode detected.
type AnomalyType string

const (
	AnomalyEnergyDrift   AnomalyType = "energy_drift"
	AnomalyNumericWarning AnomalyType = "numeric_warning"
	AnomalyDeviceLost    AnomalyType = "device_lost"
)

// Anomaly represents an automatically detected notable episode during a
// long run, generalized from ecosystem bookmarks to simulation-health
// events: excessive energy drift, a NumericWarning kernel error, or a
// DeviceLost kernel error.
type Anomaly struct {
	Type        AnomalyType
	Step        int32
	Description string
}

// LogAnomaly logs the anomaly using slog.
func (a Anomaly) LogAnomaly() {
	slog.Warn("anomaly",
		"type", string(a.Type),
		"step", a.Step,
		"description", a.Description,
	)
}

// AnomalyDetector watches conservation samples and kernel errors for
// notable episodes worth recording during a long run.
type AnomalyDetector struct {
	driftThreshold float64
	triggered      bool // latches once drift crosses the threshold, so it fires once per excursion
}

// NewAnomalyDetector creates a detector that fires when |ΔE/E0| exceeds
// driftThreshold.
func NewAnomalyDetector(driftThreshold float64) *AnomalyDetector {
	if driftThreshold <= 0 {
		driftThreshold = 0.05
	}
	return &AnomalyDetector{driftThreshold: driftThreshold}
}

// CheckDrift inspects a conservation sample and returns a non-nil anomaly
// if the energy drift just crossed the configured threshold.
func (d *AnomalyDetector) CheckDrift(sample ConservationSample) *Anomaly {
	if sample.EnergyDrift > d.driftThreshold {
		if d.triggered {
			return nil
		}
		d.triggered = true
		return &Anomaly{
			Type: AnomalyEnergyDrift,
			Step: sample.Step,
			Description: fmt.Sprintf("energy drift %.4f exceeded threshold %.4f",
				sample.EnergyDrift, d.driftThreshold),
		}
	}
	d.triggered = false
	return nil
}

// NumericWarningAnomaly builds an anomaly from a kernel.NumericWarning error.
func NumericWarningAnomaly(step int32, msg string) Anomaly {
	return Anomaly{Type: AnomalyNumericWarning, Step: step, Description: msg}
}

// DeviceLostAnomaly builds an anomaly from a kernel.DeviceLost error.
func DeviceLostAnomaly(step int32, msg string) Anomaly {
	return Anomaly{Type: AnomalyDeviceLost, Step: step, Description: msg}
}
