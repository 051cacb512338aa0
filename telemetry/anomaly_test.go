package telemetry

import "testing"

func TestAnomalyDetector_FiresOnceAboveThreshold(t *testing.T) {
	d := NewAnomalyDetector(0.05)

	a := d.CheckDrift(ConservationSample{Step: 1, EnergyDrift: 0.1})
	if a == nil {
		t.Fatal("expected an anomaly when drift exceeds threshold")
	}
	if a.Type != AnomalyEnergyDrift {
		t.Errorf("expected AnomalyEnergyDrift, got %v", a.Type)
	}

	// still above threshold on the next sample: should not refire
	if a2 := d.CheckDrift(ConservationSample{Step: 2, EnergyDrift: 0.12}); a2 != nil {
		t.Errorf("expected no refire while drift remains above threshold, got %v", a2)
	}
}

func TestAnomalyDetector_ResetsAfterDroppingBelowThreshold(t *testing.T) {
	d := NewAnomalyDetector(0.05)

	d.CheckDrift(ConservationSample{Step: 1, EnergyDrift: 0.1})
	if a := d.CheckDrift(ConservationSample{Step: 2, EnergyDrift: 0.01}); a != nil {
		t.Errorf("expected no anomaly while drift is back under threshold, got %v", a)
	}
	a := d.CheckDrift(ConservationSample{Step: 3, EnergyDrift: 0.2})
	if a == nil {
		t.Fatal("expected a new anomaly on a fresh excursion above threshold")
	}
}

func TestAnomalyDetector_NoAnomalyBelowThreshold(t *testing.T) {
	d := NewAnomalyDetector(0.05)
	if a := d.CheckDrift(ConservationSample{Step: 1, EnergyDrift: 0.01}); a != nil {
		t.Errorf("expected no anomaly below threshold, got %v", a)
	}
}
