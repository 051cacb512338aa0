package telemetry

import (
	"math"
	"testing"

	"github.com/oyin-bo/three-g-sub003/particles"
)

func twoBodySet(t *testing.T) *particles.Set {
	t.Helper()
	p, err := particles.New(2, 1, 2)
	if err != nil {
		t.Fatalf("particles.New: %v", err)
	}
	p.SetPositionMass(0, -2, 0, 0, 10)
	p.SetPositionMass(1, 2, 0, 0, 10)
	p.SetVelocity(0, 0, 1, 0)
	p.SetVelocity(1, 0, -1, 0)
	return p
}

func TestConservationStats_RecordsFirstSampleAsBaseline(t *testing.T) {
	cs := NewConservationStats(10)
	p := twoBodySet(t)

	sample := cs.Record(0, 0, p, 1, 0.1, 1000)
	if sample.EnergyDrift != 0 {
		t.Errorf("expected zero drift on the first recorded sample, got %v", sample.EnergyDrift)
	}
	if sample.KineticEnergy <= 0 {
		t.Errorf("expected positive kinetic energy, got %v", sample.KineticEnergy)
	}
	if sample.PotentialEnergy >= 0 {
		t.Errorf("expected negative potential energy for an attracting pair, got %v", sample.PotentialEnergy)
	}
}

func TestConservationStats_MomentumIsZeroForSymmetricPair(t *testing.T) {
	cs := NewConservationStats(10)
	p := twoBodySet(t)

	sample := cs.Record(0, 0, p, 1, 0.1, 1000)
	if math.Abs(sample.MomentumMag) > 1e-6 {
		t.Errorf("expected zero net momentum for equal-and-opposite velocities, got %v", sample.MomentumMag)
	}
}

func TestConservationStats_DriftTracksDeviationFromBaseline(t *testing.T) {
	cs := NewConservationStats(10)
	p := twoBodySet(t)

	cs.Record(0, 0, p, 1, 0.1, 1000)

	// perturb velocities to inject energy
	p.SetVelocity(0, 0, 5, 0)
	p.SetVelocity(1, 0, -5, 0)

	sample := cs.Record(1, 0.01, p, 1, 0.1, 1000)
	if sample.EnergyDrift <= 0 {
		t.Errorf("expected positive drift after injecting energy, got %v", sample.EnergyDrift)
	}

	if cs.MaxDrift() != sample.EnergyDrift {
		t.Errorf("expected MaxDrift to reflect the worst sample, got %v want %v", cs.MaxDrift(), sample.EnergyDrift)
	}
}

func TestConservationStats_Latest(t *testing.T) {
	cs := NewConservationStats(3)
	p := twoBodySet(t)

	for i := int32(0); i < 5; i++ {
		cs.Record(i, float64(i)*0.01, p, 1, 0.1, 1000)
	}

	if cs.Latest().Step != 4 {
		t.Errorf("expected latest sample to be step 4, got %v", cs.Latest().Step)
	}
}
