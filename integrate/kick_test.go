package integrate

import (
	"math"
	"testing"

	"github.com/oyin-bo/three-g-sub003/particles"
)

func TestKickAppliesForceAndDt(t *testing.T) {
	ps, err := particles.New(1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	ps.SetPositionMass(0, 0, 0, 0, 1)
	ps.SetVelocity(0, 1, 0, 0)

	f := particles.NewForce(1, 1)
	f.Set(0, 2, 0, 0)

	k := &Kick{Dt: 0.5, Input: ps, Forces: f}
	if err := k.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	v := k.Output.Velocity3(0)
	if math.Abs(float64(v[0]-2)) > 1e-6 {
		t.Errorf("vx = %v, want 2 (1 + 2*0.5)", v[0])
	}
}

func TestKickClampsMaxAccelAndMaxSpeed(t *testing.T) {
	ps, _ := particles.New(1, 1, 1)
	ps.SetPositionMass(0, 0, 0, 0, 1)
	f := particles.NewForce(1, 1)
	f.Set(0, 100, 0, 0)

	k := &Kick{Dt: 1, MaxAccel: 5, MaxSpeed: 3, Input: ps, Forces: f}
	if err := k.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	v := k.Output.Velocity3(0)
	mag := math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2]))
	if mag > 3.0001 {
		t.Errorf("expected speed clamped to 3, got %v", mag)
	}
}

func TestKickFreezesNaNVelocity(t *testing.T) {
	ps, _ := particles.New(1, 1, 1)
	ps.SetPositionMass(0, 0, 0, 0, 1)
	ps.SetVelocity(0, float32(math.NaN()), 0, 0)
	f := particles.NewForce(1, 1)
	f.Set(0, 5, 0, 0)

	k := &Kick{Dt: 1, Input: ps, Forces: f}
	if err := k.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	v := k.Output.Velocity3(0)
	if !math.IsNaN(float64(v[0])) {
		t.Errorf("expected NaN velocity to remain frozen, got %v", v[0])
	}
}

func TestKickDampingReducesSpeed(t *testing.T) {
	ps, _ := particles.New(1, 1, 1)
	ps.SetPositionMass(0, 0, 0, 0, 1)
	ps.SetVelocity(0, 10, 0, 0)
	f := particles.NewForce(1, 1)

	k := &Kick{Dt: 1, Damping: 0.1, Input: ps, Forces: f}
	if err := k.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	v := k.Output.Velocity3(0)
	if math.Abs(float64(v[0]-9)) > 1e-4 {
		t.Errorf("vx = %v, want 9 (10*0.9)", v[0])
	}
}
