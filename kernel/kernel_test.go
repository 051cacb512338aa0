package kernel

import (
	"errors"
	"testing"

	"github.com/oyin-bo/three-g-sub003/layout"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := ErrInvalidState("K-Deposit", "missing particle texture")
	if !errors.Is(err, IsInvalidState) {
		t.Error("expected errors.Is to match on Kind")
	}
	if errors.Is(err, IsCapacityExceeded) {
		t.Error("expected errors.Is to reject different Kind")
	}
}

func TestEnsureTextureAllocatesWhenNil(t *testing.T) {
	p := layout.Cube(4, 2)
	tex := EnsureTexture(nil, p, 4)
	if tex == nil {
		t.Fatal("expected allocated texture")
	}
	if !tex.Owned() {
		t.Error("expected EnsureTexture-allocated texture to be owned")
	}

	existing := layout.NewTexture(p, 4)
	got := EnsureTexture(existing, p, 4)
	if got != existing {
		t.Error("expected EnsureTexture to return the supplied texture unchanged")
	}
}

func TestCheckNoFeedback(t *testing.T) {
	p := layout.Cube(4, 1)
	tex := layout.NewTexture(p, 2)
	if err := CheckNoFeedback("K-FFT", tex, tex); err == nil {
		t.Error("expected feedback-loop error when output aliases input")
	}
	other := layout.NewTexture(p, 2)
	if err := CheckNoFeedback("K-FFT", tex, other); err != nil {
		t.Errorf("expected no error for distinct buffers, got %v", err)
	}
}

func TestClampMag(t *testing.T) {
	x, y, z := ClampMag(3, 4, 0, 2.5)
	mag := x*x + y*y + z*z
	if mag > 2.5*2.5+1e-4 {
		t.Errorf("expected clamped magnitude <= 2.5, got %f", mag)
	}
	x2, y2, z2 := ClampMag(1, 0, 0, 2.5)
	if x2 != 1 || y2 != 0 || z2 != 0 {
		t.Error("expected vector under the cap to be unchanged")
	}
}
