package mesh

import (
	"math"
	"testing"

	"github.com/oyin-bo/three-g-sub003/layout"
)

// TestGradientMatchesAnalyticDerivative places a smooth potential
// phi(x)=cos(2*pi*x/L) (constant in y,z) on the grid, runs it through
// forward FFT -> K-Gradient -> inverse FFT, and checks the recovered
// real-space force against the analytic force F=-d(phi)/dx.
func TestGradientMatchesAnalyticDerivative(t *testing.T) {
	n := 32
	pl := layout.Cube(n, 1)
	phi := layout.NewTexture(pl, 1)
	for vz := 0; vz < n; vz++ {
		for vy := 0; vy < n; vy++ {
			for vx := 0; vx < n; vx++ {
				v := float32(math.Cos(2 * math.Pi * float64(vx) / float64(n)))
				phi.Set(vx, vy, vz, []float32{v})
			}
		}
	}

	fwd, err := NewFFT(n, 1, 0)
	if err != nil {
		t.Fatalf("NewFFT: %v", err)
	}
	fwd.InputReal = phi
	if err := fwd.Run(Forward); err != nil {
		t.Fatalf("forward: %v", err)
	}

	world := [3]float32{float32(n), float32(n), float32(n)}
	grad := &Gradient{N: n, SlicesRow: 1, WorldSize: world, UseDiscrete: false, Input: fwd.Output}
	if err := grad.Run(); err != nil {
		t.Fatalf("gradient: %v", err)
	}

	invX, _ := NewFFT(n, 1, 0)
	invX.InputSpectrum = grad.OutputX
	if err := invX.Run(Inverse); err != nil {
		t.Fatalf("inverse x: %v", err)
	}
	invY, _ := NewFFT(n, 1, 0)
	invY.InputSpectrum = grad.OutputY
	if err := invY.Run(Inverse); err != nil {
		t.Fatalf("inverse y: %v", err)
	}

	var maxErr float32
	var maxY float32
	for vx := 0; vx < n; vx++ {
		var fx [1]float32
		invX.Output.At(vx, 0, 0, fx[:])
		theta := 2 * math.Pi * float64(vx) / float64(n)
		analytic := float32((2 * math.Pi / float64(n)) * math.Sin(theta))
		if e := abs32(fx[0] - analytic); e > maxErr {
			maxErr = e
		}

		var fy [1]float32
		invY.Output.At(vx, 0, 0, fy[:])
		if e := abs32(fy[0]); e > maxY {
			maxY = e
		}
	}
	if maxErr > 1e-3 {
		t.Errorf("gradient vs analytic derivative: max error %v exceeds 1e-3", maxErr)
	}
	if maxY > 1e-3 {
		t.Errorf("expected near-zero y-force for a field constant in y, got max %v", maxY)
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
