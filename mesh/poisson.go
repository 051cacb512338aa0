package mesh

import (
	"math"

	"github.com/oyin-bo/three-g-sub003/kernel"
	"github.com/oyin-bo/three-g-sub003/layout"
)

// SplitMode selects how K-Poisson separates long-range (mesh) force from
// the near-field correction.
type SplitMode int

const (
	// NoSplit applies no window; the mesh carries the full long-range force.
	NoSplit SplitMode = iota
	// SharpCutoff zeroes modes with |k| >= KCut.
	SharpCutoff
	// Gaussian applies exp(-sigma^2*|k|^2/2).
	Gaussian
)

// Poisson is K-Poisson: converts a density spectrum to a potential
// spectrum via the Green's function of the Laplacian, undoing the
// assignment-scheme filter and optionally applying a long/short-range split
// window.
type Poisson struct {
	N         int
	SlicesRow int
	WorldSize [3]float32 // L per axis
	G         float32
	Split     SplitMode
	KCut      float32
	Sigma     float32

	DeconvolveOrder int
	UseDiscrete     bool // default true

	Input  *layout.Texture // density spectrum (2 channels)
	Output *layout.Texture // potential spectrum (2 channels)
}

// NewPoisson validates the split-mode parameters at construction, so
// misconfiguration is caught there rather than during a run.
func NewPoisson(n, slicesRow int, worldSize [3]float32, g float32, split SplitMode, kCut, sigma float32, deconvolveOrder int, useDiscrete bool) (*Poisson, error) {
	if split == SharpCutoff && kCut <= 0 {
		return nil, kernel.ErrInvalidConfig("K-Poisson", "sharp cutoff split requires kCut > 0, got %g", kCut)
	}
	if split == Gaussian && sigma <= 0 {
		return nil, kernel.ErrInvalidConfig("K-Poisson", "gaussian split requires sigma > 0, got %g", sigma)
	}
	if deconvolveOrder < 0 {
		return nil, kernel.ErrInvalidConfig("K-Poisson", "deconvolveOrder must be >= 0, got %d", deconvolveOrder)
	}
	return &Poisson{
		N: n, SlicesRow: slicesRow, WorldSize: worldSize, G: g,
		Split: split, KCut: kCut, Sigma: sigma,
		DeconvolveOrder: deconvolveOrder, UseDiscrete: useDiscrete,
	}, nil
}

// wavenumber returns the continuous or discrete-Laplacian wavenumber
// components for voxel (vx,vy,vz), and their combined k^2.
func (p *Poisson) wavenumber(vx, vy, vz int) (kx, ky, kz float64, k2 float64) {
	return waveVector(vx, vy, vz, p.N, p.WorldSize, p.UseDiscrete)
}

// deconvolveFactor returns 1/W(k)^order, the factor that undoes the NGP/CIC
// assignment-scheme smoothing, using the real-space window's Fourier
// transform sinc(pi*n/N) per axis.
func (p *Poisson) deconvolveFactor(vx, vy, vz int) float64 {
	if p.DeconvolveOrder == 0 {
		return 1
	}
	idx := [3]int{vx, vy, vz}
	w := 1.0
	for a := 0; a < 3; a++ {
		n := signedFreq(idx[a], p.N)
		x := math.Pi * float64(n) / float64(p.N)
		s := 1.0
		if x != 0 {
			s = math.Sin(x) / x
		}
		w *= s
	}
	if w == 0 {
		return 1
	}
	return 1.0 / math.Pow(w, float64(p.DeconvolveOrder))
}

// splitFactor returns the long-range split window evaluated at k^2.
func (p *Poisson) splitFactor(k2 float64) float64 {
	switch p.Split {
	case SharpCutoff:
		if math.Sqrt(k2) < float64(p.KCut) {
			return 1
		}
		return 0
	case Gaussian:
		sigma := float64(p.Sigma)
		return math.Exp(-sigma * sigma * k2 / 2)
	default:
		return 1
	}
}

// Run solves the Poisson equation in k-space. DC (k=0) is zeroed.
func (p *Poisson) Run() error {
	if p.Input == nil {
		return kernel.ErrInvalidState("K-Poisson", "missing density spectrum input")
	}
	pl := layout.Cube(p.N, p.SlicesRow)
	out := kernel.EnsureTexture(p.Output, pl, 2)
	p.Output = out

	for vz := 0; vz < p.N; vz++ {
		for vy := 0; vy < p.N; vy++ {
			for vx := 0; vx < p.N; vx++ {
				var ri [2]float32
				p.Input.At(vx, vy, vz, ri[:])
				if vx == 0 && vy == 0 && vz == 0 {
					out.Set(vx, vy, vz, []float32{0, 0})
					continue
				}
				_, _, _, k2 := p.wavenumber(vx, vy, vz)
				if k2 == 0 {
					out.Set(vx, vy, vz, []float32{0, 0})
					continue
				}
				green := -4 * math.Pi * float64(p.G) / k2
				factor := green * p.deconvolveFactor(vx, vy, vz) * p.splitFactor(k2)
				out.Set(vx, vy, vz, []float32{
					float32(float64(ri[0]) * factor),
					float32(float64(ri[1]) * factor),
				})
			}
		}
	}
	return nil
}

// Dispose frees Output if owned.
func (p *Poisson) Dispose() {
	if p.Output != nil {
		p.Output.Dispose()
	}
}
