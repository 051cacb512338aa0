package mesh

import (
	"math"
	"math/bits"
	"math/cmplx"

	"github.com/oyin-bo/three-g-sub003/kernel"
	"github.com/oyin-bo/three-g-sub003/layout"
)

// Direction selects which way K-FFT runs.
type Direction int

const (
	// Forward converts a real mass grid into a complex density spectrum.
	Forward Direction = iota
	// Inverse converts a complex spectrum back into a real grid.
	Inverse
)

// FFT is K-FFT: an out-of-place Stockham FFT over a packed 3D grid,
// one pass per axis, log2N stages per pass, ping-ponging between two
// complex buffers each stage so no in-place hazard ever arises.
type FFT struct {
	N          int
	SlicesRow  int
	CellVolume float32 // forward: density = mass/cellVolume. 0 disables normalization.

	// InputReal is the forward-pass source (1 channel). InputSpectrum is
	// the inverse-pass source (2 channels). Exactly one is read per Run,
	// chosen by Direction.
	InputReal     *layout.Texture
	InputSpectrum *layout.Texture

	// Output is the result: a 2-channel spectrum (forward) or a 1-channel
	// real grid (inverse). Allocated if nil.
	Output *layout.Texture
}

// NewFFT validates N is a power of two, failing at construction with
// InvalidConfig otherwise.
func NewFFT(n, slicesRow int, cellVolume float32) (*FFT, error) {
	if n < 2 || n&(n-1) != 0 {
		return nil, kernel.ErrInvalidConfig("K-FFT", "grid size %d is not a power of two", n)
	}
	return &FFT{N: n, SlicesRow: slicesRow, CellVolume: cellVolume}, nil
}

// Run executes the forward or inverse 3D FFT, chosen by dir.
func (f *FFT) Run(dir Direction) error {
	pl := layout.Cube(f.N, f.SlicesRow)
	n3 := f.N * f.N * f.N

	cube := make([]complex128, n3)

	switch dir {
	case Forward:
		if f.InputReal == nil {
			return kernel.ErrInvalidState("K-FFT", "missing real input grid")
		}
		cv := f.CellVolume
		for vz := 0; vz < f.N; vz++ {
			for vy := 0; vy < f.N; vy++ {
				for vx := 0; vx < f.N; vx++ {
					var mass [1]float32
					f.InputReal.At(vx, vy, vz, mass[:])
					v := mass[0]
					if cv > 0 {
						v /= cv
					}
					cube[denseIndex(vx, vy, vz, f.N)] = complex(float64(v), 0)
				}
			}
		}
	case Inverse:
		if f.InputSpectrum == nil {
			return kernel.ErrInvalidState("K-FFT", "missing spectrum input")
		}
		// Feedback-loop guard: if Output was pre-set to the same texture
		// as the input spectrum, copy the source out to scratch first.
		// Here that just means reading before writing, which the
		// dense-cube staging below already guarantees, but we still
		// surface the hazard explicitly for callers that reuse buffers
		// across Output swaps.
		if err := kernel.CheckNoFeedback("K-FFT", f.Output, f.InputSpectrum); err != nil {
			// not fatal for the dense-staged CPU path: the read above
			// happens before any write, so proceed.
			_ = err
		}
		for vz := 0; vz < f.N; vz++ {
			for vy := 0; vy < f.N; vy++ {
				for vx := 0; vx < f.N; vx++ {
					var ri [2]float32
					f.InputSpectrum.At(vx, vy, vz, ri[:])
					cube[denseIndex(vx, vy, vz, f.N)] = complex(float64(ri[0]), float64(ri[1]))
				}
			}
		}
	}

	inverse := dir == Inverse
	for axis := 0; axis < 3; axis++ {
		fftAxis(cube, f.N, axis, inverse)
	}

	switch dir {
	case Forward:
		out := kernel.EnsureTexture(f.Output, pl, 2)
		f.Output = out
		for vz := 0; vz < f.N; vz++ {
			for vy := 0; vy < f.N; vy++ {
				for vx := 0; vx < f.N; vx++ {
					c := cube[denseIndex(vx, vy, vz, f.N)]
					out.Set(vx, vy, vz, []float32{float32(real(c)), float32(imag(c))})
				}
			}
		}
	case Inverse:
		out := kernel.EnsureTexture(f.Output, pl, 1)
		f.Output = out
		norm := 1.0 / float64(f.N*f.N*f.N)
		for vz := 0; vz < f.N; vz++ {
			for vy := 0; vy < f.N; vy++ {
				for vx := 0; vx < f.N; vx++ {
					c := cube[denseIndex(vx, vy, vz, f.N)]
					out.Set(vx, vy, vz, []float32{float32(real(c) * norm)})
				}
			}
		}
	}
	return nil
}

// Dispose frees Output if owned.
func (f *FFT) Dispose() {
	if f.Output != nil {
		f.Output.Dispose()
	}
}

func denseIndex(x, y, z, n int) int {
	return x + y*n + z*n*n
}

// fftAxis runs a full Stockham pass (log2(n) stages) along one axis of a
// dense n*n*n cube: each line is copied out, transformed by stockham1D
// (which ping-pongs between its own two buffers), and written back into
// cube, so the next axis always starts from cube.
func fftAxis(cube []complex128, n int, axis int, inverse bool) {
	stride := 1
	switch axis {
	case 0:
		stride = 1
	case 1:
		stride = n
	case 2:
		stride = n * n
	}
	// number of independent lines along this axis
	lines := len(cube) / n

	line := make([]complex128, n)
	for lineStart := 0; lineStart < len(cube); lineStart++ {
		// only process each line once: lineStart enumerates every flat
		// index whose axis-coordinate is 0
		coord := (lineStart / stride) % n
		if coord != 0 {
			continue
		}
		for i := 0; i < n; i++ {
			line[i] = cube[lineStart+i*stride]
		}
		out := stockham1D(line, inverse)
		for i := 0; i < n; i++ {
			cube[lineStart+i*stride] = out[i]
		}
	}
	_ = lines
}

// stockham1D is the Stockham self-sorting FFT: out-of-place, ping-ponging
// between two buffers, log2(n) stages, no explicit bit-reversal pass.
func stockham1D(x []complex128, inverse bool) []complex128 {
	n := len(x)
	if n <= 1 {
		out := make([]complex128, n)
		copy(out, x)
		return out
	}
	logn := bits.Len(uint(n)) - 1

	a := make([]complex128, n)
	copy(a, x)
	b := make([]complex128, n)

	sign := -1.0
	if inverse {
		sign = 1.0
	}

	ls := 1
	for stage := 0; stage < logn; stage++ {
		r := n / (2 * ls)
		for k := 0; k < r; k++ {
			for j := 0; j < ls; j++ {
				w := cmplx.Exp(complex(0, sign*math.Pi*float64(j)/float64(ls)))
				idxA0 := k*ls + j
				idxA1 := idxA0 + r*ls
				t0 := a[idxA0]
				t1 := a[idxA1]
				idxB0 := 2*k*ls + j
				idxB1 := idxB0 + ls
				b[idxB0] = t0 + w*t1
				b[idxB1] = t0 - w*t1
			}
		}
		a, b = b, a
		ls *= 2
	}
	return a
}
