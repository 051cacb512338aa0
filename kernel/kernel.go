// Package kernel defines the synchronous kernel runtime contract shared by
// every mesh and tree kernel: a kernel owns a program and its
// output textures, exposes a single synchronous Run, and Dispose frees only
// what it owns.
package kernel

import (
	"log/slog"
	"math"

	"github.com/oyin-bo/three-g-sub003/layout"
)

// Kernel is the contract every mesh/tree compute kernel satisfies.
type Kernel interface {
	// Run executes the kernel synchronously: bind inputs, compute, unbind.
	Run() error
	// Dispose frees only resources this kernel owns.
	Dispose()
}

// EnsureTexture returns out unchanged if non-nil, otherwise allocates and
// returns a fresh owned texture for layout p with the given channel count,
// the "allocate internal textures if not supplied" half of the kernel
// contract.
func EnsureTexture(out *layout.Texture, p layout.Packed, channels int) *layout.Texture {
	if out != nil {
		return out
	}
	return layout.NewTexture(p, channels)
}

// CheckNoFeedback returns an *Error if out aliases any of ins. A
// framebuffer attachment must never also be a bound sampler in the same
// pass.
func CheckNoFeedback(kernelName string, out *layout.Texture, ins ...*layout.Texture) error {
	for _, in := range ins {
		if layout.Same(out, in) {
			return ErrInvalidState(kernelName, "output texture aliases a sampled input; copy to scratch first")
		}
	}
	return nil
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

// WarnNonFinite logs a NumericWarning through slog without returning an
// error. The caller is expected to freeze the offending particle rather
// than abort the step.
func WarnNonFinite(kernelName string, particleIndex int, field string, value float32) {
	slog.Warn("numeric warning: non-finite value",
		"kernel", kernelName,
		"particle", particleIndex,
		"field", field,
		"value", value,
	)
}

// Clamp01 clamps v to [0,1].
func Clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampMag clamps the magnitude of a 3-vector to max, preserving direction.
func ClampMag(x, y, z, max float32) (float32, float32, float32) {
	mag := float32(math.Sqrt(float64(x*x + y*y + z*z)))
	if mag <= max || mag == 0 {
		return x, y, z
	}
	scale := max / mag
	return x * scale, y * scale, z * scale
}
