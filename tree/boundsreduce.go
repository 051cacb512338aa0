package tree

import (
	"math"

	"github.com/oyin-bo/three-g-sub003/bounds"
	"github.com/oyin-bo/three-g-sub003/kernel"
	"github.com/oyin-bo/three-g-sub003/layout"
	"github.com/oyin-bo/three-g-sub003/particles"
)

// BoundsReduce is K-BoundsReduce: a min/max reduction, done in one linear
// pass over active-particle positions, written to a 2×1 RGBA texture (texel 0 =
// min, texel 1 = max) so downstream kernels can sample bounds without a CPU
// round-trip. The orchestrator runs this on a coarse schedule, not every
// step.
type BoundsReduce struct {
	Output *layout.Texture
}

// Run reduces p's active particle positions into Output, allocating it if
// nil. An empty (zero active particle) set produces a zero-size box at the
// origin.
func (br *BoundsReduce) Run(p *particles.Set) error {
	if p == nil {
		return kernel.ErrInvalidState("K-BoundsReduce", "missing particle input")
	}
	pl := layout.New(2, 1, 1, 1)
	out := kernel.EnsureTexture(br.Output, pl, 4)
	br.Output = out

	min := [3]float32{float32(math.Inf(1)), float32(math.Inf(1)), float32(math.Inf(1))}
	max := [3]float32{float32(math.Inf(-1)), float32(math.Inf(-1)), float32(math.Inf(-1))}
	any := false
	for i := 0; i < p.Count; i++ {
		if !p.Active(i) {
			continue
		}
		any = true
		pos := p.Position(i)
		for a := 0; a < 3; a++ {
			if pos[a] < min[a] {
				min[a] = pos[a]
			}
			if pos[a] > max[a] {
				max[a] = pos[a]
			}
		}
	}
	if !any {
		min, max = [3]float32{}, [3]float32{}
	}
	out.Set(0, 0, 0, []float32{min[0], min[1], min[2], 0})
	out.Set(1, 0, 0, []float32{max[0], max[1], max[2], 0})
	return nil
}

// Box reads the reduced bounds back out of Output as a bounds.Box.
func (br *BoundsReduce) Box() bounds.Box {
	var min, max [4]float32
	br.Output.At(0, 0, 0, min[:])
	br.Output.At(1, 0, 0, max[:])
	return bounds.Box{
		Min: [3]float32{min[0], min[1], min[2]},
		Max: [3]float32{max[0], max[1], max[2]},
	}
}

// Dispose frees Output if owned.
func (br *BoundsReduce) Dispose() {
	if br.Output != nil {
		br.Output.Dispose()
	}
}
