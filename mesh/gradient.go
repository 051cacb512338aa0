package mesh

import (
	"github.com/oyin-bo/three-g-sub003/kernel"
	"github.com/oyin-bo/three-g-sub003/layout"
)

// Gradient is K-Gradient: produces the three force-component
// spectra F̂_x,y,z = -i·k·φ̂ from the potential spectrum φ̂, one draw per
// axis with the axis uniform switched between draws.
type Gradient struct {
	N           int
	SlicesRow   int
	WorldSize   [3]float32
	UseDiscrete bool

	Input *layout.Texture // potential spectrum (2 channels)

	// OutputX, OutputY, OutputZ are the three force-component spectra (2
	// channels each). Allocated if nil.
	OutputX, OutputY, OutputZ *layout.Texture
}

// Run computes all three force spectra from Input.
func (g *Gradient) Run() error {
	if g.Input == nil {
		return kernel.ErrInvalidState("K-Gradient", "missing potential spectrum input")
	}
	pl := layout.Cube(g.N, g.SlicesRow)
	ox := kernel.EnsureTexture(g.OutputX, pl, 2)
	oy := kernel.EnsureTexture(g.OutputY, pl, 2)
	oz := kernel.EnsureTexture(g.OutputZ, pl, 2)
	g.OutputX, g.OutputY, g.OutputZ = ox, oy, oz

	for vz := 0; vz < g.N; vz++ {
		for vy := 0; vy < g.N; vy++ {
			for vx := 0; vx < g.N; vx++ {
				var phi [2]float32
				g.Input.At(vx, vy, vz, phi[:])
				kx, ky, kz, _ := waveVector(vx, vy, vz, g.N, g.WorldSize, g.UseDiscrete)

				// F = -i*k*phi; for complex phi = (re,im), k real:
				// -i*k*(re+i*im) = k*im - i*k*re
				re, im := float64(phi[0]), float64(phi[1])
				ox.Set(vx, vy, vz, []float32{float32(kx * im), float32(-kx * re)})
				oy.Set(vx, vy, vz, []float32{float32(ky * im), float32(-ky * re)})
				oz.Set(vx, vy, vz, []float32{float32(kz * im), float32(-kz * re)})
			}
		}
	}
	return nil
}

// Dispose frees any owned output textures.
func (g *Gradient) Dispose() {
	for _, t := range []*layout.Texture{g.OutputX, g.OutputY, g.OutputZ} {
		if t != nil {
			t.Dispose()
		}
	}
}
