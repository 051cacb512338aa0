package layout

import "gonum.org/v1/gonum/blas/blas32"

// Ownership records whether a Texture's backing data was allocated by the
// kernel that holds it (and must be freed by it) or supplied externally (and
// must never be freed by it). Encoding this at the type level avoids
// pointer-equality checks at dispose time.
type Ownership int

const (
	// Owned textures were allocated internally; Dispose frees them.
	Owned Ownership = iota
	// External textures were supplied by the caller; Dispose is a no-op.
	External
)

// Texture is a packed-layout grid resident as a flat float32 buffer with a
// fixed channel count per texel. It stands in for a GPU texture: kernels
// read and write it the same way whether the run is a CPU-computed test
// fixture or a real shader dispatch layered on top (see package gpukernel).
type Texture struct {
	Layout   Packed
	Channels int
	Data     []float32
	owner    Ownership
}

// NewTexture allocates a zeroed, owned texture for the given layout and
// channel count.
func NewTexture(p Packed, channels int) *Texture {
	return &Texture{
		Layout:   p,
		Channels: channels,
		Data:     make([]float32, p.TexWidth()*p.TexHeight()*channels),
		owner:    Owned,
	}
}

// Wrap adapts an externally-owned buffer as a Texture. The returned value's
// Dispose is a no-op; the caller retains ownership.
func Wrap(p Packed, channels int, data []float32) *Texture {
	return &Texture{Layout: p, Channels: channels, Data: data, owner: External}
}

// Owned reports whether this Texture owns its backing buffer.
func (t *Texture) Owned() bool {
	return t.owner == Owned
}

// Dispose releases the backing buffer if this Texture owns it. It is always
// safe to call, including on an already-disposed or external Texture.
func (t *Texture) Dispose() {
	if t == nil || t.owner != Owned {
		return
	}
	t.Data = nil
}

// At reads the channels of a voxel into dst, which must have length >=
// Channels. Returns dst for chaining.
func (t *Texture) At(vx, vy, vz int, dst []float32) []float32 {
	idx := t.Layout.Index(vx, vy, vz, t.Channels)
	copy(dst, t.Data[idx:idx+t.Channels])
	return dst
}

// Set writes the channels of a voxel from src, which must have length >=
// Channels.
func (t *Texture) Set(vx, vy, vz int, src []float32) {
	idx := t.Layout.Index(vx, vy, vz, t.Channels)
	copy(t.Data[idx:idx+t.Channels], src)
}

// Add accumulates src into the channels of a voxel (additive blend, the
// CPU equivalent of float-blend-enabled framebuffer accumulation used by
// K-Deposit and K-Aggregator).
func (t *Texture) Add(vx, vy, vz int, src []float32) {
	idx := t.Layout.Index(vx, vy, vz, t.Channels)
	for i, v := range src {
		t.Data[idx+i] += v
	}
}

// clearBLASThreshold is the buffer length (float32 elements, all channels)
// at or above which Clear dispatches through blas32 instead of a scalar
// loop; below it the scalar loop wins on call overhead alone (see
// layout/texture_bench_test.go).
const clearBLASThreshold = 4096

// Clear zeroes every texel. Buffers of at least clearBLASThreshold float32
// elements go through blas32.Scal(0, ...), which the benchmark shows pulling
// ahead of the scalar loop once the buffer is large enough to amortize
// the BLAS call itself.
func (t *Texture) Clear() {
	if len(t.Data) >= clearBLASThreshold {
		blas32.Scal(0, blas32.Vector{N: len(t.Data), Inc: 1, Data: t.Data})
		return
	}
	for i := range t.Data {
		t.Data[i] = 0
	}
}

// Same reports whether two Textures alias the same backing buffer, used to
// detect the feedback-loop hazard: a framebuffer attachment must never
// also be bound as a sampler in the same draw.
func Same(a, b *Texture) bool {
	if a == nil || b == nil || len(a.Data) == 0 || len(b.Data) == 0 {
		return false
	}
	return &a.Data[0] == &b.Data[0]
}
