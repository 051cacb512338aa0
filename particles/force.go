package particles

// Force is the per-particle force texture: RGBA float, one (Fx,Fy,Fz,·)
// per particle slot, same W x H shape as a Set. The mesh pipeline may add
// into it (ForceSample with Accumulate=true); the tree
// pipeline always replaces it.
type Force struct {
	W, H int
	Data []float32 // Fx,Fy,Fz,pad interleaved
}

// NewForce allocates a zeroed force texture matching a particle Set's shape.
func NewForce(w, h int) *Force {
	return &Force{W: w, H: h, Data: make([]float32, w*h*4)}
}

// Slots returns W*H.
func (f *Force) Slots() int {
	return f.W * f.H
}

// Get returns the force at slot i.
func (f *Force) Get(i int) [3]float32 {
	o := i * 4
	return [3]float32{f.Data[o], f.Data[o+1], f.Data[o+2]}
}

// Set overwrites the force at slot i.
func (f *Force) Set(i int, fx, fy, fz float32) {
	o := i * 4
	f.Data[o], f.Data[o+1], f.Data[o+2] = fx, fy, fz
}

// Add accumulates into the force at slot i.
func (f *Force) Add(i int, fx, fy, fz float32) {
	o := i * 4
	f.Data[o] += fx
	f.Data[o+1] += fy
	f.Data[o+2] += fz
}

// Clear zeroes every slot.
func (f *Force) Clear() {
	for i := range f.Data {
		f.Data[i] = 0
	}
}
