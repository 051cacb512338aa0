// Package bounds implements the world bounding box shared by every
// deposit, aggregation, and traversal kernel, and the minimum-image wrap
// used by the mesh near-field correction.
package bounds

import "math"

// Box is an axis-aligned bounding box in R3.
type Box struct {
	Min, Max [3]float32
}

// Size returns Max-Min per axis.
func (b Box) Size() [3]float32 {
	return [3]float32{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// Center returns the midpoint of the box.
func (b Box) Center() [3]float32 {
	return [3]float32{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// GridCoord maps a world position into continuous grid coordinates in
// [0,N) per axis, used by K-Deposit and K-Aggregator. Positions outside the
// box are NOT clamped here; callers clamp the resulting base voxel
// instead to the last voxel layer.
func (b Box) GridCoord(pos [3]float32, n int) [3]float32 {
	sz := b.Size()
	var g [3]float32
	for a := 0; a < 3; a++ {
		size := sz[a]
		if size <= 0 {
			size = 1
		}
		g[a] = (pos[a] - b.Min[a]) / size * float32(n)
	}
	return g
}

// MinimumImage returns the minimum-image displacement of d across a
// periodic box of the given size per axis, the near-field wrap used by
// K-NearField. Non-positive sizes are treated as non-periodic
// (returned unchanged).
func MinimumImage(d [3]float32, size [3]float32) [3]float32 {
	var out [3]float32
	for a := 0; a < 3; a++ {
		s := size[a]
		if s <= 0 {
			out[a] = d[a]
			continue
		}
		v := d[a]
		for v > s/2 {
			v -= s
		}
		for v < -s/2 {
			v += s
		}
		out[a] = v
	}
	return out
}

// Contains reports whether pos lies within [Min,Max] on every axis.
func (b Box) Contains(pos [3]float32) bool {
	for a := 0; a < 3; a++ {
		if pos[a] < b.Min[a] || pos[a] > b.Max[a] {
			return false
		}
	}
	return true
}

// Dist is a small helper for Euclidean distance, used by tests and by the
// traversal's direct near-field fallback.
func Dist(a, b [3]float32) float32 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
}
