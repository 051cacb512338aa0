// Package layout implements the packed 3D-in-2D grid convention shared by
// every mesh and octree kernel: a voxel grid (Nx,Ny,Nz) is tiled, Z-slice by
// Z-slice, into a 2D texture of slicesPerRow tiles per row.
package layout

// Packed describes a packed 3D-in-2D grid. It is a first-class value type,
// so kernels pass Packed around instead of raw texture dimensions and the
// tiling convention can never be reconstructed inconsistently at a call
// site.
type Packed struct {
	Nx, Ny, Nz   int
	SlicesPerRow int
}

// New builds a Packed layout for a cubic or rectangular voxel grid.
func New(nx, ny, nz, slicesPerRow int) Packed {
	if slicesPerRow < 1 {
		slicesPerRow = 1
	}
	return Packed{Nx: nx, Ny: ny, Nz: nz, SlicesPerRow: slicesPerRow}
}

// Cube builds a Packed layout for an N×N×N grid.
func Cube(n, slicesPerRow int) Packed {
	return New(n, n, n, slicesPerRow)
}

// TilesPerColumn is the number of tile-rows needed to cover Nz slices.
func (p Packed) TilesPerColumn() int {
	return (p.Nz + p.SlicesPerRow - 1) / p.SlicesPerRow
}

// TexWidth is the width, in texels, of the packed 2D texture.
func (p Packed) TexWidth() int {
	return p.Nx * p.SlicesPerRow
}

// TexHeight is the height, in texels, of the packed 2D texture.
func (p Packed) TexHeight() int {
	return p.Ny * p.TilesPerColumn()
}

// VoxelToTexel maps a 3D voxel coordinate to its 2D texel coordinate inside
// the packed layout. Behavior is identical whether evaluated here for tests
// or re-derived in shader code: z-slice z lives at tile (z mod S, z/S), and
// within that tile voxel (x,y) sits at the corresponding offset.
func (p Packed) VoxelToTexel(vx, vy, vz int) (tx, ty int) {
	col := vz % p.SlicesPerRow
	row := vz / p.SlicesPerRow
	tx = col*p.Nx + vx
	ty = row*p.Ny + vy
	return tx, ty
}

// TexelToVoxel is the inverse of VoxelToTexel.
func (p Packed) TexelToVoxel(tx, ty int) (vx, vy, vz int) {
	col := tx / p.Nx
	row := ty / p.Ny
	vx = tx % p.Nx
	vy = ty % p.Ny
	vz = row*p.SlicesPerRow + col
	return vx, vy, vz
}

// Index returns the flat index of a voxel's texel inside a row-major buffer
// of TexWidth()*TexHeight() elements, for the given channel count.
func (p Packed) Index(vx, vy, vz, channels int) int {
	tx, ty := p.VoxelToTexel(vx, vy, vz)
	return (ty*p.TexWidth() + tx) * channels
}

// InBounds reports whether a voxel coordinate lies inside [0,Nx)×[0,Ny)×[0,Nz).
func (p Packed) InBounds(vx, vy, vz int) bool {
	return vx >= 0 && vx < p.Nx && vy >= 0 && vy < p.Ny && vz >= 0 && vz < p.Nz
}

// Clamp clamps a voxel coordinate to the last valid layer on each axis,
// used by deposit/aggregator to handle positions outside world bounds
// without producing an out-of-range texel.
func (p Packed) Clamp(vx, vy, vz int) (int, int, int) {
	return clampInt(vx, 0, p.Nx-1), clampInt(vy, 0, p.Ny-1), clampInt(vz, 0, p.Nz-1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
