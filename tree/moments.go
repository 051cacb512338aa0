package tree

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// quadrupoleTensor reconstructs the trace-free quadrupole tensor Q
// from a cell's raw A0/A1/A2 moment sums via the parallel-axis
// theorem. Returns false for an empty (mass<=0) cell.
func quadrupoleTensor(a0, a1, a2 [4]float32) (*mat.SymDense, bool) {
	m := float64(a0[3])
	if m <= 0 {
		return nil, false
	}
	cx, cy, cz := float64(a0[0])/m, float64(a0[1])/m, float64(a0[2])/m

	mxx := float64(a1[0]) - m*cx*cx
	myy := float64(a1[1]) - m*cy*cy
	mzz := float64(a1[2]) - m*cz*cz
	mxy := float64(a1[3]) - m*cx*cy
	mxz := float64(a2[0]) - m*cx*cz
	myz := float64(a2[1]) - m*cy*cz

	qxx := 2*mxx - myy - mzz
	qyy := 2*myy - mxx - mzz
	qzz := 2*mzz - mxx - myy
	qxy := 3 * mxy
	qxz := 3 * mxz
	qyz := 3 * myz

	q := mat.NewSymDense(3, []float64{
		qxx, qxy, qxz,
		qxy, qyy, qyz,
		qxz, qyz, qzz,
	})
	return q, true
}

// quadrupoleAccel returns the acceleration contribution Q·r/d^5 -
// (5/2)(r·Q·r)·r/d^7, scaled by G.
func quadrupoleAccel(q *mat.SymDense, r [3]float64, d, g float64) (float64, float64, float64) {
	rv := mat.NewVecDense(3, r[:])
	var qr mat.VecDense
	qr.MulVec(q, rv)
	rQr := mat.Dot(rv, &qr)

	d5 := math.Max(math.Pow(d, 5), 1e-12)
	d7 := math.Max(math.Pow(d, 7), 1e-12)

	ax := g * (qr.AtVec(0)/d5 - 2.5*rQr*r[0]/d7)
	ay := g * (qr.AtVec(1)/d5 - 2.5*rQr*r[1]/d7)
	az := g * (qr.AtVec(2)/d5 - 2.5*rQr*r[2]/d7)
	return ax, ay, az
}
