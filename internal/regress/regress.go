// Package regress fits the low-order polynomial trend lines drawn over the
// hypothesis scatter plot.
package regress

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Supported polynomial orders.
const (
	Linear    = 1
	Quadratic = 2
)

// ErrTooFewPoints is returned when there are not enough distinct x values
// to determine every coefficient.
var ErrTooFewPoints = errors.New("not enough points for the requested order")

// Poly is a fitted polynomial; Coeffs[i] multiplies x^i.
type Poly struct {
	Order  int
	Coeffs []float64
}

// Eval evaluates the polynomial at x using Horner's rule.
func (p Poly) Eval(x float64) float64 {
	var y float64
	for i := len(p.Coeffs) - 1; i >= 0; i-- {
		y = y*x + p.Coeffs[i]
	}
	return y
}

// Fit computes the least-squares polynomial of the given order through
// (xs[i], ys[i]). Pairs with a NaN or infinite coordinate are ignored.
func Fit(xs, ys []float64, order int) (Poly, error) {
	if order != Linear && order != Quadratic {
		return Poly{}, fmt.Errorf("unsupported order %d", order)
	}
	if len(xs) != len(ys) {
		return Poly{}, fmt.Errorf("length mismatch: %d x values, %d y values", len(xs), len(ys))
	}

	var px, py []float64
	distinct := make(map[float64]bool)
	for i := range xs {
		if !finite(xs[i]) || !finite(ys[i]) {
			continue
		}
		px = append(px, xs[i])
		py = append(py, ys[i])
		distinct[xs[i]] = true
	}
	if len(distinct) < order+1 {
		return Poly{}, ErrTooFewPoints
	}

	cols := order + 1
	design := mat.NewDense(len(px), cols, nil)
	for i, x := range px {
		v := 1.0
		for j := 0; j < cols; j++ {
			design.Set(i, j, v)
			v *= x
		}
	}

	var beta mat.VecDense
	if err := beta.SolveVec(design, mat.NewVecDense(len(py), py)); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return Poly{}, fmt.Errorf("failed to solve least squares: %w", err)
		}
	}

	coeffs := make([]float64, cols)
	for j := range coeffs {
		coeffs[j] = beta.AtVec(j)
	}
	return Poly{Order: order, Coeffs: coeffs}, nil
}

// RSquared is the coefficient of determination of p over the finite points.
func RSquared(p Poly, xs, ys []float64) float64 {
	var mean float64
	var n int
	for i := range xs {
		if finite(xs[i]) && finite(ys[i]) {
			mean += ys[i]
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	mean /= float64(n)

	var ssRes, ssTot float64
	for i := range xs {
		if !finite(xs[i]) || !finite(ys[i]) {
			continue
		}
		d := ys[i] - p.Eval(xs[i])
		ssRes += d * d
		m := ys[i] - mean
		ssTot += m * m
	}
	if ssTot == 0 {
		return 1
	}
	return 1 - ssRes/ssTot
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
