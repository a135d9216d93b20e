package regress

import (
	"errors"
	"math"
	"testing"
)

func TestFitLinear(t *testing.T) {
	xs := []float64{0, 1, 2, 3, 4}
	ys := []float64{1, 3, 5, 7, 9} // y = 2x + 1

	p, err := Fit(xs, ys, Linear)
	if err != nil {
		t.Fatalf("Fit() returned an unexpected error: %v", err)
	}
	if math.Abs(p.Coeffs[0]-1) > 1e-9 || math.Abs(p.Coeffs[1]-2) > 1e-9 {
		t.Errorf("Expected coefficients [1 2], but got %v", p.Coeffs)
	}
	if math.Abs(p.Eval(10)-21) > 1e-9 {
		t.Errorf("Expected Eval(10) to be 21, but got %f", p.Eval(10))
	}
	if r2 := RSquared(p, xs, ys); math.Abs(r2-1) > 1e-9 {
		t.Errorf("Expected a perfect fit, but got R^2 %f", r2)
	}
}

func TestFitQuadratic(t *testing.T) {
	xs := []float64{-2, -1, 0, 1, 2, 3}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = 0.5*x*x - x + 3
	}

	p, err := Fit(xs, ys, Quadratic)
	if err != nil {
		t.Fatalf("Fit() returned an unexpected error: %v", err)
	}
	expected := []float64{3, -1, 0.5}
	for i, c := range expected {
		if math.Abs(p.Coeffs[i]-c) > 1e-9 {
			t.Errorf("Coefficient %d: expected %f, but got %f", i, c, p.Coeffs[i])
		}
	}
}

func TestFitSkipsNonFinite(t *testing.T) {
	xs := []float64{0, 1, math.NaN(), 2, math.Inf(1)}
	ys := []float64{0, 1, 5, 2, 3}

	p, err := Fit(xs, ys, Linear)
	if err != nil {
		t.Fatalf("Fit() returned an unexpected error: %v", err)
	}
	if math.Abs(p.Coeffs[1]-1) > 1e-9 {
		t.Errorf("Expected slope 1, but got %f", p.Coeffs[1])
	}
}

func TestFitErrors(t *testing.T) {
	if _, err := Fit([]float64{1, 1, 1}, []float64{1, 2, 3}, Linear); !errors.Is(err, ErrTooFewPoints) {
		t.Errorf("Expected ErrTooFewPoints for a single distinct x, but got %v", err)
	}
	if _, err := Fit([]float64{1, 2}, []float64{1, 2}, Quadratic); !errors.Is(err, ErrTooFewPoints) {
		t.Errorf("Expected ErrTooFewPoints for two points, but got %v", err)
	}
	if _, err := Fit([]float64{1, 2, 3}, []float64{1, 2, 3}, 3); err == nil {
		t.Error("Expected an error for order 3")
	}
	if _, err := Fit([]float64{1, 2}, []float64{1}, Linear); err == nil {
		t.Error("Expected an error for mismatched lengths")
	}
}
