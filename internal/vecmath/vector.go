// Package vecmath holds the small amount of linear algebra the store and
// search path need.
package vecmath

import "math"

const unitTolerance = 1e-12

// Dot returns the dot product over the shorter of the two vectors.
func Dot(a, b []float32) float64 {
	n := min(len(a), len(b))
	var s float64
	for i := 0; i < n; i++ {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var n2 float64
	for _, x := range v {
		n2 += float64(x) * float64(x)
	}
	return math.Sqrt(n2)
}

// Cosine returns the cosine similarity of a and b, computed over the shorter
// length. It returns 0 when either vector has zero norm.
func Cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// L2Normalize returns a unit-length copy of v. A vector already within
// tolerance of unit length, or with zero norm, is returned as an unchanged copy.
func L2Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	n := Norm(v)
	if n == 0 || math.Abs(n-1) < unitTolerance {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// IsFinite reports whether v is non-empty and free of NaN and Inf components.
func IsFinite(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
