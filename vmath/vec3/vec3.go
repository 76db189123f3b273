// Package vec3 is three-component vector arithmetic for points, directions and
// RGB colors.
package vec3

import (
	"math"
	"math/rand"
)

type T [3]float64

func (v T) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func (v T) NormSquared() float64 {
	return v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
}

func (v T) IsZero() bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

func (v T) IsFinite() bool {
	for i := 0; i < 3; i++ {
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return false
		}
	}
	return true
}

// Normalize returns v scaled to unit length.  The zero vector normalizes to
// itself.
func Normalize(v T) T {
	l := v.Norm()
	if l == 0 {
		return T{}
	}
	return T{
		v[0] / l,
		v[1] / l,
		v[2] / l,
	}
}

func AddVV(a, b T) T {
	return T{
		a[0] + b[0],
		a[1] + b[1],
		a[2] + b[2],
	}
}

func SubVV(a, b T) T {
	return T{
		a[0] - b[0],
		a[1] - b[1],
		a[2] - b[2],
	}
}

// MulVV is the component-wise (Hadamard) product, used to attenuate colors.
func MulVV(a, b T) T {
	return T{
		a[0] * b[0],
		a[1] * b[1],
		a[2] * b[2],
	}
}

func MulVS(a T, b float64) T {
	return T{
		a[0] * b,
		a[1] * b,
		a[2] * b,
	}
}

func DivVS(a T, b float64) T {
	return T{
		a[0] / b,
		a[1] / b,
		a[2] / b,
	}
}

func Neg(a T) T {
	return T{-a[0], -a[1], -a[2]}
}

func IProd(a, b T) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func CProd(a, b T) T {
	return T{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Reflect mirrors a about the plane with normal n.  n must be unit length.
func Reflect(a, n T) T {
	return SubVV(a, MulVS(n, 2*IProd(a, n)))
}

// Lerp blends linearly from a (t=0) to b (t=1).
func Lerp(t float64, a, b T) T {
	return AddVV(MulVS(a, 1-t), MulVS(b, t))
}

// Clamp limits every component to [lo, hi].  NaN components clamp to lo.
func Clamp(v T, lo, hi float64) T {
	result := T{}
	for i := 0; i < 3; i++ {
		switch {
		case v[i] >= hi:
			result[i] = hi
		case v[i] > lo:
			result[i] = v[i]
		default:
			result[i] = lo
		}
	}
	return result
}

// UniformUnitDistribution draws a direction uniformly from the unit sphere by
// rejection sampling the unit ball.
func UniformUnitDistribution(rng *rand.Rand) T {
	result := T{}
	for {
		result[0] = 2 * (rng.Float64() - 0.5)
		result[1] = 2 * (rng.Float64() - 0.5)
		result[2] = 2 * (rng.Float64() - 0.5)
		normSquared := result.NormSquared()
		if normSquared <= 1.0 && normSquared != 0.0 {
			break
		}
	}
	return Normalize(result)
}
