package ephem

import "math"

// vec3 is a Cartesian vector in astronomical units.
type vec3 struct {
	X, Y, Z float64
}

// Sub returns v - other.
func (v vec3) Sub(other vec3) vec3 {
	return vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Add returns v + other.
func (v vec3) Add(other vec3) vec3 {
	return vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Norm returns the Euclidean norm of the vector.
func (v vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Dot returns the dot product of two vectors.
func (v vec3) Dot(other vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// angleBetweenDeg returns the angle between two vectors in degrees, with the
// cosine clamped so rounding never pushes acos out of domain.
func angleBetweenDeg(a, b vec3) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	c := a.Dot(b) / (na * nb)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c) * 180 / math.Pi
}
