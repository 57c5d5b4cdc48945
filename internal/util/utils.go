package util

import (
	"math"
	"os"
)

// Clamp restricts a value to be between min and max
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Mix performs linear interpolation between a and b, like GLSL mix().
func Mix(a, b, t float64) float64 {
	return a + t*(b-a)
}

// Fract returns the fractional part of x with GLSL semantics (x - floor(x)),
// so the result is always in [0, 1) even for negative x.
func Fract(x float64) float64 {
	return x - math.Floor(x)
}

// SmoothStep is GLSL smoothstep(edge0, edge1, x): 0 below edge0, 1 above
// edge1, Hermite interpolation in between.
func SmoothStep(edge0, edge1, x float64) float64 {
	t := Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
