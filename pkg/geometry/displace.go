package geometry

import "math"

// LoudnessScale converts an 8-bit average into world units of lift.
const LoudnessScale = 128.0

// Wave is the height of the plane at (x, y) after t seconds, lifted by the
// current loudness.
func Wave(x, y, t, loudness float64) float64 {
	return math.Sin(2*x+t)*0.5 + math.Sin(2*y+t)*0.5 + loudness/LoudnessScale
}

// Displace recomputes every z from scratch, so repeated calls with the same
// inputs produce the same grid.
func Displace(g *Grid, t, loudness float64) {
	n := g.Count()
	for i := 0; i < n; i++ {
		x, y := g.XY(i)
		g.SetZ(i, Wave(x, y, t, loudness))
	}
	g.MarkDirty()
}
