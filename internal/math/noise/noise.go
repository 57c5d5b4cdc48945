package noise

import (
	"math"

	"visuals/internal/util"
)

// Hash returns the classic shader hash fract(sin(dot(p, (12.9898, 78.233))) * 43758.5453)
// in [0, 1). It is the CPU twin of the rand() function in the overlay shader.
func Hash(x, y float64) float64 {
	return util.Fract(math.Sin(x*12.9898+y*78.233) * 43758.5453)
}
