package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		x := float64(i) * 0.173
		y := float64(i) * -0.311
		h := Hash(x, y)
		assert.GreaterOrEqual(t, h, 0.0)
		assert.Less(t, h, 1.0)
	}
}

func TestHashDeterministic(t *testing.T) {
	assert.Equal(t, Hash(0.5, 0.25), Hash(0.5, 0.25))
	assert.Equal(t, 0.0, Hash(0, 0))
}
