package compute

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoprimeStepsAreActuallyCoprime(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 8, 16, 17, 100} {
		for _, s := range coprimeSteps(n) {
			assert.Equal(t, 1, gcd(s, n), "step %d not coprime with %d", s, n)
		}
	}
}

func TestCoprimeStepVisitsEveryIndexExactlyOnce(t *testing.T) {
	const n = 13
	for _, s := range coprimeSteps(n) {
		seen := make(map[int]bool, n)
		idx := 0
		for i := 0; i < n; i++ {
			idx = (idx + s) % n
			seen[idx] = true
		}
		assert.Len(t, seen, n, "step %d did not visit every index", s)
	}
}

func TestRNGIntnStaysInRange(t *testing.T) {
	r := newRNGPCG(42)
	for i := 0; i < 10000; i++ {
		v := r.Intn(7)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 7)
	}
}

func TestRNGIntnOfNonPositiveIsZero(t *testing.T) {
	r := newRNGPCG(1)
	assert.Equal(t, 0, r.Intn(0))
	assert.Equal(t, 0, r.Intn(-5))
}
