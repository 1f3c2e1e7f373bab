package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     int
	}{
		{"empty", "", 0},
		{"short lowercase", "abc", 0},
		{"length only", "abcdefgh", 25},
		{"length and upper", "Abcdefgh", 50},
		{"length upper digit", "Abcdefg1", 75},
		{"all criteria", "Abcdef1!", 100},
		{"short but all classes", "Ab1!", 75},
		{"digits only long", "12345678", 50},
		{"symbols count once", "!!!!!!!!", 50},
		{"unicode uppercase", "Ábcdefgh", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStrength(tt.password))
		})
	}
}

// Satisfying more criteria never lowers the score, and the score stays
// inside [0,100].
func TestComputeStrengthMonotonic(t *testing.T) {
	steps := []string{
		"abc",      // nothing
		"abcdefgh", // + length
		"Abcdefgh", // + uppercase
		"Abcdefg1", // + digit
		"Abcdef1!", // + symbol
	}

	prev := -1
	for _, p := range steps {
		score := ComputeStrength(p)
		assert.GreaterOrEqual(t, score, prev, "score decreased at %q", p)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
		prev = score
	}
	assert.Equal(t, 100, prev)
}
