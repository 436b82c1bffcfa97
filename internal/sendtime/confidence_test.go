package sendtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		adjustments int
		fallback    bool
		want        int
	}{
		{"no adjustments", 0, false, 90},
		{"one adjustment", 1, false, 80},
		{"three adjustments", 3, false, 60},
		{"floor at zero", 12, false, 0},
		{"fallback", 0, true, 30},
		{"fallback with adjustment", 1, true, 30},
		{"fallback floor", 10, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(make([]string, tt.adjustments), tt.fallback)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}
