package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepDelayOf(t *testing.T) {
	tests := []struct {
		name  string
		days  int
		hours int
		want  time.Duration
	}{
		{"none", 0, 0, 0},
		{"hours", 0, 2, 2 * time.Hour},
		{"days and hours", 2, 3, 51 * time.Hour},
		{"negative ignored", -1, -5, 0},
		{"huge hours saturate", 0, 3000000, MaxStepDelay},
		{"max int hours saturate", 0, math.MaxInt, MaxStepDelay},
		{"max int days saturate", math.MaxInt, 0, MaxStepDelay},
		{"both huge saturate", math.MaxInt, math.MaxInt, MaxStepDelay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StepDelayOf(tt.days, tt.hours))
		})
	}
}

func TestSchedulingContext_StepDelay(t *testing.T) {
	c := SchedulingContext{StepDelayDays: 1, StepDelayHours: 1 << 40}
	assert.Equal(t, MaxStepDelay, c.StepDelay())
}
