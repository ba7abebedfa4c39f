package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceEquatorDegree(t *testing.T) {
	// One degree of longitude at the equator is roughly 111.195 km.
	d := Distance(0, 0, 0, 1)
	assert.InDelta(t, 111195, d, 50)
}

func TestDistanceSymmetry(t *testing.T) {
	pairs := [][4]float64{
		{0, 0, 0, 1},
		{-6.2, 106.8, -6.9, 107.6},
		{51.5, -0.12, 48.85, 2.35},
		{89.9, 10, -89.9, -170},
	}
	for _, p := range pairs {
		assert.Equal(t, Distance(p[0], p[1], p[2], p[3]), Distance(p[2], p[3], p[0], p[1]))
	}
}

func TestDistanceZero(t *testing.T) {
	assert.Zero(t, Distance(-6.2, 106.8, -6.2, 106.8))
}

func TestWithinRadius(t *testing.T) {
	radius := 100.0
	assert.True(t, WithinRadius(100.0, &radius))
	assert.False(t, WithinRadius(100.1, &radius))
	assert.True(t, WithinRadius(0, &radius))
	assert.False(t, WithinRadius(0.01, func() *float64 { z := 0.0; return &z }()))
	assert.True(t, WithinRadius(1e9, nil))
}
