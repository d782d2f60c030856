package constraints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoConstraints(t *testing.T) {
	c := NoConstraints{}

	x := []float64{-1e12, 42}
	c.Project(x)

	assert.Equal(t, []float64{-1e12, 42}, x)
	assert.True(t, c.Contains(x))
}

func TestBoundsProject(t *testing.T) {
	b, err := NewBounds([]float64{-1, 0}, []float64{1, 5})
	require.NoError(t, err)

	x := []float64{-3, 2}
	b.Project(x)
	assert.Equal(t, []float64{-1, 2}, x)

	x = []float64{0.5, 7}
	b.Project(x)
	assert.Equal(t, []float64{0.5, 5}, x)
}

func TestBoundsContains(t *testing.T) {
	b, err := NewBounds([]float64{-1, -1}, []float64{1, 1})
	require.NoError(t, err)

	assert.True(t, b.Contains([]float64{0, 0}))
	assert.True(t, b.Contains([]float64{1, -1}))
	assert.False(t, b.Contains([]float64{1.001, 0}))
}

func TestNewBoundsRejectsBadIntervals(t *testing.T) {
	_, err := NewBounds([]float64{0}, []float64{1, 2})
	assert.Error(t, err)

	_, err = NewBounds([]float64{2}, []float64{1})
	assert.Error(t, err)
}
