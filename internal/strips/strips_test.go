package strips_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightstrip/internal/geometry"
	"flightstrip/internal/naming"
	"flightstrip/internal/strips"
	"flightstrip/internal/survey"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		bearing float64
		want    strips.Orientation
	}{
		{0, strips.OrientationVertical},
		{358, strips.OrientationVertical},
		{3, strips.OrientationVertical},
		{180, strips.OrientationVertical},
		{90, strips.OrientationHorizontal},
		{272.5, strips.OrientationHorizontal},
		{45, strips.OrientationOblique},
		{3.5, strips.OrientationOblique},
		{176.9, strips.OrientationOblique},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, strips.Classify(tt.bearing), "bearing %v", tt.bearing)
	}
}

func TestBearing(t *testing.T) {
	assert.InDelta(t, 0, strips.Bearing(0, 0, 0, 10), 1e-9)
	assert.InDelta(t, 90, strips.Bearing(0, 0, 10, 0), 1e-9)
	assert.InDelta(t, 180, strips.Bearing(0, 0, 0, -10), 1e-9)
	assert.InDelta(t, 270, strips.Bearing(0, 0, -10, 0), 1e-9)
	assert.InDelta(t, 45, strips.Bearing(0, 0, 10, 10), 1e-9)
}

func TestAssembleGroupsAndMeasures(t *testing.T) {
	scheme := naming.Scheme{Kept: map[int]int{1: 26}, Separator: "_"}
	var points []survey.ImagePoint
	for i := 0; i < 5; i++ {
		points = append(points, survey.ImagePoint{
			Name:     fmt.Sprintf("20230101_FL1_%04d", i),
			Location: geometry.Point{X: float64(i) * 1000, Y: 0},
		})
		points = append(points, survey.ImagePoint{
			Name:     fmt.Sprintf("20230101_FL2_%04d", i),
			Location: geometry.Point{X: float64(i) * 9000, Y: float64(i) * 9000},
		})
	}
	points = append(points, survey.ImagePoint{Name: "20230101_FL3_0001", Location: geometry.Point{X: 5, Y: 5}})

	got, err := strips.Assemble(points, scheme)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "FL1", got[0].Label)
	assert.Len(t, got[0].Points, 5)
	assert.InDelta(t, 4000, got[0].Length, 1e-9)
	assert.Equal(t, strips.OrientationHorizontal, got[0].Orientation)
	assert.False(t, got[0].Long)

	assert.Equal(t, "FL2", got[1].Label)
	assert.Equal(t, strips.OrientationOblique, got[1].Orientation)
	assert.True(t, got[1].Long, "oblique strip of %.0f units", got[1].Length)

	assert.Equal(t, strips.OrientationUndetermined, got[2].Orientation)
}

func TestAssembleFailsOnForeignNames(t *testing.T) {
	scheme := naming.Scheme{Kept: map[int]int{2: 3}, Separator: "_"}
	_, err := strips.Assemble([]survey.ImagePoint{{Name: "A_1"}}, scheme)
	require.ErrorIs(t, err, naming.ErrNamingConvention)
}
