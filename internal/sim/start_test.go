package sim

import (
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertPoint(t *testing.T, want, got orb.Point) {
	t.Helper()
	assert.InDelta(t, want[0], got[0], 1e-9)
	assert.InDelta(t, want[1], got[1], 1e-9)
}

func TestStartLineSpreadsEvenly(t *testing.T) {
	cfg := StartConfig{Scheme: StartLine, From: orb.Point{0, 0}, To: orb.Point{2, 0}}
	points, err := startPositions(cfg, 3, pitch(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, points, 3)
	assertPoint(t, orb.Point{0, 0}, points[0])
	assertPoint(t, orb.Point{1, 0}, points[1])
	assertPoint(t, orb.Point{2, 0}, points[2])

	single, err := startPositions(cfg, 1, pitch(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assertPoint(t, orb.Point{1, 0}, single[0])
}

func TestStartCircleAndArc(t *testing.T) {
	circle := StartConfig{Scheme: StartCircle, Center: orb.Point{1, 1}, Radius: 2}
	points, err := startPositions(circle, 4, pitch(), nil)
	require.NoError(t, err)
	assertPoint(t, orb.Point{3, 1}, points[0])
	assertPoint(t, orb.Point{1, 3}, points[1])
	assertPoint(t, orb.Point{-1, 1}, points[2])
	assertPoint(t, orb.Point{1, -1}, points[3])

	arc := StartConfig{Scheme: StartArc, Radius: 1, ArcStart: 0, ArcEnd: math.Pi}
	points, err = startPositions(arc, 3, pitch(), nil)
	require.NoError(t, err)
	assertPoint(t, orb.Point{1, 0}, points[0])
	assertPoint(t, orb.Point{0, 1}, points[1])
	assertPoint(t, orb.Point{-1, 0}, points[2])
}

func TestStartRandomSchemesStayInRegion(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 20}}
	rng := rand.New(rand.NewSource(3))

	check := func(scheme StartScheme, minY, maxY float64) {
		points, err := startPositions(StartConfig{Scheme: scheme}, 25, bound, rng)
		require.NoError(t, err)
		for _, p := range points {
			assert.True(t, p[0] >= 0 && p[0] <= 10, "%s x=%v", scheme, p[0])
			assert.True(t, p[1] >= minY && p[1] <= maxY, "%s y=%v", scheme, p[1])
		}
	}
	check(StartRandom, 0, 20)
	check(StartSideline, 0, 0)
	check(StartEndzone, 18, 20)
	check(StartOffense, 0, 10)
	check(StartDefense, 10, 20)
}

func TestStartRandomIsSeeded(t *testing.T) {
	a, err := startPositions(StartConfig{Scheme: StartRandom}, 5, pitch(), rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	b, err := startPositions(StartConfig{Scheme: StartRandom}, 5, pitch(), rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStartSpecificAndCustom(t *testing.T) {
	points, err := startPositions(at(orb.Point{1, 2}, orb.Point{3, 4}), 2, pitch(), nil)
	require.NoError(t, err)
	assert.Equal(t, []orb.Point{{1, 2}, {3, 4}}, points)

	_, err = startPositions(at(orb.Point{1, 2}), 2, pitch(), nil)
	assert.Error(t, err)

	custom := StartConfig{Scheme: StartCustom, Custom: func(i, n int, _ orb.Bound, _ *rand.Rand) orb.Point {
		return orb.Point{float64(i), float64(n)}
	}}
	points, err = startPositions(custom, 2, pitch(), nil)
	require.NoError(t, err)
	assert.Equal(t, []orb.Point{{0, 2}, {1, 2}}, points)
}

func TestStartZeroAndUnknown(t *testing.T) {
	points, err := startPositions(StartConfig{}, 2, pitch(), nil)
	require.NoError(t, err)
	assert.Equal(t, []orb.Point{{0, 0}, {0, 0}}, points)

	_, err = startPositions(StartConfig{Scheme: "spiral"}, 1, pitch(), nil)
	assert.ErrorContains(t, err, "unsupported start scheme")
}
