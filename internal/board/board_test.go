package board

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/spotshot-backend/internal/shapes"
)

func lineAt(x, y int) *Board {
	b := New(5)
	if err := b.Place(Placement{ShapeID: "line", Anchor: shapes.Point{X: x, Y: y}}); err != nil {
		panic(err)
	}
	return b
}

func TestGenerate_FootprintsNoOverlapInBounds(t *testing.T) {
	cases := []struct {
		name   string
		size   int
		shapes []string
		n      int
	}{
		{"defaults", 15, []string{"block"}, 3},
		{"single line on min grid", shapes.MinGridSize, []string{"line"}, 1},
		{"mixed shapes", 10, []string{"line", "ell", "tee", "square"}, 8},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for seed := uint64(0); seed < 50; seed++ {
				rng := rand.New(rand.NewPCG(seed, 7))
				b, err := Generate(rng, tc.size, tc.shapes, tc.n)
				require.NoError(t, err)

				want := 0
				seen := map[shapes.Point]bool{}
				for _, p := range b.Placements() {
					pts, err := p.Footprint()
					require.NoError(t, err)
					want += len(pts)
					for _, pt := range pts {
						require.False(t, seen[pt], "overlap at %v", pt)
						seen[pt] = true
						require.True(t, pt.X >= 0 && pt.Y >= 0 && pt.X < tc.size && pt.Y < tc.size)
					}
				}
				require.Len(t, b.Placements(), tc.n)
				require.Equal(t, want, b.OccupiedCount())

				occupied := 0
				for y := 0; y < tc.size; y++ {
					for x := 0; x < tc.size; x++ {
						c, _ := b.Cell(x, y)
						if c == CellOccupied {
							occupied++
						}
					}
				}
				require.Equal(t, want, occupied)
			}
		})
	}
}

func TestGenerate_ImpossibleFailsWithPlacementError(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	_, err := Generate(rng, 5, []string{"block"}, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPlacement))

	_, err = Generate(rng, 0, []string{"line"}, 1)
	assert.True(t, errors.Is(err, ErrPlacement))

	_, err = Generate(rng, 5, []string{"hexagon"}, 1)
	assert.True(t, errors.Is(err, ErrUnknownShape))
}

func TestFire_SecondShotIsAlreadyResolved(t *testing.T) {
	b := lineAt(1, 1)

	res, err := b.Fire(1, 1)
	require.NoError(t, err)
	assert.Equal(t, HitResult{Hit: true}, res)

	res, err = b.Fire(1, 1)
	require.NoError(t, err)
	assert.True(t, res.AlreadyResolved)
	assert.Equal(t, 1, b.Hits())

	res, err = b.Fire(0, 0)
	require.NoError(t, err)
	assert.False(t, res.Hit)
	res, _ = b.Fire(0, 0)
	assert.True(t, res.AlreadyResolved)
	assert.False(t, res.Hit)
}

func TestFire_OutOfBounds(t *testing.T) {
	b := lineAt(0, 0)
	for _, pt := range []shapes.Point{{X: -1, Y: 0}, {X: 0, Y: -1}, {X: 5, Y: 0}, {X: 0, Y: 5}} {
		_, err := b.Fire(pt.X, pt.Y)
		assert.True(t, errors.Is(err, ErrOutOfBounds), "%v", pt)
	}
}

func TestIsFullyDestroyed(t *testing.T) {
	b := lineAt(2, 4)
	assert.False(t, b.IsFullyDestroyed())

	_, _ = b.Fire(2, 4)
	_, _ = b.Fire(3, 4)
	_, _ = b.Fire(0, 0)
	assert.False(t, b.IsFullyDestroyed(), "one occupied cell still unresolved")

	_, _ = b.Fire(4, 4)
	assert.True(t, b.IsFullyDestroyed())
}

func TestViews_NeverLeakOccupancy(t *testing.T) {
	b := lineAt(0, 0)
	_, _ = b.Fire(0, 0) // hit
	_, _ = b.Fire(4, 4) // miss

	spotter := b.SpotterView()
	assert.Equal(t, ViewHit, spotter[0][0])
	assert.Equal(t, ViewMiss, spotter[4][4])
	assert.Equal(t, ViewNone, spotter[0][1], "unresolved occupied cell")

	shooter := b.ShooterView(false)
	assert.Equal(t, ViewAttempted, shooter[0][0])
	assert.Equal(t, ViewAttempted, shooter[4][4])
	assert.Equal(t, ViewNone, shooter[0][1])

	revealed := b.ShooterView(true)
	assert.Equal(t, ViewHit, revealed[0][0])
	assert.Equal(t, ViewMiss, revealed[4][4])
	assert.Equal(t, ViewNone, revealed[0][2])
}

func TestPlace_RejectsOverlapAndOutOfBounds(t *testing.T) {
	b := lineAt(0, 0)
	err := b.Place(Placement{ShapeID: "line", Anchor: shapes.Point{X: 2, Y: 0}})
	assert.True(t, errors.Is(err, ErrOverlap))

	err = b.Place(Placement{ShapeID: "line", Anchor: shapes.Point{X: 3, Y: 2}})
	assert.True(t, errors.Is(err, ErrOverlap))
	assert.Equal(t, 3, b.OccupiedCount())
}

func TestClone_IsIndependent(t *testing.T) {
	b := lineAt(0, 0)
	c := b.Clone()
	_, _ = c.Fire(0, 0)

	cell, _ := b.Cell(0, 0)
	assert.Equal(t, CellOccupied, cell)
	assert.Equal(t, 0, b.Hits())
	assert.Equal(t, 1, c.Hits())
}
