package shapes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryShapeFitsMinGrid(t *testing.T) {
	for _, s := range All() {
		for r := 0; r < 4; r++ {
			rotated := Shape{ID: s.ID, Offsets: s.Rotate(r)}
			w, h := rotated.Extent()
			assert.LessOrEqual(t, w, MinGridSize, "%s rotated %d", s.ID, r)
			assert.LessOrEqual(t, h, MinGridSize, "%s rotated %d", s.ID, r)
			assert.Equal(t, s.Cells(), rotated.Cells())
		}
	}
}

func TestRotateQuarterTurns(t *testing.T) {
	line, ok := Lookup("line")
	require.True(t, ok)

	vertical := line.Rotate(1)
	assert.Equal(t, []Point{{0, 0}, {0, 1}, {0, 2}}, vertical)
	assert.ElementsMatch(t, line.Offsets, line.Rotate(4))
	assert.ElementsMatch(t, line.Rotate(-1), line.Rotate(3))
}

func TestASCII(t *testing.T) {
	art, ok := ASCII("block")
	require.True(t, ok)
	assert.Equal(t, "###\n###\n###", art)

	art, ok = ASCII("ell")
	require.True(t, ok)
	assert.Equal(t, "#.\n##", art)

	_, ok = ASCII("nope")
	assert.False(t, ok)
}

func TestAllReturnsCopies(t *testing.T) {
	first := All()
	first[0].Offsets[0] = Point{9, 9}
	again, _ := Lookup(first[0].ID)
	assert.Equal(t, Point{0, 0}, again.Offsets[0])
	assert.Equal(t, IDs()[0], first[0].ID)
}
