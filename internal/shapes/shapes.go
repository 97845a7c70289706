package shapes

import (
	"slices"
	"strings"
)

// MinGridSize is the smallest grid every catalog shape fits in, in every rotation.
const MinGridSize = 5

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Shape struct {
	ID      string
	Offsets []Point
}

var catalog = []Shape{
	{ID: "block", Offsets: square(3)},
	{ID: "line", Offsets: []Point{{0, 0}, {1, 0}, {2, 0}}},
	{ID: "ell", Offsets: []Point{{0, 0}, {0, 1}, {1, 1}}},
	{ID: "tee", Offsets: []Point{{0, 0}, {1, 0}, {2, 0}, {1, 1}}},
	{ID: "square", Offsets: square(2)},
}

var asciiArt = func() map[string]string {
	m := make(map[string]string, len(catalog))
	for _, s := range catalog {
		m[s.ID] = render(s.Offsets)
	}
	return m
}()

func square(n int) []Point {
	pts := make([]Point, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			pts = append(pts, Point{x, y})
		}
	}
	return pts
}

// All returns the catalog in display order. Callers get a copy.
func All() []Shape {
	out := make([]Shape, len(catalog))
	for i, s := range catalog {
		out[i] = Shape{ID: s.ID, Offsets: slices.Clone(s.Offsets)}
	}
	return out
}

func IDs() []string {
	ids := make([]string, len(catalog))
	for i, s := range catalog {
		ids[i] = s.ID
	}
	return ids
}

func Lookup(id string) (Shape, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return Shape{ID: s.ID, Offsets: slices.Clone(s.Offsets)}, true
		}
	}
	return Shape{}, false
}

func ASCII(id string) (string, bool) {
	art, ok := asciiArt[id]
	return art, ok
}

// Cells is the footprint size.
func (s Shape) Cells() int { return len(s.Offsets) }

// Extent returns the bounding box width and height of the footprint.
func (s Shape) Extent() (w, h int) {
	for _, p := range s.Offsets {
		w = max(w, p.X+1)
		h = max(h, p.Y+1)
	}
	return w, h
}

// Rotate returns the footprint turned clockwise n quarter turns, shifted back
// so that the smallest x and y are both zero.
func (s Shape) Rotate(n int) []Point {
	n = ((n % 4) + 4) % 4
	pts := slices.Clone(s.Offsets)
	for range n {
		for i, p := range pts {
			pts[i] = Point{X: -p.Y, Y: p.X}
		}
		pts = normalize(pts)
	}
	return pts
}

func normalize(pts []Point) []Point {
	if len(pts) == 0 {
		return pts
	}
	minX, minY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
	}
	for i := range pts {
		pts[i].X -= minX
		pts[i].Y -= minY
	}
	slices.SortFunc(pts, func(a, b Point) int {
		if a.Y != b.Y {
			return a.Y - b.Y
		}
		return a.X - b.X
	})
	return pts
}

func render(offsets []Point) string {
	w, h := Shape{Offsets: offsets}.Extent()
	rows := make([][]byte, h)
	for y := range rows {
		rows[y] = []byte(strings.Repeat(".", w))
	}
	for _, p := range offsets {
		rows[p.Y][p.X] = '#'
	}
	lines := make([]string, h)
	for y, r := range rows {
		lines[y] = string(r)
	}
	return strings.Join(lines, "\n")
}
