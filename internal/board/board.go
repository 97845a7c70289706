package board

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/DoyleJ11/spotshot-backend/internal/shapes"
)

var ErrOutOfBounds = errors.New("cell out of bounds")
var ErrPlacement = errors.New("cannot place objects")
var ErrOverlap = errors.New("placement overlaps or leaves the grid")
var ErrUnknownShape = errors.New("unknown shape")

const (
	maxPlacementAttempts = 256
	maxBoardAttempts     = 16
)

// Wire values of a projected cell.
const (
	ViewNone      = 0
	ViewAttempted = 1
	ViewHit       = 2
	ViewMiss      = 3
)

type CellState uint8

const (
	CellEmpty CellState = iota
	CellOccupied
	CellHit
	CellMiss
)

func (c CellState) Resolved() bool { return c == CellHit || c == CellMiss }

type Placement struct {
	ShapeID  string       `json:"shape_id"`
	Anchor   shapes.Point `json:"anchor"`
	Rotation int          `json:"rotation"`
}

// Footprint returns the absolute cells a placement covers.
func (p Placement) Footprint() ([]shapes.Point, error) {
	s, ok := shapes.Lookup(p.ShapeID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, p.ShapeID)
	}
	pts := s.Rotate(p.Rotation)
	for i := range pts {
		pts[i].X += p.Anchor.X
		pts[i].Y += p.Anchor.Y
	}
	return pts, nil
}

type HitResult struct {
	Hit             bool
	AlreadyResolved bool
}

type Board struct {
	size       int
	cells      []CellState
	placements []Placement
	occupied   int
	hits       int
}

func New(size int) *Board {
	return &Board{size: size, cells: make([]CellState, size*size)}
}

// Generate places numObjects shapes, cycling through shapeIDs, at random
// positions and rotations. It retries a bounded number of times and then
// gives up with ErrPlacement.
func Generate(rng *rand.Rand, size int, shapeIDs []string, numObjects int) (*Board, error) {
	if size <= 0 || numObjects < 0 || (numObjects > 0 && len(shapeIDs) == 0) {
		return nil, fmt.Errorf("%w: grid %d, %d objects of %v", ErrPlacement, size, numObjects, shapeIDs)
	}
	for _, id := range shapeIDs {
		if _, ok := shapes.Lookup(id); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownShape, id)
		}
	}

	for range maxBoardAttempts {
		b := New(size)
		if b.fill(rng, shapeIDs, numObjects) {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %d objects of %v do not fit a %dx%d grid", ErrPlacement, numObjects, shapeIDs, size, size)
}

func (b *Board) fill(rng *rand.Rand, shapeIDs []string, numObjects int) bool {
	for i := range numObjects {
		id := shapeIDs[i%len(shapeIDs)]
		placed := false
		for range maxPlacementAttempts {
			p := Placement{ShapeID: id, Rotation: rng.IntN(4)}
			s, _ := shapes.Lookup(id)
			w, h := shapes.Shape{Offsets: s.Rotate(p.Rotation)}.Extent()
			if w > b.size || h > b.size {
				continue
			}
			p.Anchor = shapes.Point{X: rng.IntN(b.size - w + 1), Y: rng.IntN(b.size - h + 1)}
			if b.Place(p) == nil {
				placed = true
				break
			}
		}
		if !placed {
			return false
		}
	}
	return true
}

// Place adds a placement if every cell is in bounds and unoccupied.
func (b *Board) Place(p Placement) error {
	pts, err := p.Footprint()
	if err != nil {
		return err
	}
	for _, pt := range pts {
		if !b.inBounds(pt.X, pt.Y) || b.cells[b.index(pt.X, pt.Y)] != CellEmpty {
			return fmt.Errorf("%w: %s at (%d,%d)", ErrOverlap, p.ShapeID, pt.X, pt.Y)
		}
	}
	for _, pt := range pts {
		b.cells[b.index(pt.X, pt.Y)] = CellOccupied
	}
	b.placements = append(b.placements, p)
	b.occupied += len(pts)
	return nil
}

// Fire resolves a cell. Firing at an already resolved cell reports
// AlreadyResolved and changes nothing.
func (b *Board) Fire(x, y int) (HitResult, error) {
	if !b.inBounds(x, y) {
		return HitResult{}, fmt.Errorf("%w: (%d,%d) on %dx%d", ErrOutOfBounds, x, y, b.size, b.size)
	}
	i := b.index(x, y)
	switch b.cells[i] {
	case CellHit:
		return HitResult{Hit: true, AlreadyResolved: true}, nil
	case CellMiss:
		return HitResult{AlreadyResolved: true}, nil
	case CellOccupied:
		b.cells[i] = CellHit
		b.hits++
		return HitResult{Hit: true}, nil
	default:
		b.cells[i] = CellMiss
		return HitResult{}, nil
	}
}

func (b *Board) IsFullyDestroyed() bool { return b.hits == b.occupied }

func (b *Board) Size() int { return b.size }

func (b *Board) OccupiedCount() int { return b.occupied }

func (b *Board) Hits() int { return b.hits }

func (b *Board) Placements() []Placement { return slices.Clone(b.placements) }

func (b *Board) Cell(x, y int) (CellState, error) {
	if !b.inBounds(x, y) {
		return CellEmpty, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	return b.cells[b.index(x, y)], nil
}

// ShooterView marks resolved cells as attempted, or as hit/miss when
// revealOutcome is set. Unresolved cells are always 0.
func (b *Board) ShooterView(revealOutcome bool) [][]int {
	return b.project(func(c CellState) int {
		switch {
		case !c.Resolved():
			return ViewNone
		case !revealOutcome:
			return ViewAttempted
		case c == CellHit:
			return ViewHit
		default:
			return ViewMiss
		}
	})
}

func (b *Board) SpotterView() [][]int {
	return b.project(func(c CellState) int {
		switch c {
		case CellHit:
			return ViewHit
		case CellMiss:
			return ViewMiss
		default:
			return ViewNone
		}
	})
}

func (b *Board) project(f func(CellState) int) [][]int {
	grid := make([][]int, b.size)
	for y := range grid {
		grid[y] = make([]int, b.size)
		for x := range grid[y] {
			grid[y][x] = f(b.cells[b.index(x, y)])
		}
	}
	return grid
}

func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	return &Board{
		size:       b.size,
		cells:      slices.Clone(b.cells),
		placements: slices.Clone(b.placements),
		occupied:   b.occupied,
		hits:       b.hits,
	}
}

func (b *Board) inBounds(x, y int) bool { return x >= 0 && y >= 0 && x < b.size && y < b.size }

func (b *Board) index(x, y int) int { return y*b.size + x }
