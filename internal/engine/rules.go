package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/DoyleJ11/spotshot-backend/internal/board"
	"github.com/DoyleJ11/spotshot-backend/internal/shapes"
)

var ErrInvalidRules = errors.New("invalid game rules")

// DisconnectPolicy decides what a dropped connection does to its seat.
type DisconnectPolicy string

const (
	// PolicyHold keeps the seat for the same name to reconnect.
	PolicyHold DisconnectPolicy = "hold"
	// PolicyReopen frees the seat; the session waits for any new player.
	PolicyReopen DisconnectPolicy = "reopen"
)

type Rules struct {
	GridSize   int
	ClickLimit int
	TimeLimit  time.Duration
	NumObjects int
	MaxLevels  int
	Shapes     []string

	// Difficulty progression applied per level after the first.
	ObjectsPerLevel   int
	ClicksPerLevel    int
	MinClickLimit     int
	ShooterSeesResult bool
	Disconnect        DisconnectPolicy
}

type LevelRules struct {
	Level      int
	NumObjects int
	ClickLimit int
	TimeLimit  time.Duration
}

func DefaultRules() Rules {
	return Rules{
		GridSize:        15,
		ClickLimit:      15,
		TimeLimit:       15 * time.Second,
		NumObjects:      3,
		MaxLevels:       4,
		Shapes:          []string{"block"},
		ObjectsPerLevel: 1,
		MinClickLimit:   1,
		Disconnect:      PolicyHold,
	}
}

func (r Rules) ForLevel(level int) LevelRules {
	step := max(level-1, 0)
	return LevelRules{
		Level:      level,
		NumObjects: r.NumObjects + step*r.ObjectsPerLevel,
		ClickLimit: max(r.ClickLimit-step*r.ClicksPerLevel, r.MinClickLimit, 1),
		TimeLimit:  r.TimeLimit,
	}
}

// Validate checks the static parameters. It does not try to place boards;
// see CheckPlacement.
func (r Rules) Validate() error {
	switch {
	case r.GridSize < shapes.MinGridSize:
		return fmt.Errorf("%w: grid size %d below minimum %d", ErrInvalidRules, r.GridSize, shapes.MinGridSize)
	case r.ClickLimit <= 0:
		return fmt.Errorf("%w: click limit must be positive", ErrInvalidRules)
	case r.TimeLimit <= 0:
		return fmt.Errorf("%w: time limit must be positive", ErrInvalidRules)
	case r.NumObjects <= 0:
		return fmt.Errorf("%w: object count must be positive", ErrInvalidRules)
	case r.MaxLevels <= 0:
		return fmt.Errorf("%w: rounds must be positive", ErrInvalidRules)
	case r.ObjectsPerLevel < 0 || r.ClicksPerLevel < 0:
		return fmt.Errorf("%w: progression steps cannot be negative", ErrInvalidRules)
	case len(r.Shapes) == 0:
		return fmt.Errorf("%w: no shapes configured", ErrInvalidRules)
	case r.Disconnect != PolicyHold && r.Disconnect != PolicyReopen:
		return fmt.Errorf("%w: unknown disconnect policy %q", ErrInvalidRules, r.Disconnect)
	}
	for _, id := range r.Shapes {
		if _, ok := shapes.Lookup(id); !ok {
			return fmt.Errorf("%w: unknown shape %q (known: %v)", ErrInvalidRules, id, shapes.IDs())
		}
	}
	return nil
}

// placementChecks is how many boards CheckPlacement must generate per level.
const placementChecks = 8

// CheckPlacement rejects levels whose objects cannot cover fewer cells than
// the grid holds, then generates several boards per level so a configuration
// that only fits by luck fails at startup rather than mid-game.
func (r Rules) CheckPlacement() error {
	area := r.GridSize * r.GridSize
	for level := 1; level <= r.MaxLevels; level++ {
		n := r.ForLevel(level).NumObjects
		if cells := r.footprintCells(n); cells > area {
			return fmt.Errorf("level %d: %w: %d objects need %d cells, grid has %d",
				level, board.ErrPlacement, n, cells, area)
		}
		for range placementChecks {
			if _, err := generateBoard(r, level); err != nil {
				return fmt.Errorf("level %d: %w", level, err)
			}
		}
	}
	return nil
}

// footprintCells counts the cells n objects occupy, cycling through the
// shapes the way board generation does.
func (r Rules) footprintCells(n int) int {
	if len(r.Shapes) == 0 {
		return 0
	}
	cells := 0
	for i := range n {
		if s, ok := shapes.Lookup(r.Shapes[i%len(r.Shapes)]); ok {
			cells += s.Cells()
		}
	}
	return cells
}

func (r Rules) Clone() Rules {
	r.Shapes = slices.Clone(r.Shapes)
	return r
}

var generateBoard = func(r Rules, level int) (*board.Board, error) {
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	return board.Generate(rng, r.GridSize, r.Shapes, r.ForLevel(level).NumObjects)
}
