package engine

import (
	"time"

	"github.com/DoyleJ11/spotshot-backend/internal/board"
)

// PlayerView is what one seat is allowed to see of a session.
type PlayerView struct {
	GameID            string
	Seat              int
	Name              string
	Role              Role
	Teammate          string
	TeammateRole      Role
	TeammateConnected bool

	Phase     Phase
	Level     int
	Turn      int
	MaxLevels int
	GridSize  int
	Current   LevelRules

	Grid            [][]int
	RemainingClicks int
	RemainingTime   time.Duration
	AllDestroyed    bool
	Stats           Stats
}

func Project(s State, seat int, now time.Time) PlayerView {
	mate := Teammate(seat)
	role := RoleOf(s, seat)
	level := max(s.Level, 1)

	v := PlayerView{
		GameID:            s.ID,
		Seat:              seat,
		Name:              s.Seats[seat].Name,
		Role:              role,
		Teammate:          s.Seats[mate].Name,
		TeammateRole:      RoleOf(s, mate),
		TeammateConnected: s.Seats[mate].Connected,
		Phase:             s.Phase,
		Level:             level,
		Turn:              s.Turn,
		MaxLevels:         s.Rules.MaxLevels,
		GridSize:          s.Rules.GridSize,
		Current:           s.Rules.ForLevel(level),
		RemainingClicks:   s.RemainingClicks,
		RemainingTime:     RemainingTime(s, now),
		Stats:             s.Stats[seat],
	}

	if s.Board == nil {
		v.Grid = board.New(s.Rules.GridSize).SpotterView()
		return v
	}
	v.AllDestroyed = s.Board.IsFullyDestroyed()
	if role == RoleShooter {
		v.Grid = s.Board.ShooterView(s.Rules.ShooterSeesResult)
	} else {
		v.Grid = s.Board.SpotterView()
	}
	return v
}
