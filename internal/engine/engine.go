package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/spotshot-backend/internal/board"
)

var ErrWrongPhase = errors.New("not allowed in current phase")
var ErrNotShooter = errors.New("only the shooter can fire")
var ErrNotSeated = errors.New("player is not seated in this session")
var ErrNoClicksLeft = errors.New("no clicks left this turn")
var ErrAlreadyResolved = errors.New("cell already resolved")
var ErrSessionFull = errors.New("session is full")
var ErrNameTaken = errors.New("name already in use in this session")
var ErrEmptyName = errors.New("empty player name")
var ErrTimerNotExpired = errors.New("turn timer has not expired")
var ErrGameAlreadyCompleted = errors.New("game already completed")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Role string

const (
	RoleShooter Role = "shooter"
	RoleSpotter Role = "spotter"
)

type Phase string

const (
	PhaseWaiting         Phase = "waiting_for_players"
	PhaseInProgress      Phase = "in_progress"
	PhaseTurnEnded       Phase = "turn_ended"
	PhaseLevelTransition Phase = "level_transition"
	PhaseCompleted       Phase = "completed"
)

type Seat struct {
	Name      string
	Connected bool
}

func (s Seat) Empty() bool { return s.Name == "" }

type Stats struct {
	TurnsPlayed int `json:"turns_played"`
	TotalHits   int `json:"total_hits"`
	TotalMisses int `json:"total_misses"`
	TotalClicks int `json:"total_clicks"`
}

type State struct {
	ID      string
	Phase   Phase
	Level   int
	Turn    int
	Seats   [2]Seat
	Shooter int // seat index currently holding the shooter role
	Stats   [2]Stats
	Board   *board.Board

	RemainingClicks int
	// Zero until the first accepted shot of the turn.
	TimerStartedAt time.Time
	// Set when the turn stops running so the remaining time freezes.
	TimerStoppedAt time.Time

	Rules Rules
}

type CommandType string

const (
	CmdJoin        CommandType = "Join"
	CmdLeave       CommandType = "Leave"
	CmdFire        CommandType = "Fire"
	CmdNextTurn    CommandType = "NextTurn"
	CmdTimeExpired CommandType = "TimeExpired"
	CmdRestart     CommandType = "Restart"
)

/*
	CmdJoin        -> EvtPlayerJoined [-> EvtGameStarted] | EvtPlayerRejoined
	CmdLeave       -> EvtPlayerLeft
	CmdFire        -> EvtShotFired [-> EvtTimerStarted] [-> EvtTurnEnded | EvtLevelCompleted [-> EvtGameCompleted]]
	                  or EvtTurnEnded alone when the clock already ran out
	CmdTimeExpired -> EvtTurnEnded
	CmdNextTurn    -> EvtTurnAdvanced | EvtLevelStarted
	CmdRestart     -> EvtGameRestarted
*/

type Command struct {
	Type   CommandType
	Player string
	X, Y   int
	At     time.Time
}

type EventType string

const (
	EvtPlayerJoined   EventType = "PlayerJoined"
	EvtPlayerRejoined EventType = "PlayerRejoined"
	EvtPlayerLeft     EventType = "PlayerLeft"
	EvtGameStarted    EventType = "GameStarted"
	EvtShotFired      EventType = "ShotFired"
	EvtTimerStarted   EventType = "TimerStarted"
	EvtTurnEnded      EventType = "TurnEnded"
	EvtTurnAdvanced   EventType = "TurnAdvanced"
	EvtLevelCompleted EventType = "LevelCompleted"
	EvtLevelStarted   EventType = "LevelStarted"
	EvtGameCompleted  EventType = "GameCompleted"
	EvtGameRestarted  EventType = "GameRestarted"
)

type EndReason string

const (
	ReasonClicks EndReason = "no_clicks"
	ReasonTime   EndReason = "time_up"
)

type Event struct {
	Type   EventType
	Seat   int
	Player string
	X, Y   int
	Hit    bool
	Reason EndReason
	Level  int
}

// Apply validates cmd against s and returns the resulting events and state.
// On error the returned state is s, untouched.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdJoin:
		return join(s, cmd)
	case CmdLeave:
		return leave(s, cmd)
	case CmdFire:
		return fire(s, cmd)
	case CmdTimeExpired:
		return timeExpired(s, cmd)
	case CmdNextTurn:
		return nextTurn(s, cmd)
	case CmdRestart:
		return restart(s, cmd)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func join(s State, cmd Command) ([]Event, State, error) {
	if cmd.Player == "" {
		return nil, s, ErrEmptyName
	}

	if i := s.SeatOf(cmd.Player); i >= 0 {
		if s.Seats[i].Connected {
			return nil, s, ErrNameTaken
		}
		newState := s
		newState.Seats[i].Connected = true
		return []Event{{Type: EvtPlayerRejoined, Seat: i, Player: cmd.Player}}, newState, nil
	}

	free := -1
	for i, seat := range s.Seats {
		if seat.Empty() {
			free = i
			break
		}
	}
	if free < 0 || s.Phase != PhaseWaiting {
		return nil, s, ErrSessionFull
	}

	newState := s
	newState.Seats[free] = Seat{Name: cmd.Player, Connected: true}
	events := []Event{{Type: EvtPlayerJoined, Seat: free, Player: cmd.Player}}

	if newState.Seats[0].Empty() || newState.Seats[1].Empty() {
		return events, newState, nil
	}

	started, err := startGame(newState)
	if err != nil {
		return nil, s, err
	}
	events = append(events, Event{Type: EvtGameStarted, Level: started.Level})
	return events, started, nil
}

func leave(s State, cmd Command) ([]Event, State, error) {
	i := s.SeatOf(cmd.Player)
	if i < 0 {
		return nil, s, ErrNotSeated
	}

	newState := s
	events := []Event{{Type: EvtPlayerLeft, Seat: i, Player: cmd.Player}}

	if s.Phase == PhaseWaiting || s.Rules.Disconnect == PolicyReopen {
		newState.Seats[i] = Seat{}
		if s.Phase != PhaseWaiting {
			newState = stopTimer(newState, cmd.At)
			newState.Phase = PhaseWaiting
		}
		return events, newState, nil
	}

	newState.Seats[i].Connected = false
	return events, newState, nil
}

func fire(s State, cmd Command) ([]Event, State, error) {
	seat := s.SeatOf(cmd.Player)
	if seat < 0 {
		return nil, s, ErrNotSeated
	}
	if s.Phase != PhaseInProgress {
		if s.Phase == PhaseCompleted {
			return nil, s, ErrGameAlreadyCompleted
		}
		return nil, s, fmt.Errorf("%w: fire during %s", ErrWrongPhase, s.Phase)
	}
	if seat != s.Shooter {
		return nil, s, ErrNotShooter
	}
	if s.RemainingClicks <= 0 {
		return nil, s, ErrNoClicksLeft
	}

	// The clock is authoritative: a shot that arrives after it ran out ends
	// the turn instead of landing.
	if !s.TimerStartedAt.IsZero() && RemainingTime(s, cmd.At) <= 0 {
		newState := endTurn(s, cmd.At)
		return []Event{{Type: EvtTurnEnded, Seat: seat, Reason: ReasonTime}}, newState, nil
	}

	b := s.Board.Clone()
	res, err := b.Fire(cmd.X, cmd.Y)
	if err != nil {
		return nil, s, err
	}
	if res.AlreadyResolved {
		return nil, s, fmt.Errorf("%w: (%d,%d)", ErrAlreadyResolved, cmd.X, cmd.Y)
	}

	newState := s
	newState.Board = b
	newState.RemainingClicks--
	newState.Stats[seat].TotalClicks++
	if res.Hit {
		newState.Stats[seat].TotalHits++
	} else {
		newState.Stats[seat].TotalMisses++
	}

	events := []Event{{Type: EvtShotFired, Seat: seat, Player: cmd.Player, X: cmd.X, Y: cmd.Y, Hit: res.Hit}}

	if newState.TimerStartedAt.IsZero() {
		newState.TimerStartedAt = cmd.At
		events = append(events, Event{Type: EvtTimerStarted, Seat: seat})
	}

	switch {
	case b.IsFullyDestroyed():
		newState = stopTimer(newState, cmd.At)
		if s.Level >= s.Rules.MaxLevels {
			newState.Phase = PhaseCompleted
			events = append(events,
				Event{Type: EvtLevelCompleted, Level: s.Level},
				Event{Type: EvtGameCompleted, Level: s.Level},
			)
		} else {
			newState.Phase = PhaseLevelTransition
			events = append(events, Event{Type: EvtLevelCompleted, Level: s.Level + 1})
		}
	case newState.RemainingClicks == 0:
		newState = endTurn(newState, cmd.At)
		events = append(events, Event{Type: EvtTurnEnded, Seat: seat, Reason: ReasonClicks})
	}

	return events, newState, nil
}

func timeExpired(s State, cmd Command) ([]Event, State, error) {
	if s.Phase != PhaseInProgress || s.TimerStartedAt.IsZero() || RemainingTime(s, cmd.At) > 0 {
		return nil, s, ErrTimerNotExpired
	}
	return []Event{{Type: EvtTurnEnded, Seat: s.Shooter, Reason: ReasonTime}}, endTurn(s, cmd.At), nil
}

func nextTurn(s State, cmd Command) ([]Event, State, error) {
	if s.SeatOf(cmd.Player) < 0 {
		return nil, s, ErrNotSeated
	}

	switch s.Phase {
	case PhaseTurnEnded:
		newState := advanceTurn(s)
		return []Event{{Type: EvtTurnAdvanced, Seat: newState.Shooter, Level: newState.Level}}, newState, nil

	case PhaseLevelTransition:
		newState := advanceTurn(s)
		newState.Level++
		b, err := generateBoard(s.Rules, newState.Level)
		if err != nil {
			return nil, s, err
		}
		newState.Board = b
		newState.RemainingClicks = s.Rules.ForLevel(newState.Level).ClickLimit
		return []Event{{Type: EvtLevelStarted, Seat: newState.Shooter, Level: newState.Level}}, newState, nil

	case PhaseCompleted:
		return nil, s, ErrGameAlreadyCompleted

	default:
		return nil, s, fmt.Errorf("%w: next turn during %s", ErrWrongPhase, s.Phase)
	}
}

func restart(s State, cmd Command) ([]Event, State, error) {
	if s.SeatOf(cmd.Player) < 0 {
		return nil, s, ErrNotSeated
	}
	if s.Phase == PhaseWaiting {
		return nil, s, fmt.Errorf("%w: restart while waiting for players", ErrWrongPhase)
	}

	newState, err := startGame(s)
	if err != nil {
		return nil, s, err
	}
	return []Event{{Type: EvtGameRestarted, Seat: newState.Shooter, Level: newState.Level}}, newState, nil
}

func startGame(s State) (State, error) {
	b, err := generateBoard(s.Rules, 1)
	if err != nil {
		return s, err
	}

	s.Phase = PhaseInProgress
	s.Level = 1
	s.Turn = 1
	s.Shooter = InitialShooter
	s.Stats = [2]Stats{}
	s.Board = b
	s.RemainingClicks = s.Rules.ForLevel(1).ClickLimit
	s.TimerStartedAt = time.Time{}
	s.TimerStoppedAt = time.Time{}
	return s, nil
}

func endTurn(s State, at time.Time) State {
	s = stopTimer(s, at)
	s.Phase = PhaseTurnEnded
	return s
}

func stopTimer(s State, at time.Time) State {
	if !s.TimerStartedAt.IsZero() && s.TimerStoppedAt.IsZero() {
		s.TimerStoppedAt = at
	}
	return s
}

// advanceTurn swaps roles and resets the per-turn budget. The board is kept.
func advanceTurn(s State) State {
	s = swapRoles(s)
	for i := range s.Stats {
		s.Stats[i].TurnsPlayed++
	}
	s.Turn++
	s.Phase = PhaseInProgress
	s.RemainingClicks = s.Rules.ForLevel(s.Level).ClickLimit
	s.TimerStartedAt = time.Time{}
	s.TimerStoppedAt = time.Time{}
	return s
}

// RemainingTime is the turn's time budget left at now. It is the full limit
// until the first shot, never negative, and frozen once the turn stops.
func RemainingTime(s State, now time.Time) time.Duration {
	limit := s.Rules.ForLevel(max(s.Level, 1)).TimeLimit
	if s.TimerStartedAt.IsZero() {
		return limit
	}
	end := now
	if !s.TimerStoppedAt.IsZero() {
		end = s.TimerStoppedAt
	}
	elapsed := end.Sub(s.TimerStartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return max(limit-elapsed, 0)
}
