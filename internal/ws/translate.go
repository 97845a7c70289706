package ws

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/DoyleJ11/spotshot-backend/internal/board"
	"github.com/DoyleJ11/spotshot-backend/internal/engine"
	"github.com/DoyleJ11/spotshot-backend/internal/hub"
	"github.com/DoyleJ11/spotshot-backend/internal/lobby"
	"github.com/DoyleJ11/spotshot-backend/internal/shapes"
	"github.com/DoyleJ11/spotshot-backend/internal/types"
)

// ErrProtocol marks frames the gateway could not understand. The sender gets
// an error frame and the connection stays open.
var ErrProtocol = errors.New("protocol error")

const waitingText = "Waiting for a teammate to join..."

// translate turns one lobby notice into the frames its recipient should see,
// in order.
func translate(n lobby.Notice) []types.ServerMessage {
	if n.Err != nil {
		return []types.ServerMessage{errorFrame(n.Err)}
	}

	v := n.View
	var out []types.ServerMessage
	for _, e := range n.Events {
		switch e.Type {
		case engine.EvtPlayerJoined:
			if e.Seat != v.Seat {
				continue
			}
			out = append(out, types.ServerMessage{Event: types.EvLoginResponse, Data: loginResponse(v)})
			if v.Phase == engine.PhaseWaiting {
				out = append(out, message(types.EvWaitingMessage, waitingText))
			}

		case engine.EvtPlayerRejoined:
			if e.Seat != v.Seat {
				out = append(out, message(types.EvTeammateRejoined, e.Player+" is back."))
				continue
			}
			out = append(out, types.ServerMessage{Event: types.EvLoginResponse, Data: loginResponse(v)})
			if v.Phase == engine.PhaseWaiting {
				out = append(out, message(types.EvWaitingMessage, waitingText))
			} else {
				out = append(out, types.ServerMessage{Event: types.EvGameStart, Data: gameStart(v)})
			}

		case engine.EvtPlayerLeft:
			if e.Seat == v.Seat {
				continue
			}
			text := e.Player + " disconnected. Their seat is held for them."
			if v.Phase == engine.PhaseWaiting {
				text = e.Player + " left. " + waitingText
			}
			out = append(out, message(types.EvTeammateLeft, text))

		case engine.EvtGameStarted:
			out = append(out, types.ServerMessage{Event: types.EvGameStart, Data: gameStart(v)})

		case engine.EvtGameRestarted:
			out = append(out, types.ServerMessage{Event: types.EvGameRestarted, Data: gameStart(v)})

		case engine.EvtShotFired:
			out = append(out, types.ServerMessage{Event: types.EvClickResult, Data: types.ClickResult{
				X:               e.X,
				Y:               e.Y,
				GridView:        v.Grid,
				RemainingClicks: v.RemainingClicks,
				RemainingTime:   seconds(v.RemainingTime),
				AllDestroyed:    v.AllDestroyed,
				PlayerStats:     v.Stats,
			}})

		case engine.EvtTurnEnded:
			out = append(out, types.ServerMessage{Event: types.EvTurnEnded, Data: types.TurnEnded{
				Message:      turnEndedText(e.Reason),
				Reason:       e.Reason,
				GridView:     v.Grid,
				PlayerStats:  v.Stats,
				CurrentLevel: v.Level,
			}})

		case engine.EvtLevelCompleted:
			text := fmt.Sprintf("Level %d complete!", v.Level)
			if v.Phase != engine.PhaseCompleted {
				text += fmt.Sprintf(" Level %d is next.", e.Level)
			}
			out = append(out, types.ServerMessage{Event: types.EvLevelCompleted, Data: types.LevelCompleted{
				Message:   text,
				NextLevel: e.Level,
				GridView:  v.Grid,
			}})

		case engine.EvtGameCompleted:
			out = append(out, types.ServerMessage{Event: types.EvGameCompleted, Data: types.GameCompleted{
				Message:     fmt.Sprintf("All %d levels cleared. Well played!", v.MaxLevels),
				PlayerStats: v.Stats,
			}})

		case engine.EvtTurnAdvanced, engine.EvtLevelStarted:
			text := fmt.Sprintf("Roles switched. You are now the %s.", v.Role)
			if e.Type == engine.EvtLevelStarted {
				text = fmt.Sprintf("Level %d begins. You are the %s.", v.Level, v.Role)
			}
			out = append(out, types.ServerMessage{Event: types.EvNextTurn, Data: types.NextTurn{
				Message:      text,
				YourRole:     v.Role,
				TeammateRole: v.TeammateRole,
				GridView:     v.Grid,
				PlayerStats:  v.Stats,
				CurrentLevel: v.Level,
				ClickLimit:   v.Current.ClickLimit,
				TimeLimit:    seconds(v.Current.TimeLimit),
				NumObjects:   v.Current.NumObjects,
			}})
		}
	}
	return out
}

func loginResponse(v engine.PlayerView) types.LoginResponse {
	return types.LoginResponse{Role: v.Role, Name: v.Name, Seat: v.Seat}
}

func gameStart(v engine.PlayerView) types.GameStart {
	return types.GameStart{
		GameID:       v.GameID,
		YourRole:     v.Role,
		Teammate:     v.Teammate,
		TeammateRole: v.TeammateRole,
		GridSize:     v.GridSize,
		ClickLimit:   v.Current.ClickLimit,
		TimeLimit:    seconds(v.Current.TimeLimit),
		CurrentLevel: v.Level,
		Rounds:       v.MaxLevels,
		NumObjects:   v.Current.NumObjects,
		GridView:     v.Grid,
		PlayerStats:  v.Stats,
	}
}

func turnEndedText(r engine.EndReason) string {
	if r == engine.ReasonTime {
		return "Time's up! Switch roles when ready."
	}
	return "Out of clicks! Switch roles when ready."
}

func message(event, text string) types.ServerMessage {
	return types.ServerMessage{Event: event, Data: types.Message{Message: text}}
}

func errorFrame(err error) types.ServerMessage {
	return types.ServerMessage{Event: types.EvError, Data: types.Error{Code: errorCode(err), Message: err.Error()}}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrProtocol):
		return "protocol"
	case errors.Is(err, engine.ErrNotShooter):
		return "not_shooter"
	case errors.Is(err, engine.ErrNotSeated):
		return "not_seated"
	case errors.Is(err, engine.ErrWrongPhase):
		return "wrong_phase"
	case errors.Is(err, engine.ErrNoClicksLeft):
		return "no_clicks_left"
	case errors.Is(err, engine.ErrAlreadyResolved):
		return "already_resolved"
	case errors.Is(err, engine.ErrGameAlreadyCompleted):
		return "game_completed"
	case errors.Is(err, engine.ErrSessionFull):
		return "session_full"
	case errors.Is(err, engine.ErrNameTaken):
		return "name_taken"
	case errors.Is(err, engine.ErrEmptyName):
		return "empty_name"
	case errors.Is(err, board.ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, hub.ErrNoSuchSession):
		return "no_such_session"
	case errors.Is(err, hub.ErrAlreadyLoggedIn):
		return "already_logged_in"
	case errors.Is(err, lobby.ErrClosed), errors.Is(err, hub.ErrHubClosed):
		return "session_closed"
	case errors.Is(err, board.ErrPlacement):
		return "placement"
	default:
		return "internal"
	}
}

// GameConfig describes the rules for a level. Level 0 means no game yet.
func GameConfig(r engine.Rules, level int) types.GameConfig {
	lr := r.ForLevel(max(level, 1))
	art := make(map[string]string, len(r.Shapes))
	for _, id := range r.Shapes {
		if s, ok := shapes.ASCII(id); ok {
			art[id] = s
		}
	}
	return types.GameConfig{
		GridSize:     r.GridSize,
		TimeLimit:    seconds(lr.TimeLimit),
		ClickLimit:   lr.ClickLimit,
		ShootLimit:   lr.ClickLimit,
		Rounds:       r.MaxLevels,
		ObjectShapes: append([]string(nil), r.Shapes...),
		ShapeASCII:   art,
		NumObjects:   lr.NumObjects,
		CurrentLevel: level,
	}
}

// seconds rounds to a tenth of a second for display.
func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*10) / 10
}
