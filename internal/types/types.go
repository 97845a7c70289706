package types

import (
	"encoding/json"

	"github.com/DoyleJ11/spotshot-backend/internal/engine"
)

// Client -> server event names.
const (
	EvLogin         = "login"
	EvClick         = "click"
	EvNextTurn      = "next_turn"
	EvRestartGame   = "restart_game"
	EvGetGameConfig = "get_game_config"
)

// Server -> client event names.
const (
	EvLoginResponse    = "login_response"
	EvWaitingMessage   = "waiting_message"
	EvGameStart        = "game_start"
	EvGameRestarted    = "game_restarted"
	EvClickResult      = "click_result"
	EvTurnEnded        = "turn_ended"
	EvLevelCompleted   = "level_completed"
	EvGameCompleted    = "game_completed"
	EvGameConfig       = "game_config"
	EvTeammateLeft     = "teammate_left"
	EvTeammateRejoined = "teammate_rejoined"
	EvError            = "error"
)

type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ServerMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type LoginRequest struct {
	Name   string `json:"name"`
	GameID string `json:"game_id,omitempty"`
}

type ClickRequest struct {
	GameID string `json:"game_id"`
	X      *int   `json:"x"`
	Y      *int   `json:"y"`
}

type NextTurnRequest struct {
	GameID string `json:"game_id"`
	Reason string `json:"reason,omitempty"`
}

type RestartRequest struct {
	GameID string `json:"game_id"`
}

type LoginResponse struct {
	Role engine.Role `json:"role"`
	Name string      `json:"name"`
	Seat int         `json:"seat"`
}

type Message struct {
	Message string `json:"message"`
}

// GameStart is sent for game_start and game_restarted.
type GameStart struct {
	GameID       string       `json:"game_id"`
	YourRole     engine.Role  `json:"your_role"`
	Teammate     string       `json:"teammate"`
	TeammateRole engine.Role  `json:"teammate_role"`
	GridSize     int          `json:"grid_size"`
	ClickLimit   int          `json:"click_limit"`
	TimeLimit    float64      `json:"time_limit"`
	CurrentLevel int          `json:"current_level"`
	Rounds       int          `json:"rounds"`
	NumObjects   int          `json:"num_objects"`
	GridView     [][]int      `json:"grid_view"`
	PlayerStats  engine.Stats `json:"player_stats"`
}

type ClickResult struct {
	X               int          `json:"x"`
	Y               int          `json:"y"`
	GridView        [][]int      `json:"grid_view"`
	RemainingClicks int          `json:"remaining_clicks"`
	RemainingTime   float64      `json:"remaining_time"`
	AllDestroyed    bool         `json:"all_destroyed"`
	PlayerStats     engine.Stats `json:"player_stats"`
}

type TurnEnded struct {
	Message      string           `json:"message"`
	Reason       engine.EndReason `json:"reason"`
	GridView     [][]int          `json:"grid_view"`
	PlayerStats  engine.Stats     `json:"player_stats"`
	CurrentLevel int              `json:"current_level"`
}

type NextTurn struct {
	Message      string       `json:"message"`
	YourRole     engine.Role  `json:"your_role"`
	TeammateRole engine.Role  `json:"teammate_role"`
	GridView     [][]int      `json:"grid_view"`
	PlayerStats  engine.Stats `json:"player_stats"`
	CurrentLevel int          `json:"current_level"`
	ClickLimit   int          `json:"click_limit"`
	TimeLimit    float64      `json:"time_limit"`
	NumObjects   int          `json:"num_objects"`
}

type LevelCompleted struct {
	Message   string  `json:"message"`
	NextLevel int     `json:"next_level"`
	GridView  [][]int `json:"grid_view"`
}

type GameCompleted struct {
	Message     string       `json:"message"`
	PlayerStats engine.Stats `json:"player_stats"`
}

type GameConfig struct {
	GridSize     int               `json:"grid_size"`
	TimeLimit    float64           `json:"time_limit"`
	ClickLimit   int               `json:"click_limit"`
	ShootLimit   int               `json:"shoot_limit"`
	Rounds       int               `json:"rounds"`
	ObjectShapes []string          `json:"object_shapes"`
	ShapeASCII   map[string]string `json:"shape_ascii"`
	NumObjects   int               `json:"num_objects"`
	CurrentLevel int               `json:"current_level"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
