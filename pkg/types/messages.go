// Package types documents the websocket protocol for client authors. Every
// frame is a JSON object {"event": string, "data": object}.
package types

// Client -> Server
// login:
//   name: string
//   game_id: string // optional, join this session instead of being matched
//
// click:
//   game_id: string
//   x: number // column, 0-based
//   y: number // row, 0-based
//
// next_turn:
//   game_id: string
//   reason: "no_clicks" | "time_up" // informational
//
// restart_game:
//   game_id: string
//
// get_game_config: {}

// Server -> Client
// login_response:
//   role: "shooter" | "spotter"
//   name: string
//   seat: 0 | 1
//
// waiting_message, teammate_left, teammate_rejoined:
//   message: string
//
// game_start, game_restarted:
//   game_id: string
//   your_role, teammate_role: "shooter" | "spotter"
//   teammate: string
//   grid_size, click_limit, current_level, rounds, num_objects: number
//   time_limit: number // seconds
//   grid_view: GridView
//   player_stats: Stats
//
// click_result:
//   x, y, remaining_clicks: number
//   remaining_time: number // seconds, one decimal
//   all_destroyed: boolean
//   grid_view: GridView
//   player_stats: Stats
//
// turn_ended:
//   message: string
//   reason: "no_clicks" | "time_up"
//   current_level: number
//   grid_view: GridView
//   player_stats: Stats
//
// next_turn:
//   message: string
//   your_role, teammate_role: "shooter" | "spotter"
//   current_level, click_limit, num_objects: number
//   time_limit: number
//   grid_view: GridView
//   player_stats: Stats
//
// level_completed:
//   message: string
//   next_level: number // equals the finished level after the last one
//   grid_view: GridView
//
// game_completed:
//   message: string
//   player_stats: Stats
//
// game_config:
//   grid_size, click_limit, shoot_limit, rounds, num_objects, current_level: number
//   time_limit: number
//   object_shapes: string[]
//   shape_ascii: { [shape]: string } // rows joined by "\n", '#' filled
//
// error (sent only to the client that caused it):
//   code: string
//   message: string
