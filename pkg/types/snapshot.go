package types

// GridView: number[][] indexed [y][x]
//   0 nothing known
//   1 attempted, outcome hidden (shooter view when results are not shown)
//   2 hit
//   3 miss
// Cells holding an object are never marked until they are shot.
//
// Stats:
//   turns_played, total_hits, total_misses, total_clicks: number
