package engine

// InitialShooter is the seat that shoots first in a new or restarted game:
// the first player to join.
const InitialShooter = 0

func Teammate(seat int) int { return 1 - seat }

func RoleOf(s State, seat int) Role {
	if seat == s.Shooter {
		return RoleShooter
	}
	return RoleSpotter
}

func swapRoles(s State) State {
	s.Shooter = Teammate(s.Shooter)
	return s
}
