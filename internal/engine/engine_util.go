package engine

func NewState(id string, rules Rules) State {
	return State{
		ID:      id,
		Phase:   PhaseWaiting,
		Shooter: InitialShooter,
		Rules:   rules.Clone(),
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// SeatOf returns the seat index holding name, or -1.
func (s State) SeatOf(name string) int {
	if name == "" {
		return -1
	}
	for i, seat := range s.Seats {
		if seat.Name == name {
			return i
		}
	}
	return -1
}

func (s State) Full() bool { return !s.Seats[0].Empty() && !s.Seats[1].Empty() }

func (s State) ConnectedCount() int {
	n := 0
	for _, seat := range s.Seats {
		if !seat.Empty() && seat.Connected {
			n++
		}
	}
	return n
}

// Vacant reports whether a new player could be seated right now.
func (s State) Vacant() bool { return s.Phase == PhaseWaiting && !s.Full() }
