package lobby

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/spotshot-backend/internal/engine"
	"github.com/DoyleJ11/spotshot-backend/internal/store"
)

var ErrUnknownClient = errors.New("client not in this session")
var ErrClosed = errors.New("session closed")

type Msg interface{ isLobbyMsg() }

type FromClient struct {
	ClientID string
	Cmd      engine.Command
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ClientID string
	Name     string
	Outbox   chan Notice // where this client wants to receive notices
	Reply    chan JoinResult
}

func (Join) isLobbyMsg() {}

type JoinResult struct {
	Seat   int
	Role   engine.Role
	Vacant bool
	Err    error
}

type Leave struct {
	ClientID string
	Reply    chan LeaveResult // may be nil
}

func (Leave) isLobbyMsg() {}

type LeaveResult struct {
	Vacant    bool
	Connected int
	Err       error
}

// TimerFired is posted by the turn timer. Gen must match the lobby's current
// generation or the message is stale and dropped.
type TimerFired struct{ Gen int }

func (TimerFired) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// Notice is what one client receives: the events of a change plus its own
// projection of the resulting state, or a rejection meant only for it.
type Notice struct {
	Version int
	Events  []engine.Event
	View    engine.PlayerView
	Err     error
}

type View struct {
	Version    int
	Gen        int
	NumClients int
	TimerArmed bool
	State      engine.State
}

// Recorder receives finished games. Submit must not block.
type Recorder interface {
	Submit(store.GameResult)
}

type client struct {
	name string
	seat int
	out  chan Notice // nil once dropped
}

type Lobby struct {
	id      string
	inbox   chan Msg
	state   engine.State
	version int
	gen     int
	timer   *time.Timer
	clients map[string]*client

	now      func() time.Time
	log      *zap.Logger
	recorder Recorder

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Lobby)

func WithClock(now func() time.Time) Option { return func(l *Lobby) { l.now = now } }

func WithLogger(log *zap.Logger) Option { return func(l *Lobby) { l.log = log } }

func WithRecorder(r Recorder) Option { return func(l *Lobby) { l.recorder = r } }

func NewLobby(parent context.Context, initial engine.State, opts ...Option) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		id:      initial.ID,
		inbox:   make(chan Msg, 64), // Small buffer
		state:   initial,
		clients: make(map[string]*client),
		now:     time.Now,
		log:     zap.NewNop(),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.Named("lobby").With(zap.String("session_id", initial.ID))

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Reply <- l.join(msg)

			case Leave:
				res := l.leave(msg.ClientID)
				if msg.Reply != nil {
					msg.Reply <- res
				}

			case FromClient:
				l.fromClient(msg)

			case TimerFired:
				l.timerFired(msg.Gen)

			case GetState:
				// test-only: reflect internal state without data races
				msg.Reply <- View{
					Version:    l.version,
					Gen:        l.gen,
					NumClients: l.numClients(),
					TimerArmed: l.timer != nil,
					State:      l.state,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) join(msg Join) JoinResult {
	events, next, err := engine.Apply(l.state, engine.Command{Type: engine.CmdJoin, Player: msg.Name, At: l.now()})
	if err != nil {
		l.log.Info("join rejected", zap.String("client_id", msg.ClientID), zap.String("name", msg.Name), zap.Error(err))
		return JoinResult{Err: err}
	}

	seat := next.SeatOf(msg.Name)
	l.clients[msg.ClientID] = &client{name: msg.Name, seat: seat, out: msg.Outbox}
	l.log.Info("player joined",
		zap.String("client_id", msg.ClientID),
		zap.String("name", msg.Name),
		zap.Int("seat", seat),
		zap.String("phase", string(next.Phase)),
	)
	l.commit(next, events)

	return JoinResult{Seat: seat, Role: engine.RoleOf(next, seat), Vacant: next.Vacant()}
}

func (l *Lobby) leave(clientID string) LeaveResult {
	c, ok := l.clients[clientID]
	if !ok {
		return LeaveResult{Vacant: l.state.Vacant(), Connected: l.state.ConnectedCount(), Err: ErrUnknownClient}
	}
	delete(l.clients, clientID)
	if c.out != nil {
		close(c.out)
	}

	events, next, err := engine.Apply(l.state, engine.Command{Type: engine.CmdLeave, Player: c.name, At: l.now()})
	if err != nil {
		l.log.Warn("leave rejected", zap.String("client_id", clientID), zap.Error(err))
		return LeaveResult{Vacant: l.state.Vacant(), Connected: l.state.ConnectedCount(), Err: err}
	}
	l.log.Info("player left", zap.String("client_id", clientID), zap.String("name", c.name))
	l.commit(next, events)

	return LeaveResult{Vacant: next.Vacant(), Connected: next.ConnectedCount()}
}

func (l *Lobby) fromClient(msg FromClient) {
	c, ok := l.clients[msg.ClientID]
	if !ok {
		l.log.Warn("command from unknown client", zap.String("client_id", msg.ClientID))
		return
	}

	cmd := msg.Cmd
	cmd.Player = c.name
	cmd.At = l.now()

	events, next, err := engine.Apply(l.state, cmd)
	if err != nil {
		// Rejections go to the sender only; state is untouched.
		l.log.Debug("command rejected",
			zap.String("client_id", msg.ClientID),
			zap.String("cmd", string(cmd.Type)),
			zap.Error(err),
		)
		l.send(msg.ClientID, c, Notice{Version: l.version, View: engine.Project(l.state, c.seat, cmd.At), Err: err})
		return
	}
	l.commit(next, events)
}

func (l *Lobby) timerFired(gen int) {
	if gen != l.gen {
		l.log.Debug("dropping stale timer", zap.Int("gen", gen), zap.Int("current", l.gen))
		return
	}
	l.timer = nil

	now := l.now()
	events, next, err := engine.Apply(l.state, engine.Command{Type: engine.CmdTimeExpired, At: now})
	if errors.Is(err, engine.ErrTimerNotExpired) && l.timerRunning(l.state) {
		// Woke up early relative to the session clock; try again.
		l.armTimer(engine.RemainingTime(l.state, now))
		return
	}
	if err != nil {
		return
	}
	l.commit(next, events)
}

// commit installs the new state, keeps exactly one turn timer alive while a
// started turn is running, and fans the change out to every client.
func (l *Lobby) commit(next engine.State, events []engine.Event) {
	prev := l.state
	l.state = next
	l.version++

	now := l.now()
	switch {
	case engine.ContainsEvent(events, engine.EvtTimerStarted) && l.timerRunning(next):
		l.armTimer(engine.RemainingTime(next, now))
	case l.timerRunning(prev) && !l.timerRunning(next):
		l.cancelTimer()
	}

	l.broadcast(events, now)

	if engine.ContainsEvent(events, engine.EvtGameCompleted) && l.recorder != nil {
		l.recorder.Submit(resultOf(next, now))
	}
}

func (l *Lobby) timerRunning(s engine.State) bool {
	return s.Phase == engine.PhaseInProgress && !s.TimerStartedAt.IsZero()
}

func (l *Lobby) armTimer(d time.Duration) {
	l.cancelTimer()
	gen := l.gen
	l.timer = time.AfterFunc(d, func() {
		select {
		case l.inbox <- TimerFired{Gen: gen}:
		case <-l.ctx.Done():
		}
	})
}

// cancelTimer stops the pending timer and moves to a new generation so a
// callback already in flight is ignored.
func (l *Lobby) cancelTimer() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.gen++
}

func (l *Lobby) broadcast(events []engine.Event, now time.Time) {
	for id, c := range l.clients {
		l.send(id, c, Notice{
			Version: l.version,
			Events:  events,
			View:    engine.Project(l.state, c.seat, now),
		})
	}
}

func (l *Lobby) send(id string, c *client, n Notice) {
	if c.out == nil {
		return
	}
	select {
	case c.out <- n:
		//ok
	default:
		// Client is slow/full - drop them. The seat is released when the
		// connection's Leave arrives.
		l.log.Warn("dropping slow client", zap.String("client_id", id))
		close(c.out)
		c.out = nil
	}
}

func (l *Lobby) numClients() int {
	n := 0
	for _, c := range l.clients {
		if c.out != nil {
			n++
		}
	}
	return n
}

func (l *Lobby) shutdown() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	for id, c := range l.clients {
		if c.out != nil {
			close(c.out) // Tell client no more notices
		}
		delete(l.clients, id)
	}
	l.cancel()
}

func resultOf(s engine.State, at time.Time) store.GameResult {
	return store.GameResult{
		SessionID:   s.ID,
		Players:     [2]string{s.Seats[0].Name, s.Seats[1].Name},
		Stats:       [2]store.PlayerStats{toStoreStats(s.Stats[0]), toStoreStats(s.Stats[1])},
		Levels:      s.Level,
		Turns:       s.Turn,
		CompletedAt: at,
	}
}

func toStoreStats(st engine.Stats) store.PlayerStats {
	return store.PlayerStats{
		TurnsPlayed: st.TurnsPlayed,
		Hits:        st.TotalHits,
		Misses:      st.TotalMisses,
		Clicks:      st.TotalClicks,
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby goroutine has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

func (l *Lobby) ID() string { return l.id }
