package hub

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spotshot-backend/internal/engine"
	"github.com/DoyleJ11/spotshot-backend/internal/lobby"
)

var ErrNoSuchSession = errors.New("no such session")
var ErrHubClosed = errors.New("hub closed")
var ErrAlreadyLoggedIn = errors.New("client already logged in")

type HubMsg interface{ isHubMsg() }

// Login seats a player. SessionID is optional; when set the player joins
// that session or fails instead of being matched.
type Login struct {
	ClientID  string
	Name      string
	SessionID string
	Outbox    chan lobby.Notice
	Reply     chan LoginResult
}

type LoginResult struct {
	SessionID string
	Lobby     *lobby.Lobby
	Seat      int
	Role      engine.Role
	Err       error
}

type Disconnect struct {
	ClientID string
	Reply    chan struct{} // may be nil
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type GetStats struct {
	Reply chan Stats
}

type Stats struct {
	Sessions int `json:"sessions"`
	Waiting  int `json:"waiting"`
	Clients  int `json:"clients"`
	Held     int `json:"held"`
}

type ShutdownHub struct{}

func (Login) isHubMsg()       {}
func (Disconnect) isHubMsg()  {}
func (GetLobby) isHubMsg()    {}
func (GetStats) isHubMsg()    {}
func (ShutdownHub) isHubMsg() {}

type session struct {
	lobby     *lobby.Lobby
	connected int
	idleSince time.Time
}

type clientRef struct {
	sessionID string
	name      string
}

type Hub struct {
	inbox    chan HubMsg
	rules    engine.Rules
	sessions map[string]*session
	waiting  []string             // vacant session ids, oldest first
	clients  map[string]clientRef // client id -> seat owner
	held     map[string][]string  // name -> sessions keeping a seat for it, oldest first

	ttl       time.Duration
	now       func() time.Time
	log       *zap.Logger
	lobbyOpts []lobby.Option
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

type Option func(*Hub)

func WithLogger(log *zap.Logger) Option { return func(h *Hub) { h.log = log } }

func WithClock(now func() time.Time) Option { return func(h *Hub) { h.now = now } }

// WithSessionTTL reaps sessions that have had nobody connected for d.
// Zero keeps them forever.
func WithSessionTTL(d time.Duration) Option { return func(h *Hub) { h.ttl = d } }

func WithLobbyOptions(opts ...lobby.Option) Option {
	return func(h *Hub) { h.lobbyOpts = append(h.lobbyOpts, opts...) }
}

func NewHub(parent context.Context, rules engine.Rules, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		rules:    rules.Clone(),
		sessions: make(map[string]*session),
		clients:  make(map[string]clientRef),
		held:     make(map[string][]string),
		now:      time.Now,
		log:      zap.NewNop(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.Named("hub")
	h.lobbyOpts = append([]lobby.Option{lobby.WithLogger(h.log), lobby.WithClock(h.now)}, h.lobbyOpts...)

	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)

	var reap <-chan time.Time
	if h.ttl > 0 {
		ticker := time.NewTicker(h.ttl / 2)
		defer ticker.Stop()
		reap = ticker.C
	}

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case <-reap:
			h.reap()

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Login:
				msg.Reply <- h.login(msg)

			case Disconnect:
				h.disconnect(msg.ClientID)
				if msg.Reply != nil {
					close(msg.Reply)
				}

			case GetLobby:
				var lb *lobby.Lobby
				if s := h.sessions[msg.Code]; s != nil {
					lb = s.lobby
				}
				msg.Reply <- lb // May be nil

			case GetStats:
				msg.Reply <- Stats{
					Sessions: len(h.sessions),
					Waiting:  len(h.waiting),
					Clients:  len(h.clients),
					Held:     h.heldCount(),
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

// login is the single place seats are handed out; the hub goroutine
// serializes it, so two logins never race for one open seat.
func (h *Hub) login(msg Login) LoginResult {
	if _, ok := h.clients[msg.ClientID]; ok {
		return LoginResult{Err: ErrAlreadyLoggedIn}
	}
	if msg.Name == "" {
		return LoginResult{Err: engine.ErrEmptyName}
	}

	if msg.SessionID != "" {
		s := h.sessions[msg.SessionID]
		if s == nil {
			return LoginResult{Err: fmt.Errorf("%w: %s", ErrNoSuchSession, msg.SessionID)}
		}
		return h.seat(msg, msg.SessionID, s)
	}

	for _, id := range slices.Clone(h.held[msg.Name]) {
		if s := h.sessions[id]; s != nil {
			if res := h.seat(msg, id, s); res.Err == nil {
				return res
			}
		}
	}

	for _, id := range slices.Clone(h.waiting) {
		s := h.sessions[id]
		res := h.seat(msg, id, s)
		switch {
		case res.Err == nil:
			return res
		case errors.Is(res.Err, engine.ErrNameTaken):
			continue
		case errors.Is(res.Err, engine.ErrSessionFull), errors.Is(res.Err, lobby.ErrClosed):
			h.removeWaiting(id)
			continue
		default:
			return res
		}
	}

	id := uuid.NewString()
	s := &session{lobby: lobby.NewLobby(h.ctx, engine.NewState(id, h.rules), h.lobbyOpts...)}
	h.sessions[id] = s
	h.log.Info("session created", zap.String("session_id", id))

	res := h.seat(msg, id, s)
	if res.Err != nil {
		h.closeSession(id)
	}
	return res
}

func (h *Hub) seat(msg Login, id string, s *session) LoginResult {
	reply := make(chan lobby.JoinResult, 1)
	join := lobby.Join{ClientID: msg.ClientID, Name: msg.Name, Outbox: msg.Outbox, Reply: reply}

	var res lobby.JoinResult
	select {
	case s.lobby.Inbox() <- join:
		select {
		case res = <-reply:
		case <-s.lobby.Done():
			res.Err = lobby.ErrClosed
		}
	case <-s.lobby.Done():
		res.Err = lobby.ErrClosed
	}
	if res.Err != nil {
		return LoginResult{SessionID: id, Err: res.Err}
	}

	h.clients[msg.ClientID] = clientRef{sessionID: id, name: msg.Name}
	h.release(msg.Name, id)
	s.connected++
	s.idleSince = time.Time{}

	if res.Vacant {
		if !slices.Contains(h.waiting, id) {
			h.waiting = append(h.waiting, id)
		}
	} else {
		h.removeWaiting(id)
	}

	h.log.Info("player seated",
		zap.String("session_id", id),
		zap.String("client_id", msg.ClientID),
		zap.String("name", msg.Name),
		zap.String("role", string(res.Role)),
	)
	return LoginResult{SessionID: id, Lobby: s.lobby, Seat: res.Seat, Role: res.Role}
}

func (h *Hub) disconnect(clientID string) {
	ref, ok := h.clients[clientID]
	if !ok {
		return
	}
	delete(h.clients, clientID)

	s := h.sessions[ref.sessionID]
	if s == nil {
		return
	}

	reply := make(chan lobby.LeaveResult, 1)
	var res lobby.LeaveResult
	select {
	case s.lobby.Inbox() <- lobby.Leave{ClientID: clientID, Reply: reply}:
		select {
		case res = <-reply:
		case <-s.lobby.Done():
			res.Err = lobby.ErrClosed
		}
	case <-s.lobby.Done():
		res.Err = lobby.ErrClosed
	}
	if errors.Is(res.Err, lobby.ErrClosed) {
		h.closeSession(ref.sessionID)
		return
	}

	s.connected = res.Connected
	h.log.Info("player disconnected",
		zap.String("session_id", ref.sessionID),
		zap.String("client_id", clientID),
		zap.Int("connected", res.Connected),
	)

	switch {
	case res.Connected == 0 && res.Vacant:
		// Nobody left to come back to.
		h.closeSession(ref.sessionID)
		return
	case res.Vacant:
		if !slices.Contains(h.waiting, ref.sessionID) {
			h.waiting = append(h.waiting, ref.sessionID)
		}
	default:
		if !slices.Contains(h.held[ref.name], ref.sessionID) {
			h.held[ref.name] = append(h.held[ref.name], ref.sessionID)
		}
	}

	if res.Connected == 0 {
		s.idleSince = h.now()
	}
}

func (h *Hub) reap() {
	cutoff := h.now().Add(-h.ttl)
	for id, s := range h.sessions {
		if s.connected == 0 && !s.idleSince.IsZero() && s.idleSince.Before(cutoff) {
			h.log.Info("reaping idle session", zap.String("session_id", id))
			h.closeSession(id)
		}
	}
}

func (h *Hub) closeSession(id string) {
	s := h.sessions[id]
	if s == nil {
		return
	}
	delete(h.sessions, id)
	h.removeWaiting(id)
	for name := range h.held {
		h.release(name, id)
	}
	select {
	case s.lobby.Inbox() <- lobby.Shutdown{}:
	case <-s.lobby.Done():
	}
}

// release drops the seat held for name in session id, if any.
func (h *Hub) release(name, id string) {
	ids := slices.DeleteFunc(h.held[name], func(sid string) bool { return sid == id })
	if len(ids) == 0 {
		delete(h.held, name)
		return
	}
	h.held[name] = ids
}

func (h *Hub) heldCount() int {
	n := 0
	for _, ids := range h.held {
		n += len(ids)
	}
	return n
}

func (h *Hub) removeWaiting(id string) {
	h.waiting = slices.DeleteFunc(h.waiting, func(w string) bool { return w == id })
}

func (h *Hub) shutdown() {
	lobbies := make([]*lobby.Lobby, 0, len(h.sessions))
	for id, s := range h.sessions {
		lobbies = append(lobbies, s.lobby)
		h.closeSession(id)
	}
	for _, lb := range lobbies {
		<-lb.Done()
	}
	clear(h.clients)
	h.cancel()
}
