package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/spotshot-backend/internal/engine"
	"github.com/DoyleJ11/spotshot-backend/internal/hub"
	"github.com/DoyleJ11/spotshot-backend/internal/lobby"
	"github.com/DoyleJ11/spotshot-backend/internal/types"
)

var errNotLoggedIn = fmt.Errorf("%w: log in first", ErrProtocol)

type Options struct {
	Rules          engine.Rules
	Log            *zap.Logger
	ReadTimeout    time.Duration // zero waits forever
	WriteTimeout   time.Duration
	OutboxSize     int
	OriginPatterns []string
}

func (o Options) withDefaults() Options {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = 16
	}
	return o
}

type handlerFunc func(c *conn, ctx context.Context, data json.RawMessage) error

var dispatch = map[string]handlerFunc{
	types.EvLogin:         (*conn).login,
	types.EvClick:         (*conn).click,
	types.EvNextTurn:      (*conn).nextTurn,
	types.EvRestartGame:   (*conn).restartGame,
	types.EvGetGameConfig: (*conn).gameConfig,
}

type conn struct {
	ws   *websocket.Conn
	hub  *hub.Hub
	opts Options
	log  *zap.Logger
	id   string
	out  chan lobby.Notice

	// owned by the reader
	lobby  *lobby.Lobby
	gameID string

	level atomic.Int64 // last level the writer saw
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	opts = opts.withDefaults()
	return func(w http.ResponseWriter, r *http.Request) {
		wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			opts.Log.Warn("websocket accept failed", zap.Error(err))
			return
		}
		defer wsConn.CloseNow()

		id := uuid.NewString()
		c := &conn{
			ws:   wsConn,
			hub:  h,
			opts: opts,
			log:  opts.Log.Named("ws").With(zap.String("client_id", id)),
			id:   id,
			out:  make(chan lobby.Notice, opts.OutboxSize),
		}
		c.log.Debug("client connected", zap.String("remote", r.RemoteAddr))

		ctx := r.Context()
		writerDone := make(chan struct{})
		go c.writeLoop(ctx, writerDone)

		c.readLoop(ctx)
		c.disconnect()

		select {
		case <-writerDone:
		case <-h.Done():
		}
		wsConn.Close(websocket.StatusNormalClosure, "bye")
	}
}

func (c *conn) readLoop(ctx context.Context) {
	for {
		readCtx, cancel := ctx, context.CancelFunc(func() {})
		if c.opts.ReadTimeout > 0 {
			readCtx, cancel = context.WithTimeout(ctx, c.opts.ReadTimeout)
		}
		_, data, err := c.ws.Read(readCtx)
		cancel()
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				c.log.Debug("client closed connection")
			default:
				c.log.Debug("read failed", zap.Error(err))
			}
			return
		}

		var msg types.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reject(ctx, "", fmt.Errorf("%w: bad json", ErrProtocol))
			continue
		}
		handle, ok := dispatch[msg.Event]
		if !ok {
			c.reject(ctx, msg.Event, fmt.Errorf("%w: unknown event %q", ErrProtocol, msg.Event))
			continue
		}
		if err := handle(c, ctx, msg.Data); err != nil {
			c.reject(ctx, msg.Event, err)
		}
	}
}

func (c *conn) reject(ctx context.Context, event string, err error) {
	if errors.Is(err, ErrProtocol) {
		c.log.Info("protocol error", zap.String("event", event), zap.Error(err))
	} else {
		c.log.Debug("request rejected", zap.String("event", event), zap.Error(err))
	}
	c.write(ctx, errorFrame(err))
}

// writeLoop forwards lobby notices until the outbox is closed, which happens
// when the client leaves, is dropped as too slow, or the session ends.
func (c *conn) writeLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	for n := range c.out {
		if n.Err == nil {
			c.level.Store(int64(n.View.Level))
		}
		for _, m := range translate(n) {
			c.write(ctx, m)
		}
	}
	c.ws.Close(websocket.StatusGoingAway, "session closed")
}

func (c *conn) write(ctx context.Context, m types.ServerMessage) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.WriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, c.ws, m); err != nil {
		c.log.Debug("write failed", zap.String("event", m.Event), zap.Error(err))
	}
}

func (c *conn) login(ctx context.Context, data json.RawMessage) error {
	var req types.LoginRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if c.lobby != nil {
		return hub.ErrAlreadyLoggedIn
	}

	reply := make(chan hub.LoginResult, 1)
	msg := hub.Login{
		ClientID:  c.id,
		Name:      strings.TrimSpace(req.Name),
		SessionID: req.GameID,
		Outbox:    c.out,
		Reply:     reply,
	}
	select {
	case c.hub.Inbox() <- msg:
	case <-c.hub.Done():
		return hub.ErrHubClosed
	}

	var res hub.LoginResult
	select {
	case res = <-reply:
	case <-c.hub.Done():
		return hub.ErrHubClosed
	}
	if res.Err != nil {
		return res.Err
	}

	c.lobby = res.Lobby
	c.gameID = res.SessionID
	c.log = c.log.With(zap.String("session_id", res.SessionID))
	c.log.Info("logged in", zap.String("name", msg.Name), zap.String("role", string(res.Role)))
	return nil
}

func (c *conn) click(ctx context.Context, data json.RawMessage) error {
	var req types.ClickRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.X == nil || req.Y == nil {
		return fmt.Errorf("%w: click needs x and y", ErrProtocol)
	}
	if err := c.checkGame(req.GameID); err != nil {
		return err
	}
	return c.forward(ctx, engine.Command{Type: engine.CmdFire, X: *req.X, Y: *req.Y})
}

func (c *conn) nextTurn(ctx context.Context, data json.RawMessage) error {
	var req types.NextTurnRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if err := c.checkGame(req.GameID); err != nil {
		return err
	}
	c.log.Debug("next turn requested", zap.String("reason", req.Reason))
	return c.forward(ctx, engine.Command{Type: engine.CmdNextTurn})
}

func (c *conn) restartGame(ctx context.Context, data json.RawMessage) error {
	var req types.RestartRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if err := c.checkGame(req.GameID); err != nil {
		return err
	}
	return c.forward(ctx, engine.Command{Type: engine.CmdRestart})
}

func (c *conn) gameConfig(ctx context.Context, _ json.RawMessage) error {
	c.write(ctx, types.ServerMessage{
		Event: types.EvGameConfig,
		Data:  GameConfig(c.opts.Rules, int(c.level.Load())),
	})
	return nil
}

func (c *conn) checkGame(id string) error {
	if c.lobby == nil {
		return errNotLoggedIn
	}
	if id != "" && id != c.gameID {
		return fmt.Errorf("%w: game %q is not yours", ErrProtocol, id)
	}
	return nil
}

// forward hands a command to the session. Its outcome comes back through
// the outbox.
func (c *conn) forward(ctx context.Context, cmd engine.Command) error {
	select {
	case c.lobby.Inbox() <- lobby.FromClient{ClientID: c.id, Cmd: cmd}:
		return nil
	case <-c.lobby.Done():
		return lobby.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *conn) disconnect() {
	if c.lobby == nil {
		close(c.out)
		return
	}
	reply := make(chan struct{})
	select {
	case c.hub.Inbox() <- hub.Disconnect{ClientID: c.id, Reply: reply}:
	case <-c.hub.Done():
		return
	}
	select {
	case <-reply:
	case <-c.hub.Done():
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return nil
}
