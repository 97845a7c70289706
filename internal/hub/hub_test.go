package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/spotshot-backend/internal/engine"
	"github.com/DoyleJ11/spotshot-backend/internal/lobby"
)

func testRules() engine.Rules {
	return engine.Rules{
		GridSize:      5,
		ClickLimit:    3,
		TimeLimit:     time.Minute,
		NumObjects:    1,
		MaxLevels:     2,
		Shapes:        []string{"line"},
		MinClickLimit: 1,
		Disconnect:    engine.PolicyHold,
	}
}

func newHub(t *testing.T, rules engine.Rules, opts ...Option) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	h := NewHub(ctx, rules, opts...)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h
}

func login(t *testing.T, h *Hub, clientID, name, sessionID string) LoginResult {
	t.Helper()
	reply := make(chan LoginResult, 1)
	h.Inbox() <- Login{ClientID: clientID, Name: name, SessionID: sessionID, Outbox: make(chan lobby.Notice, 16), Reply: reply}
	select {
	case res := <-reply:
		return res
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for login")
		return LoginResult{}
	}
}

func disconnect(h *Hub, clientID string) {
	reply := make(chan struct{})
	h.Inbox() <- Disconnect{ClientID: clientID, Reply: reply}
	<-reply
}

func stats(h *Hub) Stats {
	reply := make(chan Stats, 1)
	h.Inbox() <- GetStats{Reply: reply}
	select {
	case s := <-reply:
		return s
	case <-time.After(time.Second):
		return Stats{Sessions: -1}
	}
}

func TestHub_LoginPairsPlayers(t *testing.T) {
	h := newHub(t, testRules())

	alice := login(t, h, "c1", "alice", "")
	require.NoError(t, alice.Err)
	assert.Equal(t, engine.RoleShooter, alice.Role)
	assert.Equal(t, Stats{Sessions: 1, Waiting: 1, Clients: 1}, stats(h))

	bob := login(t, h, "c2", "bob", "")
	require.NoError(t, bob.Err)
	assert.Equal(t, alice.SessionID, bob.SessionID)
	assert.Equal(t, engine.RoleSpotter, bob.Role)
	assert.Same(t, alice.Lobby, bob.Lobby)
	assert.Equal(t, Stats{Sessions: 1, Waiting: 0, Clients: 2}, stats(h))

	carol := login(t, h, "c3", "carol", "")
	require.NoError(t, carol.Err)
	assert.NotEqual(t, alice.SessionID, carol.SessionID)

	again := login(t, h, "c3", "carol", "")
	assert.True(t, errors.Is(again.Err, ErrAlreadyLoggedIn))
}

func TestHub_SameNameIsMatchedElsewhere(t *testing.T) {
	h := newHub(t, testRules())
	first := login(t, h, "c1", "alice", "")
	second := login(t, h, "c2", "alice", "")
	require.NoError(t, second.Err)
	assert.NotEqual(t, first.SessionID, second.SessionID)
}

func TestHub_ConcurrentLoginsNeverDoubleBook(t *testing.T) {
	h := newHub(t, testRules())

	const players = 20
	results := make([]LoginResult, players)
	var wg sync.WaitGroup
	for i := range players {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reply := make(chan LoginResult, 1)
			h.Inbox() <- Login{
				ClientID: fmt.Sprintf("c%d", i),
				Name:     fmt.Sprintf("p%d", i),
				Outbox:   make(chan lobby.Notice, 16),
				Reply:    reply,
			}
			results[i] = <-reply
		}()
	}
	wg.Wait()

	seats := map[string]map[int]bool{}
	for _, res := range results {
		require.NoError(t, res.Err)
		if seats[res.SessionID] == nil {
			seats[res.SessionID] = map[int]bool{}
		}
		require.False(t, seats[res.SessionID][res.Seat], "seat %d of %s booked twice", res.Seat, res.SessionID)
		seats[res.SessionID][res.Seat] = true
	}
	assert.Len(t, seats, players/2)
	for id, s := range seats {
		assert.Len(t, s, 2, "session %s", id)
	}
	assert.Equal(t, 0, stats(h).Waiting)
}

func TestHub_DisconnectHoldsSeatForReconnect(t *testing.T) {
	h := newHub(t, testRules())
	alice := login(t, h, "c1", "alice", "")
	login(t, h, "c2", "bob", "")

	disconnect(h, "c2")
	assert.Equal(t, Stats{Sessions: 1, Waiting: 0, Clients: 1, Held: 1}, stats(h))

	// A stranger is not given the held seat.
	carol := login(t, h, "c3", "carol", "")
	require.NoError(t, carol.Err)
	assert.NotEqual(t, alice.SessionID, carol.SessionID)

	bob := login(t, h, "c4", "bob", "")
	require.NoError(t, bob.Err)
	assert.Equal(t, alice.SessionID, bob.SessionID)
	assert.Equal(t, 1, bob.Seat)
	assert.Equal(t, 0, stats(h).Held)
}

func TestHub_SameNameHeldInTwoSessions(t *testing.T) {
	h := newHub(t, testRules())
	first := login(t, h, "c1", "alice", "")
	login(t, h, "c2", "bob", "")
	second := login(t, h, "c3", "alice", "")
	login(t, h, "c4", "carol", "")
	require.NotEqual(t, first.SessionID, second.SessionID)

	disconnect(h, "c1")
	disconnect(h, "c3")
	assert.Equal(t, 2, stats(h).Held)

	back := login(t, h, "c5", "alice", "")
	require.NoError(t, back.Err)
	assert.Equal(t, first.SessionID, back.SessionID)
	assert.Equal(t, 1, stats(h).Held)

	again := login(t, h, "c6", "alice", "")
	require.NoError(t, again.Err)
	assert.Equal(t, second.SessionID, again.SessionID)
	assert.Equal(t, Stats{Sessions: 2, Waiting: 0, Clients: 4, Held: 0}, stats(h))
}

func TestHub_ReopenPolicyRefillsSeat(t *testing.T) {
	rules := testRules()
	rules.Disconnect = engine.PolicyReopen
	h := newHub(t, rules)

	alice := login(t, h, "c1", "alice", "")
	login(t, h, "c2", "bob", "")
	disconnect(h, "c1")
	assert.Equal(t, 1, stats(h).Waiting)

	carol := login(t, h, "c3", "carol", "")
	require.NoError(t, carol.Err)
	assert.Equal(t, alice.SessionID, carol.SessionID)
	assert.Equal(t, 0, carol.Seat)
	assert.Equal(t, 0, stats(h).Waiting)
}

func TestHub_LoneWaitingPlayerLeavingClosesSession(t *testing.T) {
	h := newHub(t, testRules())
	alice := login(t, h, "c1", "alice", "")
	disconnect(h, "c1")

	assert.Equal(t, Stats{}, stats(h))
	select {
	case <-alice.Lobby.Done():
	case <-time.After(time.Second):
		t.Fatal("lobby not shut down")
	}
}

func TestHub_JoinSpecificSession(t *testing.T) {
	h := newHub(t, testRules())

	res := login(t, h, "c1", "alice", "missing")
	assert.True(t, errors.Is(res.Err, ErrNoSuchSession))

	alice := login(t, h, "c2", "alice", "")
	bob := login(t, h, "c3", "bob", alice.SessionID)
	require.NoError(t, bob.Err)
	assert.Equal(t, alice.SessionID, bob.SessionID)

	carol := login(t, h, "c4", "carol", alice.SessionID)
	assert.True(t, errors.Is(carol.Err, engine.ErrSessionFull))
	assert.Equal(t, 2, stats(h).Clients)
}

func TestHub_ReapsIdleSessions(t *testing.T) {
	h := newHub(t, testRules(), WithSessionTTL(40*time.Millisecond))
	login(t, h, "c1", "alice", "")
	login(t, h, "c2", "bob", "")
	disconnect(h, "c1")
	disconnect(h, "c2")
	assert.Equal(t, 1, stats(h).Sessions)

	require.Eventually(t, func() bool {
		return stats(h).Sessions == 0
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, stats(h).Held)
}

func TestHub_Create_Get_SamePointer(t *testing.T) {
	h := newHub(t, testRules())
	alice := login(t, h, "c1", "alice", "")

	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- GetLobby{Code: alice.SessionID, Reply: reply}
	lb := <-reply

	if lb == nil || lb != alice.Lobby {
		t.Fatalf("expected same lobby pointer")
	}

	h.Inbox() <- GetLobby{Code: "nope", Reply: reply}
	assert.Nil(t, <-reply)
}
