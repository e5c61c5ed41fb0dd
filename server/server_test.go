package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/rpsserver/config"
	"github.com/wfunc/rpsserver/match"
	"github.com/wfunc/rpsserver/network"
	"github.com/wfunc/rpsserver/session"
)

// MockConnection feeds packets to the server and records what it sends back.
type MockConnection struct {
	incoming  chan *network.Packet
	closed    chan struct{}
	closeOnce sync.Once

	mutex   sync.Mutex
	sent    []network.Packet
	cursors map[uint16]int
}

func NewMockConnection() *MockConnection {
	return &MockConnection{
		incoming: make(chan *network.Packet, 16),
		closed:   make(chan struct{}),
		cursors:  make(map[uint16]int),
	}
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sent = append(m.sent, network.Packet{MsgID: msgID, Data: data, Length: uint16(len(data))})
	return nil
}

func (m *MockConnection) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

func (m *MockConnection) RemoteAddr() net.Addr                { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration) {}

func (m *MockConnection) ReadPacket() (*network.Packet, error) {
	select {
	case p := <-m.incoming:
		return p, nil
	case <-m.closed:
		return nil, io.EOF
	}
}

func (m *MockConnection) push(msgID uint16, v interface{}) {
	data := network.Encode(v)
	m.incoming <- &network.Packet{MsgID: msgID, Data: data, Length: uint16(len(data))}
}

// next returns the payload of the next unseen packet with msgID.
func (m *MockConnection) next(msgID uint16) ([]byte, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for i := m.cursors[msgID]; i < len(m.sent); i++ {
		if m.sent[i].MsgID == msgID {
			m.cursors[msgID] = i + 1
			return m.sent[i].Data, true
		}
	}
	return nil, false
}

func await[T any](t *testing.T, conn *MockConnection, msgID uint16) T {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if data, ok := conn.next(msgID); ok {
			var v T
			if err := json.Unmarshal(data, &v); err != nil {
				t.Fatalf("Bad payload for message %d: %v", msgID, err)
			}
			return v
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for message %d", msgID)
	var zero T
	return zero
}

// awaitPlayers skips player lists until one with n players arrives.
func awaitPlayers(t *testing.T, conn *MockConnection, n int) network.PlayersMessage {
	t.Helper()
	for {
		msg := await[network.PlayersMessage](t, conn, network.MsgTypePlayers)
		if len(msg.Players) == n {
			return msg
		}
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{HTTPAddress: "127.0.0.1:0"},
		Game:   config.GameConfig{DefaultRules: "classic"},
		Log:    config.LogConfig{Level: "info"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *GameServer {
	t.Helper()
	s, err := NewGameServer(cfg)
	if err != nil {
		t.Fatalf("NewGameServer failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})
	return s
}

func connect(s *GameServer) *MockConnection {
	conn := NewMockConnection()
	go s.handleConnection(conn)
	return conn
}

func joinGame(t *testing.T, conn *MockConnection, game, playerID string) network.JoinAck {
	t.Helper()
	conn.push(network.MsgTypeJoinGame, network.JoinGameRequest{Game: game, PlayerID: playerID})
	ack := await[network.JoinAck](t, conn, network.MsgTypeJoinAck)
	if ack.Game != game || ack.PlayerID != playerID {
		t.Fatalf("Unexpected join ack %+v", ack)
	}
	return ack
}

func TestNewGameServer_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Game.DefaultRules = "chess"
	if _, err := NewGameServer(cfg); err == nil {
		t.Fatal("Expected an error for unknown default rules")
	}
}

func TestGameServer_CreateAndList(t *testing.T) {
	s := newTestServer(t, testConfig())
	watcher := connect(s)
	creator := connect(s)

	// wait until both sessions are registered so both see the broadcast
	for deadline := time.Now().Add(time.Second); s.sessionManager.Len() < 2 && time.Now().Before(deadline); {
		time.Sleep(5 * time.Millisecond)
	}

	creator.push(network.MsgTypeCreateGame, network.CreateGameRequest{Name: "theGame", Rules: "extended"})
	games := await[network.GamesMessage](t, watcher, network.MsgTypeListGames)
	if len(games.Games) != 1 || games.Games[0].Name != "theGame" || games.Games[0].Rules != "extended" {
		t.Fatalf("Unexpected games broadcast %+v", games)
	}

	creator.push(network.MsgTypeCreateGame, network.CreateGameRequest{Name: "bad", Rules: "chess"})
	errMsg := await[network.ErrorMessage](t, creator, network.MsgTypeError)
	if !strings.Contains(errMsg.Message, "unknown rules") {
		t.Errorf("Unexpected error message %q", errMsg.Message)
	}

	creator.push(network.MsgTypeListGames, struct{}{})
	await[network.GamesMessage](t, creator, network.MsgTypeListGames)
	listed := await[network.GamesMessage](t, creator, network.MsgTypeListGames)
	if len(listed.Games) != 1 {
		t.Errorf("Expected 1 listed game, got %+v", listed)
	}
}

func TestGameServer_PlayRounds(t *testing.T) {
	s := newTestServer(t, testConfig())
	if _, _, err := s.createGame("theGame", ""); err != nil {
		t.Fatalf("createGame failed: %v", err)
	}

	john := connect(s)
	edward := connect(s)

	ack := joinGame(t, john, "theGame", "john")
	if len(ack.Weapons) != 3 {
		t.Errorf("Expected 3 classic weapons, got %v", ack.Weapons)
	}
	joinGame(t, edward, "theGame", "edward")

	players := awaitPlayers(t, john, 2)
	if !players.Ready || players.Players[0] != "john" || players.Players[1] != "edward" {
		t.Errorf("Unexpected players %+v", players)
	}
	for _, conn := range []*MockConnection{john, edward} {
		if turn := await[network.TurnMessage](t, conn, network.MsgTypeTurn); turn.Round != 1 {
			t.Errorf("Expected turn for round 1, got %d", turn.Round)
		}
	}

	john.push(network.MsgTypePlayerMove, network.MoveRequest{Weapon: "Rock"})
	edward.push(network.MsgTypePlayerMove, network.MoveRequest{Weapon: "scissors"})

	for _, conn := range []*MockConnection{john, edward} {
		result := await[match.RoundResult](t, conn, network.MsgTypeRoundResult)
		if result.Round != 1 {
			t.Errorf("Expected round 1, got %d", result.Round)
		}
		if ids := result.WinnerIDs(); len(ids) != 1 || ids[0] != "john" {
			t.Errorf("Expected john to win, got %v", ids)
		}
		if turn := await[network.TurnMessage](t, conn, network.MsgTypeTurn); turn.Round != 2 {
			t.Errorf("Expected turn for round 2, got %d", turn.Round)
		}
	}

	john.push(network.MsgTypePlayerMove, network.MoveRequest{Weapon: "paper"})
	edward.push(network.MsgTypePlayerMove, network.MoveRequest{Weapon: "scissors"})
	result := await[match.RoundResult](t, john, network.MsgTypeRoundResult)
	if result.Round != 2 || result.WeaponUsed("edward") != "scissors" {
		t.Errorf("Unexpected second result %+v", result)
	}
	if outcome, _ := result.OutcomeFor("edward"); !outcome.Winner || outcome.TotalWins != 1 {
		t.Errorf("Expected edward to win with 1 total, got %+v", outcome)
	}
}

func TestGameServer_JoinErrors(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.createGame("theGame", "")

	conn := connect(s)
	conn.push(network.MsgTypeJoinGame, network.JoinGameRequest{Game: "missing", PlayerID: "john"})
	if msg := await[network.ErrorMessage](t, conn, network.MsgTypeError); msg.Message != "game missing does not exist" {
		t.Errorf("Unexpected error %q", msg.Message)
	}

	conn.push(network.MsgTypePlayerMove, network.MoveRequest{Weapon: "rock"})
	if msg := await[network.ErrorMessage](t, conn, network.MsgTypeError); msg.Message != "join a game first" {
		t.Errorf("Unexpected error %q", msg.Message)
	}

	joinGame(t, conn, "theGame", "john")
	conn.push(network.MsgTypePlayerMove, network.MoveRequest{Weapon: "spock"})
	if msg := await[network.ErrorMessage](t, conn, network.MsgTypeError); !strings.HasPrefix(msg.Message, "illegal move") {
		t.Errorf("Unexpected error %q", msg.Message)
	}

	dup := connect(s)
	dup.push(network.MsgTypeJoinGame, network.JoinGameRequest{Game: "theGame", PlayerID: "john"})
	if msg := await[network.ErrorMessage](t, dup, network.MsgTypeError); !strings.Contains(msg.Message, "already taken") {
		t.Errorf("Unexpected error %q", msg.Message)
	}

	joinGame(t, connect(s), "theGame", "edward")
	third := connect(s)
	third.push(network.MsgTypeJoinGame, network.JoinGameRequest{Game: "theGame", PlayerID: "jane"})
	if msg := await[network.ErrorMessage](t, third, network.MsgTypeError); msg.Message != "game theGame is full" {
		t.Errorf("Unexpected error %q", msg.Message)
	}
}

func TestGameServer_PaddedGameName(t *testing.T) {
	s := newTestServer(t, testConfig())
	conn := connect(s)

	conn.push(network.MsgTypeCreateGame, network.CreateGameRequest{Name: " theGame "})
	await[network.GamesMessage](t, conn, network.MsgTypeListGames)

	conn.push(network.MsgTypeJoinGame, network.JoinGameRequest{Game: " theGame ", PlayerID: "john"})
	ack := await[network.JoinAck](t, conn, network.MsgTypeJoinAck)
	if ack.Game != "theGame" || ack.PlayerID != "john" {
		t.Fatalf("Unexpected join ack %+v", ack)
	}

	conn.push(network.MsgTypeLeaveGame, network.JoinGameRequest{Game: " theGame "})
	left := awaitPlayers(t, conn, 0)
	if left.Game != "theGame" {
		t.Errorf("Unexpected players after leave %+v", left)
	}
	if m, _ := s.registry.Get("theGame"); m.PlayerCount() != 0 {
		t.Errorf("Expected an empty game, got %v", m.PlayerIDs())
	}
}

func TestGameServer_SessionData(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.createGame("theGame", "")

	conn := connect(s)
	joinGame(t, conn, "theGame", "john")

	sessions := s.sessionManager.ByGame("theGame")
	if len(sessions) != 1 {
		t.Fatalf("Expected one bound session, got %d", len(sessions))
	}
	if got := sessions[0].Get(dataPlayerID); got != "john" {
		t.Errorf("Expected player id john in session data, got %v", got)
	}
}

func TestGameServer_ReplyUnknownSession(t *testing.T) {
	s := newTestServer(t, testConfig())
	conn := NewMockConnection()
	sess := session.NewSession("detached", conn)

	s.sendError(sess, "nobody listens")
	if _, ok := conn.next(network.MsgTypeError); ok {
		t.Error("Replies must only reach registered sessions")
	}

	s.sessionManager.Add(sess)
	s.sendError(sess, "hello %s", "john")
	if msg := await[network.ErrorMessage](t, conn, network.MsgTypeError); msg.Message != "hello john" {
		t.Errorf("Unexpected error %q", msg.Message)
	}
}

func TestGameServer_DisconnectStopsGame(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.createGame("theGame", "")

	john := connect(s)
	edward := connect(s)
	joinGame(t, john, "theGame", "john")
	joinGame(t, edward, "theGame", "edward")
	await[network.TurnMessage](t, john, network.MsgTypeTurn)

	edward.Close()

	stopped := await[network.GameStoppedMessage](t, john, network.MsgTypeGameStopped)
	if stopped.Game != "theGame" {
		t.Errorf("Unexpected stop notice %+v", stopped)
	}
	players := awaitPlayers(t, john, 1)
	if players.Ready || players.Players[0] != "john" {
		t.Errorf("Unexpected players after disconnect %+v", players)
	}

	m, _ := s.registry.Get("theGame")
	if m.Running() {
		t.Error("Game should not be running after a player left")
	}
}

func TestGameServer_LeaveAndRejoin(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.createGame("theGame", "")

	john := connect(s)
	edward := connect(s)
	joinGame(t, john, "theGame", "john")
	joinGame(t, edward, "theGame", "edward")

	edward.push(network.MsgTypeLeaveGame, network.JoinGameRequest{Game: "theGame"})
	await[network.GameStoppedMessage](t, john, network.MsgTypeGameStopped)

	joinGame(t, edward, "theGame", "edward")
	john.push(network.MsgTypePlayerMove, network.MoveRequest{Weapon: "paper"})
	edward.push(network.MsgTypePlayerMove, network.MoveRequest{Weapon: "rock"})

	result := await[match.RoundResult](t, edward, network.MsgTypeRoundResult)
	if ids := result.WinnerIDs(); len(ids) != 1 || ids[0] != "john" {
		t.Errorf("Expected john to win after rejoin, got %v", ids)
	}

	edward.push(network.MsgTypeLeaveGame, nil)
	awaitPlayers(t, edward, 1)
	edward.push(network.MsgTypeLeaveGame, nil)
	if msg := await[network.ErrorMessage](t, edward, network.MsgTypeError); msg.Message != "not in a game" {
		t.Errorf("Unexpected error %q", msg.Message)
	}
}

func TestGameServer_BotFill(t *testing.T) {
	cfg := testConfig()
	cfg.Game.BotFillDelay = 50 * time.Millisecond
	s := newTestServer(t, cfg)
	s.createGame("theGame", "")

	john := connect(s)
	joinGame(t, john, "theGame", "john")

	players := awaitPlayers(t, john, 2)
	if !strings.HasPrefix(players.Players[1], "Bot-") {
		t.Fatalf("Expected a bot opponent, got %v", players.Players)
	}

	john.push(network.MsgTypePlayerMove, network.MoveRequest{Weapon: "rock"})
	result := await[match.RoundResult](t, john, network.MsgTypeRoundResult)
	if result.WeaponUsed("john") != "rock" {
		t.Errorf("Unexpected result %+v", result)
	}
}

func TestGameServer_ShutdownStopsLoops(t *testing.T) {
	s, err := NewGameServer(testConfig())
	if err != nil {
		t.Fatalf("NewGameServer failed: %v", err)
	}
	s.createGame("theGame", "")
	john := connect(s)
	edward := connect(s)
	joinGame(t, john, "theGame", "john")
	joinGame(t, edward, "theGame", "edward")
	await[network.TurnMessage](t, john, network.MsgTypeTurn)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	m, _ := s.registry.Get("theGame")
	deadline := time.Now().Add(2 * time.Second)
	for m.Running() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if m.Running() {
		t.Error("Shutdown should stop running games")
	}
}
