package rpc

import (
	"net/rpc"
	"strings"
	"testing"

	"github.com/wfunc/rpsserver/match"
	"github.com/wfunc/rpsserver/player"
	"github.com/wfunc/rpsserver/rules"
)

func newTestRegistry(t *testing.T) *match.Registry {
	t.Helper()
	registry := match.NewRegistry()
	m, _ := registry.CreateIfAbsent("theGame", rules.Classic)
	m.Join(player.Using("john", rules.Scissors))
	m.Join(player.Using("edward", rules.Rock))
	if _, err := m.PlayOneRound(t.Context()); err != nil {
		t.Fatalf("PlayOneRound failed: %v", err)
	}
	registry.CreateIfAbsent("empty", rules.Extended)
	return registry
}

func TestGameService_ListGames(t *testing.T) {
	service := NewGameService(newTestRegistry(t))

	var reply ListGamesReply
	if err := service.ListGames(&ListGamesArgs{}, &reply); err != nil {
		t.Fatalf("ListGames failed: %v", err)
	}
	if len(reply.Games) != 2 {
		t.Fatalf("Expected 2 games, got %d", len(reply.Games))
	}
	empty, game := reply.Games[0], reply.Games[1]
	if empty.Name != "empty" || empty.Rules != "extended" || empty.Ready {
		t.Errorf("Unexpected summary %+v", empty)
	}
	if game.Name != "theGame" || !game.Ready || game.Round != 1 || len(game.Players) != 2 {
		t.Errorf("Unexpected summary %+v", game)
	}
}

func TestGameService_GetScoreboard(t *testing.T) {
	service := NewGameService(newTestRegistry(t))

	var reply ScoreboardReply
	if err := service.GetScoreboard(&ScoreboardArgs{Game: "theGame"}, &reply); err != nil {
		t.Fatalf("GetScoreboard failed: %v", err)
	}
	if reply.Round != 1 || len(reply.Scores) != 2 {
		t.Fatalf("Unexpected scoreboard %+v", reply)
	}
	if reply.Scores[1].PlayerID != "edward" || reply.Scores[1].Wins != 1 {
		t.Errorf("Expected edward to have 1 win, got %+v", reply.Scores[1])
	}

	if err := service.GetScoreboard(&ScoreboardArgs{Game: "missing"}, &reply); err == nil {
		t.Error("Expected an error for a missing game")
	}
}

func TestServer_OverTCP(t *testing.T) {
	server, err := NewServer("127.0.0.1:0", NewGameService(newTestRegistry(t)))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	go server.Start()
	defer server.Stop()

	client, err := rpc.Dial("tcp", server.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	var reply ScoreboardReply
	if err := client.Call("GameService.GetScoreboard", &ScoreboardArgs{Game: "theGame"}, &reply); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if reply.Round != 1 {
		t.Errorf("Expected round 1, got %d", reply.Round)
	}

	var games ListGamesReply
	if err := client.Call("GameService.ListGames", &ListGamesArgs{}, &games); err != nil {
		t.Fatalf("ListGames call failed: %v", err)
	}
	if len(games.Games) != 2 {
		t.Errorf("Expected 2 games, got %d", len(games.Games))
	}
	var running ListGamesReply
	if err := client.Call("GameService.ListGames", &ListGamesArgs{OnlyRunning: true}, &running); err != nil {
		t.Fatalf("ListGames call failed: %v", err)
	}
	if len(running.Games) != 0 {
		t.Errorf("No game is running, got %d", len(running.Games))
	}

	err = client.Call("GameService.GetScoreboard", &ScoreboardArgs{Game: "missing"}, &reply)
	if err == nil || !strings.Contains(err.Error(), "game not found") {
		t.Errorf("Expected a game not found error, got %v", err)
	}
}
