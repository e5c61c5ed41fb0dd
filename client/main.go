package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/rpsserver/match"
	"github.com/wfunc/rpsserver/network"
)

type client struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
	nickname  atomic.Value
}

// send formats and sends a message to the WebSocket server.
func (c *client) send(msgID uint16, v interface{}) error {
	packet, err := network.EncodePacket(msgID, network.Encode(v))
	if err != nil {
		return err
	}
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, packet)
}

func (c *client) readLoop(done chan<- struct{}) {
	defer close(done)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			log.Println("Read error:", err)
			return
		}
		packet, err := network.DecodePacket(message)
		if err != nil {
			log.Printf("Received invalid packet of size %d", len(message))
			continue
		}
		c.print(packet)
	}
}

func (c *client) print(packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgTypeListGames:
		var msg network.GamesMessage
		json.Unmarshal(packet.Data, &msg)
		if len(msg.Games) == 0 {
			fmt.Println("No games yet.")
			return
		}
		fmt.Println("Games:")
		for _, g := range msg.Games {
			fmt.Printf("  %s (%s) players=%v round=%d\n", g.Name, g.Rules, g.Players, g.Round)
		}
	case network.MsgTypeJoinAck:
		var msg network.JoinAck
		json.Unmarshal(packet.Data, &msg)
		fmt.Printf("Joined %s as %s. Weapons: %s\n", msg.Game, msg.PlayerID, strings.Join(msg.Weapons, ", "))
	case network.MsgTypePlayers:
		var msg network.PlayersMessage
		json.Unmarshal(packet.Data, &msg)
		fmt.Printf("Players in %s: %s\n", msg.Game, strings.Join(msg.Players, ", "))
	case network.MsgTypeTurn:
		var msg network.TurnMessage
		json.Unmarshal(packet.Data, &msg)
		fmt.Printf("Round %d, your move (or 'exit'): ", msg.Round)
	case network.MsgTypeRoundResult:
		var result match.RoundResult
		json.Unmarshal(packet.Data, &result)
		c.printResult(result)
	case network.MsgTypeGameStopped:
		var msg network.GameStoppedMessage
		json.Unmarshal(packet.Data, &msg)
		fmt.Printf("Game %s stopped: %s\n", msg.Game, msg.Reason)
	case network.MsgTypeError:
		var msg network.ErrorMessage
		json.Unmarshal(packet.Data, &msg)
		fmt.Println("Error:", msg.Message)
	}
}

func (c *client) printResult(result match.RoundResult) {
	fmt.Println()
	for _, o := range result.Outcomes {
		fmt.Printf("  %s played %s (wins: %d)\n", o.PlayerID, o.Weapon, o.TotalWins)
	}
	switch winners := result.WinnerIDs(); {
	case len(winners) == 0:
		fmt.Printf("Round %d is a draw\n", result.Round)
	case winners[0] == c.nickname.Load():
		fmt.Printf("Round %d: you win!\n", result.Round)
	default:
		fmt.Printf("Round %d: %s wins\n", result.Round, winners[0])
	}
}

func prompt(reader *bufio.Reader, label string) (string, bool) {
	for {
		fmt.Print(label)
		text, err := reader.ReadString('\n')
		if err != nil {
			return "", false
		}
		if text = strings.TrimSpace(text); text != "" {
			return text, true
		}
	}
}

func main() {
	addr := flag.String("addr", "localhost:8080", "game server address")
	heartbeat := flag.Duration("heartbeat", 10*time.Second, "interval between heartbeats, 0 disables them")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	c := &client{conn: conn}
	done := make(chan struct{})
	go c.readLoop(done)

	if err := c.send(network.MsgTypeListGames, struct{}{}); err != nil {
		log.Println("Write error:", err)
		return
	}

	var beats <-chan time.Time
	if *heartbeat > 0 {
		ticker := time.NewTicker(*heartbeat)
		defer ticker.Stop()
		beats = ticker.C
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		reader := bufio.NewReader(os.Stdin)
		game, ok := prompt(reader, "Game to join (created when missing): ")
		if !ok {
			return
		}
		c.send(network.MsgTypeCreateGame, network.CreateGameRequest{Name: game})

		nickname, ok := prompt(reader, "Nickname: ")
		if !ok {
			return
		}
		c.nickname.Store(nickname)
		c.send(network.MsgTypeJoinGame, network.JoinGameRequest{Game: game, PlayerID: nickname})

		for {
			text, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			lines <- strings.TrimSpace(text)
		}
	}()

	for {
		select {
		case <-done:
			return
		case text, ok := <-lines:
			if !ok || text == "exit" {
				c.send(network.MsgTypeLeaveGame, nil)
				c.close(done)
				return
			}
			if text == "" {
				continue
			}
			if err := c.send(network.MsgTypePlayerMove, network.MoveRequest{Weapon: text}); err != nil {
				log.Println("Write error:", err)
				return
			}
		case <-beats:
			if err := c.send(network.MsgTypeHeartbeat, nil); err != nil {
				log.Println("Write error:", err)
				return
			}
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			c.close(done)
			return
		}
	}
}

func (c *client) close(done <-chan struct{}) {
	c.sendMutex.Lock()
	err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.sendMutex.Unlock()
	if err != nil {
		log.Println("Write close error:", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}
