package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wfunc/rpsserver/logger"
	"github.com/wfunc/rpsserver/network"
	"github.com/wfunc/rpsserver/player"
	"github.com/wfunc/rpsserver/rules"
	"github.com/wfunc/rpsserver/session"
)

// dataPlayerID is the session data key holding the last player id the
// session joined as.
const dataPlayerID = "player_id"

func (s *GameServer) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn))
}

func (s *GameServer) handleConnection(conn network.Connection) {
	if s.cfg.Game.HeartbeatInterval > 0 {
		conn.SetHeartbeat(s.cfg.Game.HeartbeatInterval)
	}
	sess := session.NewSession(uuid.New().String(), conn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())

	defer func() {
		if playerID := sess.Get(dataPlayerID); playerID != nil {
			logger.Log.Infof("Connection closed from %s, session ID: %s, player: %v", conn.RemoteAddr(), sess.GetID(), playerID)
		} else {
			logger.Log.Infof("Connection closed from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
		}
		s.leaveGame(sess)
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlinePlayers()
		conn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := conn.ReadPacket()
			if err != nil {
				return
			}
			s.monitor.IncMessagesReceived()
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
	case network.MsgTypeCreateGame:
		s.handleCreateGame(sess, packet)
	case network.MsgTypeListGames:
		s.reply(sess, network.MsgTypeListGames, network.Encode(network.GamesMessage{Games: s.gameInfos()}))
	case network.MsgTypeJoinGame:
		s.handleJoinGame(sess, packet)
	case network.MsgTypeLeaveGame:
		s.handleLeaveGame(sess, packet)
	case network.MsgTypePlayerMove:
		s.handlePlayerMove(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

// reply sends a message to one session through the broadcaster.
func (s *GameServer) reply(sess *session.Session, msgID uint16, data []byte) {
	if err := s.broadcaster.SendTo(sess.GetID(), msgID, data); err != nil {
		logger.Log.Debugf("Failed to send message %d to session %s: %v", msgID, sess.GetID(), err)
	}
}

func (s *GameServer) sendError(sess *session.Session, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Log.Debugf("Session %s: %s", sess.GetID(), msg)
	s.reply(sess, network.MsgTypeError, network.Encode(network.ErrorMessage{Message: msg}))
}

func (s *GameServer) handleCreateGame(sess *session.Session, packet *network.Packet) {
	var req network.CreateGameRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "malformed create request")
		return
	}
	if _, _, err := s.createGame(req.Name, req.Rules); err != nil {
		s.sendError(sess, "%v", err)
	}
}

func (s *GameServer) handleJoinGame(sess *session.Session, packet *network.Packet) {
	var req network.JoinGameRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "malformed join request")
		return
	}
	playerID := strings.TrimSpace(req.PlayerID)
	if playerID == "" {
		s.sendError(sess, "player id is required")
		return
	}
	if bound := sess.GameName(); bound != "" {
		s.sendError(sess, "already in game %s", bound)
		return
	}

	name := strings.TrimSpace(req.Game)
	m, exists := s.registry.Get(name)
	if !exists {
		s.sendError(sess, "game %s does not exist", name)
		return
	}

	queued := player.NewQueued(playerID)
	if err := m.Join(queued); err != nil {
		s.sendError(sess, "cannot join game %s: %v", name, err)
		return
	}
	if seated, ok := m.Player(playerID); !ok || seated != queued {
		s.sendError(sess, "game %s is full", name)
		return
	}

	sess.Bind(m.Name(), queued)
	sess.Set(dataPlayerID, playerID)
	logger.Log.Infof("Session %s joined game %s as %s", sess.GetID(), m.Name(), playerID)

	ack := network.JoinAck{Game: m.Name(), PlayerID: playerID, Weapons: rules.Names(m.AvailableWeapons())}
	s.reply(sess, network.MsgTypeJoinAck, network.Encode(ack))
	s.broadcastPlayers(m)
	s.afterSeatChange(m)
}

func (s *GameServer) handleLeaveGame(sess *session.Session, packet *network.Packet) {
	var req network.JoinGameRequest
	if len(packet.Data) > 0 {
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			s.sendError(sess, "malformed leave request")
			return
		}
	}

	bound := sess.GameName()
	if bound == "" {
		s.sendError(sess, "not in a game")
		return
	}
	if name := strings.TrimSpace(req.Game); name != "" && name != bound {
		s.sendError(sess, "not in game %s", name)
		return
	}
	s.leaveGame(sess)
}

// leaveGame releases the session's seat, if any.
func (s *GameServer) leaveGame(sess *session.Session) {
	name, queued := sess.Clear()
	if queued == nil {
		return
	}

	m, exists := s.registry.Get(name)
	if !exists {
		queued.Abort()
		return
	}
	m.Leave(queued.ID())
	logger.Log.Infof("Player %s left game %s", queued.ID(), name)

	left := network.PlayersMessage{Game: name, Players: m.PlayerIDs(), Ready: m.IsReady()}
	s.reply(sess, network.MsgTypePlayers, network.Encode(left))
	s.broadcastPlayers(m)
	s.afterSeatChange(m)
}

func (s *GameServer) handlePlayerMove(sess *session.Session, packet *network.Packet) {
	var req network.MoveRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		s.sendError(sess, "malformed move request")
		return
	}

	name, queued := sess.Binding()
	if queued == nil {
		s.sendError(sess, "join a game first")
		return
	}
	m, exists := s.registry.Get(name)
	if !exists {
		s.sendError(sess, "game %s does not exist", name)
		return
	}

	weapon := rules.NewWeapon(req.Weapon)
	if !m.Rules().Has(weapon) {
		s.sendError(sess, "illegal move %q, expected one of %v", req.Weapon, rules.Names(m.AvailableWeapons()))
		return
	}
	queued.AddMove(weapon)
	s.monitor.IncMovesReceived()
}
