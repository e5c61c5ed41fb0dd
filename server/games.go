package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/rpsserver/logger"
	"github.com/wfunc/rpsserver/match"
	"github.com/wfunc/rpsserver/network"
	"github.com/wfunc/rpsserver/player"
	"github.com/wfunc/rpsserver/rules"
)

var (
	ErrGameNameRequired = errors.New("game name is required")
	ErrUnknownRules     = errors.New("unknown rules")
)

// createGame returns the named game, creating it with the given preset
// when absent. An empty preset selects the configured default.
func (s *GameServer) createGame(name, rulesName string) (*match.Match, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, ErrGameNameRequired
	}

	rs := s.defaultRules
	if strings.TrimSpace(rulesName) != "" {
		var ok bool
		if rs, ok = rules.Lookup(rulesName); !ok {
			return nil, false, fmt.Errorf("%w %q, expected one of %v", ErrUnknownRules, rulesName, rules.PresetNames())
		}
	}

	m, created := s.registry.CreateIfAbsent(name, rs)
	if created {
		logger.Log.Infof("Game %s created with %s rules", name, rs.Name())
		s.monitor.SetActiveGames(s.registry.Len())
		s.broadcastGames()
	} else {
		logger.Log.Infof("Game %s already exists", name)
	}
	return m, created, nil
}

// removeGame unbinds the game's sessions, then closes and forgets it.
func (s *GameServer) removeGame(name string) bool {
	m, exists := s.registry.Get(name)
	if !exists {
		return false
	}

	msg := network.Encode(network.GameStoppedMessage{Game: name, Reason: "game removed"})
	for _, sess := range s.sessionManager.ByGame(name) {
		sess.Clear()
		s.reply(sess, network.MsgTypeGameStopped, msg)
	}
	s.cancelBotFill(name)
	s.registry.Remove(m.Name())
	logger.Log.Infof("Game %s removed", name)

	s.monitor.SetActiveGames(s.registry.Len())
	s.broadcastGames()
	return true
}

func gameInfo(m *match.Match) network.GameInfo {
	return network.GameInfo{
		Name:    m.Name(),
		Rules:   m.Rules().Name(),
		Players: m.PlayerIDs(),
		Ready:   m.IsReady(),
		Running: m.Running(),
		Round:   m.Rounds(),
	}
}

func (s *GameServer) gameInfos() []network.GameInfo {
	games := make([]network.GameInfo, 0, s.registry.Len())
	for _, m := range s.registry.All() {
		games = append(games, gameInfo(m))
	}
	return games
}

func (s *GameServer) broadcastGames() {
	s.broadcaster.BroadcastToAll(network.MsgTypeListGames, network.Encode(network.GamesMessage{Games: s.gameInfos()}))
}

func (s *GameServer) broadcastPlayers(m *match.Match) {
	msg := network.PlayersMessage{Game: m.Name(), Players: m.PlayerIDs(), Ready: m.IsReady()}
	s.broadcaster.BroadcastToGame(m.Name(), network.MsgTypePlayers, network.Encode(msg))
}

func (s *GameServer) broadcastTurn(m *match.Match, round int) {
	msg := network.TurnMessage{Game: m.Name(), Round: round}
	s.broadcaster.BroadcastToGame(m.Name(), network.MsgTypeTurn, network.Encode(msg))
}

// afterSeatChange starts play once a game is full, or arranges a bot
// opponent for a lone human.
func (s *GameServer) afterSeatChange(m *match.Match) {
	if m.IsReady() {
		s.cancelBotFill(m.Name())
		s.startLoop(m)
		return
	}
	if m.PlayerCount() == 0 {
		s.cancelBotFill(m.Name())
		return
	}
	if s.cfg.Game.BotFillDelay > 0 && !onlyBots(m) {
		s.scheduleBotFill(m)
	}
}

func onlyBots(m *match.Match) bool {
	for _, id := range m.PlayerIDs() {
		p, ok := m.Player(id)
		if !ok {
			continue
		}
		if _, bot := p.(*player.Bot); !bot {
			return false
		}
	}
	return true
}

func (s *GameServer) startLoop(m *match.Match) {
	if s.shuttingDown() || !m.IsReady() {
		return
	}

	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	if h, ok := s.runs[m.Name()]; ok && h.IsRunning() {
		return
	}

	// the turn notice goes out before the loop can produce its first result
	s.broadcastTurn(m, m.Rounds()+1)

	started := time.Now()
	h, err := m.RunContinuously(func(result match.RoundResult) {
		s.monitor.IncRoundsPlayed()
		s.monitor.ObserveRoundDuration(time.Since(started))
		started = time.Now()

		logger.Log.Debugf("Game %s: %s", m.Name(), result)
		s.broadcaster.BroadcastToGame(m.Name(), network.MsgTypeRoundResult, network.Encode(result))
		s.broadcastTurn(m, result.Round+1)
	})
	if err != nil {
		logger.Log.Debugf("Game %s not started: %v", m.Name(), err)
		return
	}
	if s.runs[m.Name()] == h {
		return
	}
	s.runs[m.Name()] = h
	go s.watch(m, h)
}

// watch reports the end of a loop and restarts play when the seats were
// refilled before the old loop noticed.
func (s *GameServer) watch(m *match.Match, h *match.RunHandle) {
	<-h.Done()

	s.runMutex.Lock()
	if s.runs[m.Name()] == h {
		delete(s.runs, m.Name())
	}
	s.runMutex.Unlock()

	reason := "stopped"
	if err := h.Err(); err != nil {
		reason = err.Error()
	}
	msg := network.GameStoppedMessage{Game: m.Name(), Reason: reason}
	s.broadcaster.BroadcastToGame(m.Name(), network.MsgTypeGameStopped, network.Encode(msg))
	s.broadcastPlayers(m)

	if h.Err() == nil && !s.shuttingDown() && m.IsReady() {
		s.startLoop(m)
	}
}

func (s *GameServer) scheduleBotFill(m *match.Match) {
	name := m.Name()

	s.botMutex.Lock()
	defer s.botMutex.Unlock()
	if _, pending := s.botTimers[name]; pending {
		return
	}
	s.botTimers[name] = s.timers.AddTimer(s.cfg.Game.BotFillDelay, 0, func() {
		s.fillWithBot(name)
	})
	logger.Log.Debugf("Game %s gets a bot in %v", name, s.cfg.Game.BotFillDelay)
}

func (s *GameServer) cancelBotFill(name string) {
	s.botMutex.Lock()
	defer s.botMutex.Unlock()
	if id, pending := s.botTimers[name]; pending {
		s.timers.RemoveTimer(id)
		delete(s.botTimers, name)
	}
}

func (s *GameServer) fillWithBot(name string) {
	s.botMutex.Lock()
	delete(s.botTimers, name)
	s.botMutex.Unlock()

	m, exists := s.registry.Get(name)
	if !exists || m.PlayerCount() != 1 || onlyBots(m) {
		return
	}

	bot := player.NewBot(player.DefaultBotID + "-" + uuid.NewString()[:8])
	if err := m.Join(bot); err != nil || !m.HasPlayer(bot.ID()) {
		return
	}
	logger.Log.Infof("Bot %s joined game %s", bot.ID(), name)
	s.broadcastPlayers(m)
	s.afterSeatChange(m)
}
