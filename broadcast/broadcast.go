// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/wfunc/rpsserver/logger"
	"github.com/wfunc/rpsserver/match"
	"github.com/wfunc/rpsserver/session"
)

var (
	ErrGameNotFound    = errors.New("game not found")
	ErrSessionNotFound = errors.New("session not found")
)

type Broadcaster interface {
	BroadcastToGame(gameName string, msgID uint16, data []byte) error
	BroadcastToAll(msgID uint16, data []byte) error
	SendTo(sessionID string, msgID uint16, data []byte) error
}

// GameBroadcaster delivers to the sessions bound to a game.
type GameBroadcaster struct {
	registry       *match.Registry
	sessionManager *session.Manager
}

func NewGameBroadcaster(registry *match.Registry, sessionManager *session.Manager) *GameBroadcaster {
	return &GameBroadcaster{
		registry:       registry,
		sessionManager: sessionManager,
	}
}

func (b *GameBroadcaster) BroadcastToGame(gameName string, msgID uint16, data []byte) error {
	if _, exists := b.registry.Get(gameName); !exists {
		return ErrGameNotFound
	}

	for _, s := range b.sessionManager.ByGame(gameName) {
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Warnf("Send %d to session %s failed: %v", msgID, s.ID, err)
			continue
		}
	}
	return nil
}

func (b *GameBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.All() {
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Warnf("Send %d to session %s failed: %v", msgID, s.ID, err)
			continue
		}
	}
	return nil
}

func (b *GameBroadcaster) SendTo(sessionID string, msgID uint16, data []byte) error {
	s, exists := b.sessionManager.Get(sessionID)
	if !exists {
		return ErrSessionNotFound
	}
	return s.Send(msgID, data)
}
