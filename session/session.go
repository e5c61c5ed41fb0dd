// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/rpsserver/network"
	"github.com/wfunc/rpsserver/player"
)

type Session struct {
	ID         string
	Conn       network.Connection
	Data       map[string]interface{}
	CreatedAt  time.Time
	LastActive time.Time

	gameName string
	player   *player.Queued
	mutex    sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
		Data:       make(map[string]interface{}),
	}
}

func (s *Session) Set(key string, value interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.Data[key] = value
}

func (s *Session) Get(key string) interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.Data[key]
}

// Bind attaches the session to the seat it holds in a game.
func (s *Session) Bind(gameName string, p *player.Queued) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.gameName = gameName
	s.player = p
}

// Binding returns the bound game and player. p is nil when unbound.
func (s *Session) Binding() (gameName string, p *player.Queued) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.gameName, s.player
}

// Clear drops the binding and returns what it was.
func (s *Session) Clear() (gameName string, p *player.Queued) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	gameName, p = s.gameName, s.player
	s.gameName, s.player = "", nil
	return gameName, p
}

func (s *Session) GameName() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.gameName
}

func (s *Session) Touch() {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.Touch()
	return s.Conn.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// ByGame returns the sessions bound to gameName.
func (m *Manager) ByGame(gameName string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.GameName() == gameName {
			result = append(result, session)
		}
	}
	return result
}
