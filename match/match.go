// match/match.go
package match

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wfunc/rpsserver/logger"
	"github.com/wfunc/rpsserver/player"
	"github.com/wfunc/rpsserver/rules"
)

// MaxPlayers is the number of players a match seats.
const MaxPlayers = 2

var (
	ErrNilPlayer   = errors.New("player is nil")
	ErrDuplicateID = errors.New("player id is already taken")
	ErrNotReady    = errors.New("at least 2 players are needed")
)

// Score is a player's cumulative win count.
type Score struct {
	PlayerID string `json:"playerId"`
	Wins     int    `json:"wins"`
}

// Match is a named two-player game producing RoundResults.
//
// playerMutex guards the seats, win counters and round counter. roundMutex
// serializes round computation; it is held while waiting for moves, so
// Join and Leave never wait on it.
type Match struct {
	name        string
	rules       *rules.RuleSet
	players     []player.Player // join order
	wins        map[string]int
	rounds      int
	run         *RunHandle
	playerMutex sync.RWMutex
	roundMutex  sync.Mutex
	runMutex    sync.Mutex
}

// New creates a match. A nil rule set selects rules.Default.
func New(name string, rs *rules.RuleSet) *Match {
	if rs == nil {
		rs = rules.Default
	}
	return &Match{
		name:  name,
		rules: rs,
		wins:  make(map[string]int),
	}
}

func (m *Match) Name() string {
	return m.name
}

func (m *Match) Rules() *rules.RuleSet {
	return m.rules
}

// AvailableWeapons returns the vocabulary of the match rules.
func (m *Match) AvailableWeapons() []rules.Weapon {
	return m.rules.Weapons()
}

// Join seats p. A third player is silently ignored while two are seated;
// use HasPlayer to find out whether the join took effect.
func (m *Match) Join(p player.Player) error {
	if p == nil {
		return ErrNilPlayer
	}

	m.playerMutex.Lock()
	defer m.playerMutex.Unlock()

	id := p.ID()
	for _, existing := range m.players {
		if existing.ID() == id {
			return fmt.Errorf("%w: id %q", ErrDuplicateID, id)
		}
	}
	if len(m.players) >= MaxPlayers {
		logger.Log.Warnf("Game %s is full, ignoring player %s", m.name, id)
		return nil
	}

	m.players = append(m.players, p)
	if _, ok := m.wins[id]; !ok {
		m.wins[id] = 0
	}
	return nil
}

// Leave removes the player. An abortable player is aborted so a round
// waiting on its move is released.
func (m *Match) Leave(playerID string) {
	m.playerMutex.Lock()
	var left player.Player
	for i, p := range m.players {
		if p.ID() == playerID {
			left = p
			m.players = slices.Delete(m.players, i, i+1)
			break
		}
	}
	m.playerMutex.Unlock()

	if a, ok := left.(player.Abortable); ok {
		a.Abort()
	}
}

// IsReady reports whether exactly two players are seated.
func (m *Match) IsReady() bool {
	return m.PlayerCount() == MaxPlayers
}

func (m *Match) PlayerCount() int {
	m.playerMutex.RLock()
	defer m.playerMutex.RUnlock()
	return len(m.players)
}

// PlayerIDs returns the seated ids in join order.
func (m *Match) PlayerIDs() []string {
	m.playerMutex.RLock()
	defer m.playerMutex.RUnlock()

	ids := make([]string, len(m.players))
	for i, p := range m.players {
		ids[i] = p.ID()
	}
	return ids
}

func (m *Match) HasPlayer(playerID string) bool {
	_, ok := m.Player(playerID)
	return ok
}

func (m *Match) Player(playerID string) (player.Player, bool) {
	m.playerMutex.RLock()
	defer m.playerMutex.RUnlock()

	for _, p := range m.players {
		if p.ID() == playerID {
			return p, true
		}
	}
	return nil, false
}

// Rounds returns the number of rounds played so far.
func (m *Match) Rounds() int {
	m.playerMutex.RLock()
	defer m.playerMutex.RUnlock()
	return m.rounds
}

// Scores returns the win counters of the seated players in join order.
func (m *Match) Scores() []Score {
	m.playerMutex.RLock()
	defer m.playerMutex.RUnlock()

	scores := make([]Score, len(m.players))
	for i, p := range m.players {
		scores[i] = Score{PlayerID: p.ID(), Wins: m.wins[p.ID()]}
	}
	return scores
}

// PlayOneRound waits for both players' moves and returns the result. Rounds
// are serialized with each other and with the continuous loop.
func (m *Match) PlayOneRound(ctx context.Context) (RoundResult, error) {
	if !m.IsReady() {
		return RoundResult{}, ErrNotReady
	}
	m.roundMutex.Lock()
	defer m.roundMutex.Unlock()
	return m.playRound(ctx)
}

func (m *Match) playRound(ctx context.Context) (RoundResult, error) {
	m.playerMutex.RLock()
	if len(m.players) != MaxPlayers {
		m.playerMutex.RUnlock()
		return RoundResult{}, ErrNotReady
	}
	seats := [MaxPlayers]player.Player{m.players[0], m.players[1]}
	m.playerMutex.RUnlock()

	gc := player.Context{AvailableMoves: m.rules.Weapons()}
	var weapons [MaxPlayers]rules.Weapon

	// both moves are requested at once; a failing side cancels the other
	g, gctx := errgroup.WithContext(ctx)
	for i := range seats {
		g.Go(func() error {
			w, err := seats[i].MakeMove(gctx, gc)
			if err != nil {
				return err
			}
			weapons[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RoundResult{}, err
	}

	winner := -1
	switch {
	case m.rules.Defeats(weapons[0], weapons[1]):
		winner = 0
	case m.rules.Defeats(weapons[1], weapons[0]):
		winner = 1
	}

	m.playerMutex.Lock()
	defer m.playerMutex.Unlock()

	// a player who left while the moves were collected is not credited
	m.rounds++
	result := RoundResult{Round: m.rounds, Outcomes: make([]PlayerOutcome, MaxPlayers)}
	for i, p := range seats {
		id := p.ID()
		if i == winner && m.seatedLocked(id) {
			m.wins[id]++
		}
		result.Outcomes[i] = PlayerOutcome{
			PlayerID:  id,
			Weapon:    weapons[i].Name(),
			Winner:    i == winner,
			TotalWins: m.wins[id],
		}
	}
	return result, nil
}

func (m *Match) seatedLocked(playerID string) bool {
	return slices.ContainsFunc(m.players, func(p player.Player) bool { return p.ID() == playerID })
}

// RunContinuously plays rounds in the background and hands every result to
// onResult until the returned handle is stopped or a player is aborted.
// While a loop is running the existing handle is returned. A loop that was
// stopped but is still finishing its round is replaced, and the new loop
// starts only after the old one has exited.
func (m *Match) RunContinuously(onResult func(RoundResult)) (*RunHandle, error) {
	if !m.IsReady() {
		return nil, ErrNotReady
	}

	m.runMutex.Lock()
	defer m.runMutex.Unlock()

	prev := m.run
	if prev != nil && prev.IsRunning() {
		return prev, nil
	}
	h := newRunHandle()
	m.run = h
	go m.loop(prev, h, onResult)

	logger.Log.Infof("Game %s started continuous play", m.name)
	return h, nil
}

// Running reports whether a continuous loop is active.
func (m *Match) Running() bool {
	m.runMutex.Lock()
	defer m.runMutex.Unlock()
	return m.run != nil && m.run.IsRunning()
}

func (m *Match) loop(prev, h *RunHandle, onResult func(RoundResult)) {
	var err error
	defer func() { h.finish(err) }()

	if prev != nil {
		<-prev.Done()
	}

	for !h.stopRequested() {
		var result RoundResult
		result, err = m.PlayOneRound(context.Background())
		if err != nil {
			if errors.Is(err, player.ErrMoveAborted) || errors.Is(err, ErrNotReady) {
				logger.Log.Infof("Game %s stopped playing: %v", m.name, err)
				err = nil
				return
			}
			logger.Log.Errorf("Game %s round failed: %v", m.name, err)
			return
		}
		if onResult != nil {
			onResult(result)
		}
	}
	logger.Log.Infof("Game %s stopped playing on request", m.name)
}

// Close stops the continuous loop and aborts every abortable player.
func (m *Match) Close() {
	m.runMutex.Lock()
	if m.run != nil {
		m.run.Stop()
	}
	m.runMutex.Unlock()

	m.playerMutex.RLock()
	seats := slices.Clone(m.players)
	m.playerMutex.RUnlock()

	for _, p := range seats {
		if a, ok := p.(player.Abortable); ok {
			a.Abort()
		}
	}
}
