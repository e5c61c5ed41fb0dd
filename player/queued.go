package player

import (
	"context"
	"sync"

	"github.com/wfunc/rpsserver/rules"
)

// Queued is fed moves from outside, typically by the transport when a
// remote player submits one. It is Abortable: once aborted it never
// returns a move again.
type Queued struct {
	id        string
	mutex     sync.Mutex
	moves     []rules.Weapon
	notify    chan struct{}
	aborted   chan struct{}
	abortOnce sync.Once
}

func NewQueued(id string) *Queued {
	return &Queued{
		id:      id,
		notify:  make(chan struct{}, 1),
		aborted: make(chan struct{}),
	}
}

func (p *Queued) ID() string {
	return p.id
}

// AddMove enqueues weapon for a future round. Moves added after Abort are
// kept but never played.
func (p *Queued) AddMove(weapon rules.Weapon) {
	p.mutex.Lock()
	p.moves = append(p.moves, weapon)
	p.mutex.Unlock()
	p.signal()
}

// Pending returns the number of queued moves.
func (p *Queued) Pending() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.moves)
}

// MakeMove blocks until a move is queued, the player is aborted or ctx is done.
func (p *Queued) MakeMove(ctx context.Context, _ Context) (rules.Weapon, error) {
	for {
		if p.Aborted() {
			return rules.Weapon{}, &MoveAbortedError{PlayerID: p.id}
		}
		if w, ok := p.pop(); ok {
			return w, nil
		}
		select {
		case <-p.notify:
		case <-p.aborted:
		case <-ctx.Done():
			return rules.Weapon{}, ctx.Err()
		}
	}
}

// Abort is idempotent.
func (p *Queued) Abort() {
	p.abortOnce.Do(func() { close(p.aborted) })
}

func (p *Queued) Aborted() bool {
	select {
	case <-p.aborted:
		return true
	default:
		return false
	}
}

func (p *Queued) pop() (rules.Weapon, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if len(p.moves) == 0 {
		return rules.Weapon{}, false
	}
	w := p.moves[0]
	p.moves = p.moves[1:]
	if len(p.moves) > 0 {
		// wake the next waiter, the notification for this move may have
		// been coalesced with an earlier one
		p.signal()
	}
	return w, true
}

func (p *Queued) signal() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}
