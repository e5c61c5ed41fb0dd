package player

import (
	"context"

	"github.com/wfunc/rpsserver/rules"
)

// Scripted plays either one fixed weapon forever or a fixed sequence of
// weapons, one per call. Past the end of the sequence MakeMove blocks until
// ctx is done.
type Scripted struct {
	id      string
	fixed   rules.Weapon
	weapons chan rules.Weapon
}

// Using returns a player that always plays weapon.
func Using(id string, weapon rules.Weapon) *Scripted {
	return &Scripted{id: id, fixed: weapon}
}

// InTurn returns a player that plays weapons in order.
func InTurn(id string, weapons ...rules.Weapon) *Scripted {
	ch := make(chan rules.Weapon, len(weapons))
	for _, w := range weapons {
		ch <- w
	}
	return &Scripted{id: id, weapons: ch}
}

func (p *Scripted) ID() string {
	return p.id
}

func (p *Scripted) MakeMove(ctx context.Context, _ Context) (rules.Weapon, error) {
	if !p.fixed.IsZero() {
		return p.fixed, nil
	}
	select {
	case w := <-p.weapons:
		return w, nil
	case <-ctx.Done():
		return rules.Weapon{}, ctx.Err()
	}
}
