package player

import (
	"context"
	"math/rand"

	"github.com/wfunc/rpsserver/rules"
)

// DefaultBotID is the id of a bot created without one.
const DefaultBotID = "Bot"

// Bot picks a legal weapon uniformly at random. It never blocks.
type Bot struct {
	id string
}

func NewBot(id string) *Bot {
	if id == "" {
		id = DefaultBotID
	}
	return &Bot{id: id}
}

func (b *Bot) ID() string {
	return b.id
}

// MakeMove returns the zero Weapon when gc offers no moves.
func (b *Bot) MakeMove(_ context.Context, gc Context) (rules.Weapon, error) {
	if len(gc.AvailableMoves) == 0 {
		return rules.Weapon{}, nil
	}
	return gc.AvailableMoves[rand.Intn(len(gc.AvailableMoves))], nil
}
