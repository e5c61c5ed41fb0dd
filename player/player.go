// player/player.go
package player

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/rpsserver/rules"
)

// ErrMoveAborted matches every *MoveAbortedError.
var ErrMoveAborted = errors.New("move aborted")

// MoveAbortedError is returned by an aborted player instead of a move.
type MoveAbortedError struct {
	PlayerID string
}

func (e *MoveAbortedError) Error() string {
	return fmt.Sprintf("move of player %s got aborted", e.PlayerID)
}

func (e *MoveAbortedError) Is(target error) bool {
	return target == ErrMoveAborted
}

// Context is what a player sees when asked for a move.
type Context struct {
	AvailableMoves []rules.Weapon
}

// Player supplies a weapon for every round of a match.
type Player interface {
	// ID returns the unique id of the player within a match.
	ID() string
	// MakeMove returns the weapon to use in the next round. It may block
	// until a move is available or ctx is done.
	MakeMove(ctx context.Context, gc Context) (rules.Weapon, error)
}

// Abortable players can be told to stop supplying moves. Abort releases
// every blocked and future MakeMove call with a *MoveAbortedError.
type Abortable interface {
	Player
	Abort()
}
