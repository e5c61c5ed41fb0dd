package match

import (
	"fmt"
	"strings"
)

// PlayerOutcome is one participant's view of a finished round.
type PlayerOutcome struct {
	PlayerID  string `json:"playerId"`
	Weapon    string `json:"move"`
	Winner    bool   `json:"winner"`
	TotalWins int    `json:"totalWins"`
}

func (o PlayerOutcome) String() string {
	return fmt.Sprintf("%s:%s(winner=%t,wins=%d)", o.PlayerID, o.Weapon, o.Winner, o.TotalWins)
}

// RoundResult describes a completed round. Outcomes are in join order.
type RoundResult struct {
	Outcomes []PlayerOutcome `json:"playerResults"`
	Round    int             `json:"roundNumber"`
}

// IsDraw reports whether nobody won the round.
func (r RoundResult) IsDraw() bool {
	for _, o := range r.Outcomes {
		if o.Winner {
			return false
		}
	}
	return true
}

// OutcomeFor returns the outcome of playerID.
func (r RoundResult) OutcomeFor(playerID string) (PlayerOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.PlayerID == playerID {
			return o, true
		}
	}
	return PlayerOutcome{}, false
}

func (r RoundResult) WinnerIDs() []string {
	var ids []string
	for _, o := range r.Outcomes {
		if o.Winner {
			ids = append(ids, o.PlayerID)
		}
	}
	return ids
}

// WeaponUsed returns the weapon name playerID used, or "".
func (r RoundResult) WeaponUsed(playerID string) string {
	o, _ := r.OutcomeFor(playerID)
	return o.Weapon
}

func (r RoundResult) String() string {
	if r.IsDraw() {
		return fmt.Sprintf("Round %d Draw", r.Round)
	}
	parts := make([]string, len(r.Outcomes))
	for i, o := range r.Outcomes {
		parts[i] = o.String()
	}
	return fmt.Sprintf("Round %d [%s]", r.Round, strings.Join(parts, ", "))
}
