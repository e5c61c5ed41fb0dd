package rules

import "strings"

// Weapon is a named move. Names are case-insensitive: a Weapon always holds
// the lower-cased form, so two weapons are equal iff their names match.
type Weapon struct {
	name string
}

var (
	Rock     = NewWeapon("rock")
	Paper    = NewWeapon("paper")
	Scissors = NewWeapon("scissors")
	Lizard   = NewWeapon("lizard")
	Spock    = NewWeapon("spock")
)

// NewWeapon returns the weapon called name.
func NewWeapon(name string) Weapon {
	return Weapon{name: strings.ToLower(strings.TrimSpace(name))}
}

func (w Weapon) Name() string {
	return w.name
}

// IsZero reports whether w is the empty weapon.
func (w Weapon) IsZero() bool {
	return w.name == ""
}

func (w Weapon) String() string {
	return w.name
}

// Names converts weapons to their names, keeping order.
func Names(weapons []Weapon) []string {
	names := make([]string, len(weapons))
	for i, w := range weapons {
		names[i] = w.name
	}
	return names
}
