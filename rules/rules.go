// rules/rules.go
package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInconsistentRules is returned when a rule set fails validation.
var ErrInconsistentRules = errors.New("inconsistent game rules")

// Fact declares that Weapon defeats every weapon in Defeats.
type Fact struct {
	Weapon  Weapon
	Defeats []Weapon
}

// RuleSet is an immutable defeat relation between weapons.
type RuleSet struct {
	name    string
	defeats map[Weapon]map[Weapon]struct{}
	weapons []Weapon
}

// New accumulates facts into a rule set and validates it.
func New(name string, facts ...Fact) (*RuleSet, error) {
	b := NewBuilder(name)
	for _, f := range facts {
		b.Defeats(f.Weapon, f.Defeats...)
	}
	return b.Build()
}

// Name returns the rule set name, e.g. "classic".
func (rs *RuleSet) Name() string {
	return rs.name
}

// Defeats reports whether a defeats b. Weapons unknown to the set defeat
// nothing and are defeated by nothing.
func (rs *RuleSet) Defeats(a, b Weapon) bool {
	_, ok := rs.defeats[a][b]
	return ok
}

// Weapons returns the vocabulary of the rule set in declaration order.
func (rs *RuleSet) Weapons() []Weapon {
	out := make([]Weapon, len(rs.weapons))
	copy(out, rs.weapons)
	return out
}

// Has reports whether w is part of the vocabulary.
func (rs *RuleSet) Has(w Weapon) bool {
	for _, known := range rs.weapons {
		if known == w {
			return true
		}
	}
	return false
}

func (rs *RuleSet) String() string {
	return rs.name + "[" + strings.Join(Names(rs.weapons), ",") + "]"
}

// validate walks attackers in declaration order and stops at the first
// violation.
func (rs *RuleSet) validate(order []Weapon) error {
	for _, w := range order {
		defeatees := make([]Weapon, 0, len(rs.defeats[w]))
		for d := range rs.defeats[w] {
			defeatees = append(defeatees, d)
		}
		sort.Slice(defeatees, func(i, j int) bool { return defeatees[i].name < defeatees[j].name })

		for _, d := range defeatees {
			if rs.Defeats(d, w) {
				return fmt.Errorf("%w: %s and %s defeat each other", ErrInconsistentRules, w, d)
			}
		}
		if !rs.defeatable(w) {
			return fmt.Errorf("%w: %s is not defeatable", ErrInconsistentRules, w)
		}
	}
	return nil
}

func (rs *RuleSet) defeatable(w Weapon) bool {
	for attacker, defeatees := range rs.defeats {
		if attacker == w {
			continue
		}
		if _, ok := defeatees[w]; ok {
			return true
		}
	}
	return false
}

// Builder accumulates "weapon defeats others" facts.
type Builder struct {
	name    string
	defeats map[Weapon]map[Weapon]struct{}
	order   []Weapon
	seen    map[Weapon]bool
	vocab   []Weapon
}

func NewBuilder(name string) *Builder {
	return &Builder{
		name:    name,
		defeats: make(map[Weapon]map[Weapon]struct{}),
		seen:    make(map[Weapon]bool),
	}
}

// Defeats records that weapon defeats others. Repeated calls for the same
// weapon merge.
func (b *Builder) Defeats(weapon Weapon, others ...Weapon) *Builder {
	set, ok := b.defeats[weapon]
	if !ok {
		set = make(map[Weapon]struct{})
		b.defeats[weapon] = set
		b.order = append(b.order, weapon)
	}
	b.remember(weapon)
	for _, o := range others {
		set[o] = struct{}{}
		b.remember(o)
	}
	return b
}

func (b *Builder) remember(w Weapon) {
	if !b.seen[w] {
		b.seen[w] = true
		b.vocab = append(b.vocab, w)
	}
}

// Build validates the accumulated facts. It fails with ErrInconsistentRules
// when two weapons defeat each other or a declared weapon has no defeater.
func (b *Builder) Build() (*RuleSet, error) {
	rs := &RuleSet{
		name:    b.name,
		defeats: make(map[Weapon]map[Weapon]struct{}, len(b.defeats)),
		weapons: append([]Weapon(nil), b.vocab...),
	}
	for w, set := range b.defeats {
		cp := make(map[Weapon]struct{}, len(set))
		for d := range set {
			cp[d] = struct{}{}
		}
		rs.defeats[w] = cp
	}
	if err := rs.validate(b.order); err != nil {
		return nil, err
	}
	return rs, nil
}

// MustBuild is Build for package-level presets.
func (b *Builder) MustBuild() *RuleSet {
	rs, err := b.Build()
	if err != nil {
		panic(err)
	}
	return rs
}
