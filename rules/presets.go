package rules

import "strings"

// Classic is plain rock-paper-scissors.
var Classic = NewBuilder("classic").
	Defeats(Paper, Rock).
	Defeats(Scissors, Paper).
	Defeats(Rock, Scissors).
	MustBuild()

// Extended is the five weapon rock-paper-scissors-lizard-spock variant.
var Extended = NewBuilder("extended").
	Defeats(Paper, Rock, Spock).
	Defeats(Scissors, Paper, Lizard).
	Defeats(Rock, Scissors, Lizard).
	Defeats(Spock, Scissors, Rock).
	Defeats(Lizard, Paper, Spock).
	MustBuild()

// Default is used when a match is created without rules.
var Default = Classic

var presets = map[string]*RuleSet{
	"classic":      Classic,
	"extended":     Extended,
	"lizard-spock": Extended,
}

// Lookup resolves a preset by name. The empty name resolves to Default.
func Lookup(name string) (*RuleSet, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Default, true
	}
	rs, ok := presets[name]
	return rs, ok
}

// PresetNames lists the canonical preset names.
func PresetNames() []string {
	return []string{Classic.Name(), Extended.Name()}
}
