// Package league holds the static NFL structure: conferences, divisions,
// team colors, and abbreviation aliases. It is loaded once and never mutated.
package league

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed nfl.yaml
var nflYAML []byte

// Colors is a team's primary and secondary color
type Colors struct {
	Primary   string `yaml:"primary" json:"primary"`
	Secondary string `yaml:"secondary" json:"secondary"`
}

// Team is one franchise and where it sits in the league
type Team struct {
	Abbreviation string `json:"abbreviation"`
	Conference   string `json:"conference"`
	Division     string `json:"division"`
	Colors       Colors `json:"colors"`
}

// DefaultColors is used for an abbreviation with no color entry
var DefaultColors = Colors{Primary: "#013369", Secondary: "#D50A0A"}

type document struct {
	Conferences map[string]map[string][]string `yaml:"conferences"`
	Colors      map[string]Colors              `yaml:"colors"`
	Aliases     map[string]string              `yaml:"aliases"`
}

// League is a read-only view over the team tables
type League struct {
	teams   map[string]Team
	aliases map[string]string
	order   []string
}

// Load parses the embedded NFL tables
func Load() (*League, error) {
	return Parse(nflYAML)
}

// Parse builds a League from YAML in the embedded format
func Parse(data []byte) (*League, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse league: %w", err)
	}

	l := &League{
		teams:   make(map[string]Team),
		aliases: make(map[string]string, len(doc.Aliases)),
	}

	for conf, divisions := range doc.Conferences {
		for div, abbrs := range divisions {
			for _, abbr := range abbrs {
				if _, dup := l.teams[abbr]; dup {
					return nil, fmt.Errorf("team %s listed in more than one division", abbr)
				}
				colors, ok := doc.Colors[abbr]
				if !ok {
					colors = DefaultColors
				}
				l.teams[abbr] = Team{
					Abbreviation: abbr,
					Conference:   conf,
					Division:     div,
					Colors:       colors,
				}
				l.order = append(l.order, abbr)
			}
		}
	}
	sort.Strings(l.order)

	for alias, canonical := range doc.Aliases {
		if _, ok := l.teams[canonical]; !ok {
			return nil, fmt.Errorf("alias %s points at unknown team %s", alias, canonical)
		}
		l.aliases[alias] = canonical
	}

	return l, nil
}

// Normalize maps a scoreboard abbreviation to the canonical one. The second
// return is false for an unknown team.
func (l *League) Normalize(abbr string) (string, bool) {
	abbr = strings.ToUpper(strings.TrimSpace(abbr))
	if canonical, ok := l.aliases[abbr]; ok {
		return canonical, true
	}
	_, ok := l.teams[abbr]
	return abbr, ok
}

// Team looks up a team by abbreviation or alias
func (l *League) Team(abbr string) (Team, bool) {
	canonical, ok := l.Normalize(abbr)
	if !ok {
		return Team{}, false
	}
	return l.teams[canonical], true
}

// Teams returns every team sorted by abbreviation
func (l *League) Teams() []Team {
	out := make([]Team, 0, len(l.order))
	for _, abbr := range l.order {
		out = append(out, l.teams[abbr])
	}
	return out
}

// Divisions returns conference → division → sorted team abbreviations
func (l *League) Divisions() map[string]map[string][]string {
	out := make(map[string]map[string][]string)
	for _, abbr := range l.order {
		t := l.teams[abbr]
		if out[t.Conference] == nil {
			out[t.Conference] = make(map[string][]string)
		}
		out[t.Conference][t.Division] = append(out[t.Conference][t.Division], abbr)
	}
	return out
}
