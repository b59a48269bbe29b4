package espn

import (
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/models"
)

// Scoreboard is the subset of the ESPN scoreboard payload the settler reads
type Scoreboard struct {
	Events []Event `json:"events"`
}

type Event struct {
	ID           string        `json:"id"`
	Date         string        `json:"date"`
	Competitions []Competition `json:"competitions"`
}

type Competition struct {
	Competitors []Competitor `json:"competitors"`
	Status      Status       `json:"status"`
	Odds        []Odds       `json:"odds"`
}

type Competitor struct {
	HomeAway string `json:"homeAway"`
	Score    string `json:"score"`
	Team     struct {
		Abbreviation string `json:"abbreviation"`
	} `json:"team"`
}

type Status struct {
	Type struct {
		Name      string `json:"name"`
		State     string `json:"state"`
		Completed bool   `json:"completed"`
	} `json:"type"`
}

// Odds carries the book's current line. Spread is home-relative, negative
// when the home team is favored.
type Odds struct {
	Details   string   `json:"details"`
	Spread    *float64 `json:"spread"`
	OverUnder *float64 `json:"overUnder"`
}

// Update is one scoreboard observation tagged with ESPN's event ID
type Update struct {
	EventID string
	models.ScoreUpdate
}

// eastern is the calendar the schedule's game dates are kept in
var eastern = mustLocation("America/New_York")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseScoreboard converts ESPN events into score updates. Events missing a
// home or away competitor are skipped. Scores are only reported for final
// games so a live score never reaches settlement.
func ParseScoreboard(board *Scoreboard) []Update {
	if board == nil {
		return nil
	}

	updates := make([]Update, 0, len(board.Events))
	for _, event := range board.Events {
		if len(event.Competitions) == 0 {
			continue
		}
		comp := event.Competitions[0]

		u := Update{EventID: event.ID}
		var homeScore, awayScore *int
		for _, team := range comp.Competitors {
			abbrev := strings.ToUpper(strings.TrimSpace(team.Team.Abbreviation))
			score := parseScore(team.Score)
			switch team.HomeAway {
			case "home":
				u.HomeTeam = abbrev
				homeScore = score
			case "away":
				u.AwayTeam = abbrev
				awayScore = score
			}
		}
		if u.HomeTeam == "" || u.AwayTeam == "" {
			continue
		}

		u.Status = parseStatus(comp.Status)
		if u.Status == models.StatusFinal {
			u.HomeScore = homeScore
			u.AwayScore = awayScore
		}

		if kickoff, ok := parseKickoff(event.Date); ok {
			u.KickoffUTC = kickoff
			u.GameDate = kickoff.In(eastern).Format("2006-01-02")
		} else if len(event.Date) >= 10 {
			u.GameDate = event.Date[:10]
		}

		if len(comp.Odds) > 0 && comp.Odds[0].Spread != nil {
			spread := *comp.Odds[0].Spread
			u.CurrentSpread = &spread
		}

		updates = append(updates, u)
	}
	return updates
}

func parseScore(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

func parseStatus(s Status) models.GameStatus {
	switch {
	case s.Type.Completed, s.Type.Name == "STATUS_FINAL":
		return models.StatusFinal
	case s.Type.State == "in":
		return models.StatusLive
	default:
		return models.StatusScheduled
	}
}

// ESPN dates come without seconds ("2025-09-07T17:00Z")
var kickoffLayouts = []string{"2006-01-02T15:04Z07:00", time.RFC3339}

func parseKickoff(s string) (time.Time, bool) {
	for _, layout := range kickoffLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
