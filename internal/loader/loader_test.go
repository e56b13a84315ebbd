package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinleague/pinstats/internal/model"
)

func validTestMatch() MatchJSON {
	return MatchJSON{
		Key:      "s22w3-wizards-crushers",
		Season:   22,
		Week:     3,
		Date:     "2026-03-12",
		Venue:    EntityJSON{Key: "north-star", Name: "North Star Bar"},
		HomeTeam: EntityJSON{Key: "wizards", Name: "Pinball Wizards"},
		AwayTeam: EntityJSON{Key: "crushers", Name: "Flipper Crushers"},
		Games: []GameJSON{
			{
				Round:   2,
				Machine: "Medusa",
				Done:    true,
				Scores: []ScoreJSON{
					{Player: EntityJSON{Key: "alice", Name: "Alice"}, Position: 1, Score: 1_200_000, Team: "wizards"},
					{Player: EntityJSON{Key: "bob", Name: "Bob"}, Position: 2, Score: 900_000, Team: "crushers"},
				},
			},
		},
	}
}

func TestValidateMatchAccepts(t *testing.T) {
	date, err := validateMatch(validTestMatch())
	require.NoError(t, err)
	assert.Equal(t, "2026-03-12", date.Format("2006-01-02"))
}

func TestValidateMatchRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*MatchJSON)
	}{
		{"missing match key", func(m *MatchJSON) { m.Key = "" }},
		{"missing venue key", func(m *MatchJSON) { m.Venue.Key = "" }},
		{"zero season", func(m *MatchJSON) { m.Season = 0 }},
		{"zero week", func(m *MatchJSON) { m.Week = 0 }},
		{"bad date", func(m *MatchJSON) { m.Date = "12/03/2026" }},
		{"round out of range", func(m *MatchJSON) { m.Games[0].Round = 5 }},
		{"negative score", func(m *MatchJSON) { m.Games[0].Scores[0].Score = -1 }},
		{"position out of range", func(m *MatchJSON) { m.Games[0].Scores[0].Position = 5 }},
		{"duplicate position", func(m *MatchJSON) { m.Games[0].Scores[1].Position = 1 }},
		{"score without player", func(m *MatchJSON) { m.Games[0].Scores[0].Player.Key = "" }},
		{"team not in match", func(m *MatchJSON) { m.Games[0].Scores[0].Team = "outsiders" }},
		{"too many games", func(m *MatchJSON) {
			g := m.Games[0]
			m.Games = []GameJSON{g, {Round: 1}, {Round: 3}, {Round: 4}, {Round: 2}}
		}},
		{"duplicate round", func(m *MatchJSON) {
			m.Games = append(m.Games, GameJSON{Round: 2})
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := validTestMatch()
			c.mutate(&m)
			_, err := validateMatch(m)
			assert.ErrorIs(t, err, model.ErrInvalidInput)
		})
	}
}

func TestValidateMatchDoneGameNeedsFullScores(t *testing.T) {
	// Round 2 is head-to-head: a done game must carry exactly 2 scores.
	m := validTestMatch()
	m.Games[0].Scores = m.Games[0].Scores[:1]
	_, err := validateMatch(m)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	// Group rounds need 4.
	m = validTestMatch()
	m.Games[0].Round = 1
	_, err = validateMatch(m)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	// A game still in progress may have partial scores.
	m = validTestMatch()
	m.Games[0].Done = false
	m.Games[0].Scores = m.Games[0].Scores[:1]
	_, err = validateMatch(m)
	assert.NoError(t, err)
}

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Medusa", "medusa"},
		{"The Addams Family", "the-addams-family"},
		{"  Godzilla (Premium)  ", "godzilla-premium"},
		{"AC/DC", "ac-dc"},
		{"Revenge from Mars!", "revenge-from-mars"},
		{"TX-Sector", "tx-sector"},
		{"1,000,000 B.C.", "1-000-000-b-c"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, slugify(c.in), "input %q", c.in)
	}
}

func TestResultSeasonTracking(t *testing.T) {
	var r Result
	r.addSeason(22)
	r.addSeason(21)
	r.addSeason(22)
	assert.Equal(t, []int{22, 21}, r.Seasons)
}

func TestResultCountsDistinctPlayers(t *testing.T) {
	var r Result
	// A player scoring in every round of a match is still one player.
	r.addPlayer("alice")
	r.addPlayer("alice")
	r.addPlayer("bob")
	r.addPlayer("alice")
	assert.Equal(t, 2, r.PlayersUpserted)
}

func TestResultSummary(t *testing.T) {
	r := Result{MatchesLoaded: 2, GamesLoaded: 8, ScoresLoaded: 24, PlayersUpserted: 24, Skipped: 1}
	r.AddErrorf("match %q: bad date", "x")
	assert.Equal(t, "matches=2 games=8 scores=24 players=24 skipped=1 errors=1", r.Summary())
	require.Len(t, r.Errors, 1)
}
