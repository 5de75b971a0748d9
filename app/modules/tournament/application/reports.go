package tournamentservice

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/Black-And-White-Club/tourney-bot/app/modules/deck"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
)

type playerDeck struct {
	name string
	deck *deck.Deck
}

// playerDecks resolves every confirmed player's name and stored deck. Decks
// that no longer parse are reported with a nil deck.
func (s *TournamentService) playerDecks(ctx context.Context, t *tournamentdomain.Tournament) []playerDeck {
	out := make([]playerDeck, 0, len(t.Players))
	for _, p := range t.Players {
		d, err := s.decks.FromURL(p.Deck)
		if err != nil {
			s.logger.WarnContext(ctx, "Stored deck could not be parsed",
				attr.ExtractCorrelationID(ctx),
				attr.TournamentID(string(t.ID)),
				attr.UserID(string(p.DiscordID)),
				attr.Error(err),
			)
			d = nil
		}
		out = append(out, playerDeck{name: s.username(ctx, p.DiscordID), deck: d})
	}
	return out
}

func themeLabel(d *deck.Deck) string {
	if d == nil {
		return "No themes"
	}
	return d.ThemeLabel()
}

// ListPlayers renders the players of a tournament with their deck theme.
func (s *TournamentService) ListPlayers(ctx context.Context, id tournamentdomain.TournamentID) (tournamentdomain.Attachment, error) {
	return withTelemetry(s, ctx, "ListPlayers", id, func(ctx context.Context) (tournamentdomain.Attachment, error) {
		t, err := s.getTournament(ctx, id)
		if err != nil {
			return tournamentdomain.Attachment{}, err
		}
		decks := s.playerDecks(ctx, t)
		rows := make([]tournamentdomain.PlayerRow, len(decks))
		for i, pd := range decks {
			rows[i] = tournamentdomain.PlayerRow{Player: pd.name, Theme: themeLabel(pd.deck)}
		}
		return s.reports.PlayersCSV(t.Name, rows)
	})
}

// ThemeCounts tallies deck themes, most common first.
func ThemeCounts(labels []string) []tournamentdomain.ThemeCount {
	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}
	out := make([]tournamentdomain.ThemeCount, 0, len(counts))
	for theme, n := range counts {
		out = append(out, tournamentdomain.ThemeCount{Theme: theme, Count: n})
	}
	slices.SortFunc(out, func(a, b tournamentdomain.ThemeCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Theme, b.Theme)
	})
	return out
}

// PieChart renders the theme distribution of a tournament.
func (s *TournamentService) PieChart(ctx context.Context, id tournamentdomain.TournamentID) (tournamentdomain.Attachment, error) {
	return withTelemetry(s, ctx, "PieChart", id, func(ctx context.Context) (tournamentdomain.Attachment, error) {
		t, err := s.getTournament(ctx, id)
		if err != nil {
			return tournamentdomain.Attachment{}, err
		}
		if len(t.Players) == 0 {
			return tournamentdomain.Attachment{}, tournamentdomain.NewUserError("Tournament %s has no players yet!", id)
		}
		decks := s.playerDecks(ctx, t)
		labels := make([]string, len(decks))
		for i, pd := range decks {
			labels[i] = themeLabel(pd.deck)
		}
		return s.reports.ThemePie(t.Name, ThemeCounts(labels))
	})
}

// DeckDump exports every confirmed player's deck.
func (s *TournamentService) DeckDump(ctx context.Context, id tournamentdomain.TournamentID) (tournamentdomain.Attachment, error) {
	return withTelemetry(s, ctx, "DeckDump", id, func(ctx context.Context) (tournamentdomain.Attachment, error) {
		t, err := s.getTournament(ctx, id)
		if err != nil {
			return tournamentdomain.Attachment{}, err
		}
		decks := s.playerDecks(ctx, t)
		rows := make([]tournamentdomain.DeckRow, 0, len(decks))
		for i, pd := range decks {
			row := tournamentdomain.DeckRow{Player: pd.name, Theme: themeLabel(pd.deck), URL: t.Players[i].Deck}
			if pd.deck != nil {
				row.Main = pd.deck.SectionText(pd.deck.Main)
				row.Extra = pd.deck.SectionText(pd.deck.Extra)
				row.Side = pd.deck.SectionText(pd.deck.Side)
			}
			rows = append(rows, row)
		}
		return s.reports.DeckDump(t.Name, rows)
	})
}

// GetPlayerDeck returns the stored deck of a confirmed player.
func (s *TournamentService) GetPlayerDeck(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID) (*deck.Deck, error) {
	return withTelemetry(s, ctx, "GetPlayerDeck", id, func(ctx context.Context) (*deck.Deck, error) {
		t, err := s.getTournament(ctx, id)
		if err != nil {
			return nil, err
		}
		p := t.FindPlayer(user)
		if p == nil {
			return nil, &tournamentdomain.UnauthorisedPlayerError{Player: user, TournamentID: id}
		}
		d, err := s.decks.FromURL(p.Deck)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored deck: %w", err)
		}
		return d, nil
	})
}
