package challonge

import (
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
)

type tournamentEnvelope struct {
	Tournament tournamentJSON `json:"tournament"`
}

type tournamentJSON struct {
	ID               int                   `json:"id"`
	URL              string                `json:"url"`
	Name             string                `json:"name"`
	Description      string                `json:"description"`
	State            string                `json:"state"`
	FullChallongeURL string                `json:"full_challonge_url"`
	Participants     []participantEnvelope `json:"participants"`
}

type participantEnvelope struct {
	Participant participantJSON `json:"participant"`
}

type participantJSON struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Misc      string `json:"misc"`
	Seed      int    `json:"seed"`
	Active    bool   `json:"active"`
	FinalRank *int   `json:"final_rank"`
}

type matchEnvelope struct {
	Match matchJSON `json:"match"`
}

type matchJSON struct {
	ID        int    `json:"id"`
	Round     int    `json:"round"`
	State     string `json:"state"`
	Player1ID *int   `json:"player1_id"`
	Player2ID *int   `json:"player2_id"`
}

func (t tournamentJSON) toDomain() *tournamentdomain.BracketTournament {
	out := &tournamentdomain.BracketTournament{
		ID:          tournamentdomain.TournamentID(t.URL),
		Name:        t.Name,
		Description: t.Description,
		URL:         t.FullChallongeURL,
	}
	for _, p := range t.Participants {
		out.Players = append(out.Players, p.Participant.toDomain())
	}
	return out
}

func (p participantJSON) toDomain() tournamentdomain.BracketPlayer {
	return tournamentdomain.BracketPlayer{
		BracketID: p.ID,
		DiscordID: tournamentdomain.DiscordID(p.Misc),
		Name:      p.Name,
	}
}

func (m matchJSON) toDomain() tournamentdomain.Match {
	out := tournamentdomain.Match{ID: m.ID, Round: m.Round}
	if m.Player1ID != nil {
		out.Player1 = *m.Player1ID
	}
	if m.Player2ID != nil {
		out.Player2 = *m.Player2ID
	}
	return out
}
