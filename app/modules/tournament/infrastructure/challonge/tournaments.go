package challonge

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	tournamentservice "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/application"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
)

var _ tournamentservice.BracketService = (*Client)(nil)

const (
	typeSwiss       = "swiss"
	typeElimination = "single elimination"
)

func (c *Client) CreateTournament(ctx context.Context, name, description, slug string, topCut bool) (*tournamentdomain.BracketTournament, error) {
	kind := typeSwiss
	if topCut {
		kind = typeElimination
	}
	params := url.Values{
		"tournament[name]":            {name},
		"tournament[description]":     {description},
		"tournament[url]":             {slug},
		"tournament[tournament_type]": {kind},
	}
	var out tournamentEnvelope
	if err := c.do(ctx, http.MethodPost, "/tournaments", params, &out); err != nil {
		return nil, err
	}
	return out.Tournament.toDomain(), nil
}

func (c *Client) UpdateTournament(ctx context.Context, id tournamentdomain.TournamentID, name, description string) error {
	params := url.Values{
		"tournament[name]":        {name},
		"tournament[description]": {description},
	}
	return c.do(ctx, http.MethodPut, tournamentPath(id), params, nil)
}

// GetTournament includes the participants.
func (c *Client) GetTournament(ctx context.Context, id tournamentdomain.TournamentID) (*tournamentdomain.BracketTournament, error) {
	var out tournamentEnvelope
	err := c.do(ctx, http.MethodGet, tournamentPath(id), url.Values{"include_participants": {"1"}}, &out)
	if err != nil {
		return nil, err
	}
	return out.Tournament.toDomain(), nil
}

func (c *Client) FinishTournament(ctx context.Context, id tournamentdomain.TournamentID) (*tournamentdomain.BracketTournament, error) {
	var out tournamentEnvelope
	if err := c.do(ctx, http.MethodPost, tournamentPath(id, "finalize"), url.Values{}, &out); err != nil {
		return nil, err
	}
	return out.Tournament.toDomain(), nil
}

func (c *Client) StartTournament(ctx context.Context, id tournamentdomain.TournamentID) error {
	return c.do(ctx, http.MethodPost, tournamentPath(id, "start"), url.Values{}, nil)
}

// RegisterPlayer stores the Discord ID in the participant's misc field.
func (c *Client) RegisterPlayer(ctx context.Context, id tournamentdomain.TournamentID, name string, user tournamentdomain.DiscordID) (int, error) {
	params := url.Values{
		"participant[name]": {name},
		"participant[misc]": {string(user)},
	}
	var out participantEnvelope
	if err := c.do(ctx, http.MethodPost, tournamentPath(id, "participants"), params, &out); err != nil {
		return 0, err
	}
	return out.Participant.ID, nil
}

func (c *Client) RemovePlayer(ctx context.Context, id tournamentdomain.TournamentID, bracketID int) error {
	return c.do(ctx, http.MethodDelete, tournamentPath(id, "participants", strconv.Itoa(bracketID)), nil, nil)
}

func (c *Client) participants(ctx context.Context, id tournamentdomain.TournamentID) ([]participantJSON, error) {
	var out []participantEnvelope
	if err := c.do(ctx, http.MethodGet, tournamentPath(id, "participants"), nil, &out); err != nil {
		return nil, err
	}
	ps := make([]participantJSON, len(out))
	for i, p := range out {
		ps[i] = p.Participant
	}
	return ps, nil
}

func (c *Client) GetPlayers(ctx context.Context, id tournamentdomain.TournamentID) ([]tournamentdomain.BracketPlayer, error) {
	ps, err := c.participants(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]tournamentdomain.BracketPlayer, len(ps))
	for i, p := range ps {
		out[i] = p.toDomain()
	}
	return out, nil
}

func (c *Client) matches(ctx context.Context, id tournamentdomain.TournamentID, params url.Values) ([]matchJSON, error) {
	var out []matchEnvelope
	if err := c.do(ctx, http.MethodGet, tournamentPath(id, "matches"), params, &out); err != nil {
		return nil, err
	}
	ms := make([]matchJSON, len(out))
	for i, m := range out {
		ms[i] = m.Match
	}
	return ms, nil
}

// GetMatches returns the open matches.
func (c *Client) GetMatches(ctx context.Context, id tournamentdomain.TournamentID) ([]tournamentdomain.Match, error) {
	ms, err := c.matches(ctx, id, url.Values{"state": {"open"}})
	if err != nil {
		return nil, err
	}
	out := make([]tournamentdomain.Match, len(ms))
	for i, m := range ms {
		out[i] = m.toDomain()
	}
	return out, nil
}

func (c *Client) findOpenMatch(ctx context.Context, id tournamentdomain.TournamentID, bracketID int) (*matchJSON, error) {
	ms, err := c.matches(ctx, id, url.Values{
		"state":          {"open"},
		"participant_id": {strconv.Itoa(bracketID)},
	})
	if err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return nil, nil
	}
	return &ms[0], nil
}

func (c *Client) FindMatch(ctx context.Context, id tournamentdomain.TournamentID, bracketID int) (*tournamentdomain.Match, error) {
	m, err := c.findOpenMatch(ctx, id, bracketID)
	if err != nil || m == nil {
		return nil, err
	}
	out := m.toDomain()
	return &out, nil
}

// SubmitScore orients the scores to the match's player one and sets the winner,
// or "tie" for equal scores.
func (c *Client) SubmitScore(ctx context.Context, id tournamentdomain.TournamentID, bracketID, ownScore, oppScore int) error {
	m, err := c.findOpenMatch(ctx, id, bracketID)
	if err != nil {
		return err
	}
	if m == nil {
		return &tournamentdomain.BracketAPIError{StatusCode: http.StatusNotFound, Message: fmt.Sprintf("no open match for participant %d", bracketID)}
	}

	match := m.toDomain()
	opponent := match.Player1
	csv := fmt.Sprintf("%d-%d", oppScore, ownScore)
	if match.Player1 == bracketID {
		opponent = match.Player2
		csv = fmt.Sprintf("%d-%d", ownScore, oppScore)
	}
	winner := "tie"
	switch {
	case ownScore > oppScore:
		winner = strconv.Itoa(bracketID)
	case oppScore > ownScore:
		winner = strconv.Itoa(opponent)
	}

	params := url.Values{
		"match[scores_csv]": {csv},
		"match[winner_id]":  {winner},
	}
	return c.do(ctx, http.MethodPut, tournamentPath(id, "matches", strconv.Itoa(m.ID)), params, nil)
}

// GetBye finds the active participant left out of the latest round.
func (c *Client) GetBye(ctx context.Context, id tournamentdomain.TournamentID) (tournamentdomain.DiscordID, error) {
	ms, err := c.matches(ctx, id, nil)
	if err != nil {
		return "", err
	}
	if len(ms) == 0 {
		return "", nil
	}
	round := slices.MaxFunc(ms, func(a, b matchJSON) int { return cmp.Compare(a.Round, b.Round) }).Round
	paired := make(map[int]bool)
	for _, m := range ms {
		if m.Round != round {
			continue
		}
		match := m.toDomain()
		paired[match.Player1] = true
		paired[match.Player2] = true
	}

	ps, err := c.participants(ctx, id)
	if err != nil {
		return "", err
	}
	for _, p := range ps {
		if p.Active && !paired[p.ID] {
			return tournamentdomain.DiscordID(p.Misc), nil
		}
	}
	return "", nil
}

// GetTopCut returns the best size participants by final rank, then seed.
func (c *Client) GetTopCut(ctx context.Context, id tournamentdomain.TournamentID, size int) ([]tournamentdomain.BracketPlayer, error) {
	ps, err := c.participants(ctx, id)
	if err != nil {
		return nil, err
	}
	ps = slices.DeleteFunc(ps, func(p participantJSON) bool {
		return !tournamentdomain.IsUserSnowflake(tournamentdomain.DiscordID(p.Misc))
	})
	slices.SortStableFunc(ps, func(a, b participantJSON) int {
		switch {
		case a.FinalRank == nil && b.FinalRank != nil:
			return 1
		case a.FinalRank != nil && b.FinalRank == nil:
			return -1
		case a.FinalRank != nil && b.FinalRank != nil:
			if d := cmp.Compare(*a.FinalRank, *b.FinalRank); d != 0 {
				return d
			}
		}
		return cmp.Compare(a.Seed, b.Seed)
	})
	ps = ps[:min(size, len(ps))]
	out := make([]tournamentdomain.BracketPlayer, len(ps))
	for i, p := range ps {
		out[i] = p.toDomain()
	}
	return out, nil
}

func byePlaceholder(n int) tournamentdomain.DiscordID {
	return tournamentdomain.DiscordID("bye-" + strconv.Itoa(n))
}

// AssignByes adds one placeholder per bye player and seeds each placeholder
// directly beneath its player so round one pairs them together.
func (c *Client) AssignByes(ctx context.Context, id tournamentdomain.TournamentID, players []tournamentdomain.DiscordID) error {
	if len(players) == 0 {
		return nil
	}
	ps, err := c.participants(ctx, id)
	if err != nil {
		return err
	}
	byMisc := make(map[tournamentdomain.DiscordID]int, len(ps))
	for _, p := range ps {
		byMisc[tournamentdomain.DiscordID(p.Misc)] = p.ID
	}

	for i, player := range players {
		participant, ok := byMisc[player]
		if !ok {
			return fmt.Errorf("bye player %s is not registered in %s", player, id)
		}
		seed := 2*i + 1
		if err := c.setSeed(ctx, id, participant, seed); err != nil {
			return err
		}
		placeholder, err := c.RegisterPlayer(ctx, id, fmt.Sprintf("Round 1 Bye #%d", i+1), byePlaceholder(i+1))
		if err != nil {
			return err
		}
		if err := c.setSeed(ctx, id, placeholder, seed+1); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) setSeed(ctx context.Context, id tournamentdomain.TournamentID, participant, seed int) error {
	params := url.Values{"participant[seed]": {strconv.Itoa(seed)}}
	return c.do(ctx, http.MethodPut, tournamentPath(id, "participants", strconv.Itoa(participant)), params, nil)
}

// DropByes removes up to count placeholders. Removing a participant from a
// started tournament forfeits its open match.
func (c *Client) DropByes(ctx context.Context, id tournamentdomain.TournamentID, count int) error {
	if count <= 0 {
		return nil
	}
	ps, err := c.participants(ctx, id)
	if err != nil {
		return err
	}
	dropped := 0
	for _, p := range ps {
		if dropped == count {
			break
		}
		if tournamentdomain.IsUserSnowflake(tournamentdomain.DiscordID(p.Misc)) {
			continue
		}
		if err := c.RemovePlayer(ctx, id, p.ID); err != nil {
			return err
		}
		dropped++
	}
	return nil
}
