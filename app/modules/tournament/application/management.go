package tournamentservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	tournamentdb "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/infrastructure/repositories"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
)

// CreateResult is returned by CreateTournament.
type CreateResult struct {
	ID    tournamentdomain.TournamentID
	URL   string
	Guide string
}

// SyncResult lists the interrupted operations cleared by SyncTournament.
type SyncResult struct {
	Cleared []tournamentdomain.Intent
}

var slugStrip = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// Slug derives the base bracket URL from a tournament name.
func Slug(name string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(name), "")
	if slug == "" {
		return "tournament"
	}
	return slug
}

type newTournament struct {
	host            tournamentdomain.DiscordID
	server          tournamentdomain.ServerID
	name            string
	description     string
	topCut          bool
	hosts           []tournamentdomain.DiscordID
	publicChannels  []tournamentdomain.ChannelID
	privateChannels []tournamentdomain.ChannelID
}

// CreateTournament creates the bracket and the local record, with host as owner.
func (s *TournamentService) CreateTournament(ctx context.Context, host tournamentdomain.DiscordID, server tournamentdomain.ServerID, name, description string) (*CreateResult, error) {
	return withTelemetry(s, ctx, "CreateTournament", "", func(ctx context.Context) (*CreateResult, error) {
		return s.createTournament(ctx, newTournament{
			host:        host,
			server:      server,
			name:        name,
			description: description,
		})
	})
}

func (s *TournamentService) createTournament(ctx context.Context, req newTournament) (*CreateResult, error) {
	base := Slug(req.name)
	candidate := base
	for i := 0; ; i++ {
		taken, err := s.slugTaken(ctx, tournamentdomain.TournamentID(candidate))
		if err != nil {
			return nil, err
		}
		if !taken {
			break
		}
		candidate = base + strconv.Itoa(i)
	}

	intent, err := s.beginIntent(ctx, tournamentdomain.TournamentID(candidate), "create")
	if err != nil {
		return nil, err
	}

	bt, err := s.bracket.CreateTournament(ctx, req.name, req.description, candidate, req.topCut)
	if err != nil {
		return nil, fmt.Errorf("failed to create bracket: %w", err)
	}
	s.stepIntent(ctx, intent, "bracket_created")

	hosts := []tournamentdomain.DiscordID{req.host}
	for _, h := range req.hosts {
		if h != req.host {
			hosts = append(hosts, h)
		}
	}
	t := &tournamentdomain.Tournament{
		ID:              bt.ID,
		Name:            req.name,
		Description:     req.description,
		ServerID:        req.server,
		Hosts:           hosts,
		PublicChannels:  req.publicChannels,
		PrivateChannels: req.privateChannels,
		TopCut:          req.topCut,
	}
	if err := s.repo.CreateTournament(ctx, s.db, t); err != nil {
		return nil, fmt.Errorf("failed to persist tournament: %w", err)
	}
	s.completeIntent(ctx, intent)

	return &CreateResult{ID: bt.ID, URL: bt.URL, Guide: createGuide(bt.ID)}, nil
}

// slugTaken checks the bracket service first, then local persistence.
func (s *TournamentService) slugTaken(ctx context.Context, id tournamentdomain.TournamentID) (bool, error) {
	_, err := s.bracket.GetTournament(ctx, id)
	if err == nil {
		return true, nil
	}
	var apiErr *tournamentdomain.BracketAPIError
	if !errors.As(err, &apiErr) {
		return false, fmt.Errorf("failed to check bracket url %s: %w", id, err)
	}
	// Owned by another account.
	if apiErr.StatusCode == http.StatusForbidden || strings.Contains(apiErr.Message, "read access") {
		return true, nil
	}
	if !apiErr.NotFound() {
		return false, fmt.Errorf("failed to check bracket url %s: %w", id, err)
	}

	_, err = s.repo.GetTournament(ctx, s.db, id)
	if errors.Is(err, tournamentdb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check tournament %s: %w", id, err)
	}
	return true, nil
}

// UpdateTournament renames a tournament that has not started.
func (s *TournamentService) UpdateTournament(ctx context.Context, id tournamentdomain.TournamentID, name, description string) error {
	return s.withTelemetryErr(ctx, "UpdateTournament", id, func(ctx context.Context) error {
		// Persistence first: it holds the status guard.
		if err := s.repo.UpdateTournament(ctx, s.db, id, name, description); err != nil {
			return notFound(id, err)
		}
		if err := s.bracket.UpdateTournament(ctx, id, name, description); err != nil {
			return fmt.Errorf("failed to update bracket: %w", err)
		}
		return nil
	})
}

func (s *TournamentService) AddChannel(ctx context.Context, id tournamentdomain.TournamentID, channel tournamentdomain.ChannelID, kind tournamentdomain.ChannelKind) error {
	return s.withTelemetryErr(ctx, "AddChannel", id, func(ctx context.Context) error {
		if _, err := s.getTournament(ctx, id, tournamentdomain.ActiveStatuses...); err != nil {
			return err
		}
		return s.repo.AddChannel(ctx, s.db, id, channel, kind)
	})
}

func (s *TournamentService) RemoveChannel(ctx context.Context, id tournamentdomain.TournamentID, channel tournamentdomain.ChannelID, kind tournamentdomain.ChannelKind) error {
	return s.withTelemetryErr(ctx, "RemoveChannel", id, func(ctx context.Context) error {
		if _, err := s.getTournament(ctx, id, tournamentdomain.ActiveStatuses...); err != nil {
			return err
		}
		err := s.repo.RemoveChannel(ctx, s.db, id, channel, kind)
		if errors.Is(err, tournamentdb.ErrNoRowsAffected) {
			return tournamentdomain.NewUserError("%s is not a %s announcement channel for Tournament %s!", tournamentdomain.MentionChannel(channel), kind, id)
		}
		return err
	})
}

func (s *TournamentService) AddHost(ctx context.Context, id tournamentdomain.TournamentID, host tournamentdomain.DiscordID) error {
	return s.withTelemetryErr(ctx, "AddHost", id, func(ctx context.Context) error {
		if _, err := s.getTournament(ctx, id, tournamentdomain.ActiveStatuses...); err != nil {
			return err
		}
		return s.repo.AddHost(ctx, s.db, id, host)
	})
}

// RemoveHost refuses to remove the last host.
func (s *TournamentService) RemoveHost(ctx context.Context, id tournamentdomain.TournamentID, host tournamentdomain.DiscordID) error {
	return s.withTelemetryErr(ctx, "RemoveHost", id, func(ctx context.Context) error {
		if _, err := s.getTournament(ctx, id, tournamentdomain.ActiveStatuses...); err != nil {
			return err
		}
		err := s.repo.RemoveHost(ctx, s.db, id, host)
		switch {
		case errors.Is(err, tournamentdb.ErrLastHost):
			return tournamentdomain.NewUserError("Tournament %s must have at least one host!", id)
		case errors.Is(err, tournamentdb.ErrNoRowsAffected):
			return tournamentdomain.NewUserError("%s is not a host of Tournament %s!", tournamentdomain.MentionUser(host), id)
		}
		return notFound(id, err)
	})
}

// ListTournaments formats the active tournaments of a server, one per line.
func (s *TournamentService) ListTournaments(ctx context.Context, server tournamentdomain.ServerID) (string, error) {
	return withTelemetry(s, ctx, "ListTournaments", "", func(ctx context.Context) (string, error) {
		list, err := s.repo.ListTournaments(ctx, s.db, tournamentdb.ListFilter{
			ServerID: server,
			Statuses: tournamentdomain.ActiveStatuses,
		})
		if err != nil {
			return "", err
		}
		lines := make([]string, len(list))
		for i, t := range list {
			lines[i] = fmt.Sprintf("ID: %s|Name: %s|Status: %s|Players: %d", t.ID, t.Name, t.Status, len(t.Players))
		}
		return strings.Join(lines, "\n"), nil
	})
}

// SyncTournament overwrites local details with the bracket's and clears
// leftover intents, returning them.
func (s *TournamentService) SyncTournament(ctx context.Context, id tournamentdomain.TournamentID) (*SyncResult, error) {
	return withTelemetry(s, ctx, "SyncTournament", id, func(ctx context.Context) (*SyncResult, error) {
		defer s.lockTournament(id)()

		bt, err := s.bracket.GetTournament(ctx, id)
		if err != nil {
			var apiErr *tournamentdomain.BracketAPIError
			if errors.As(err, &apiErr) && apiErr.NotFound() {
				return nil, &tournamentdomain.TournamentNotFoundError{ID: id}
			}
			return nil, fmt.Errorf("failed to read bracket: %w", err)
		}
		err = s.repo.Synchronise(ctx, s.db, id, tournamentdomain.Snapshot{
			Name:        bt.Name,
			Description: bt.Description,
			Players:     bt.Players,
		})
		if err != nil {
			return nil, notFound(id, err)
		}

		result := &SyncResult{}
		if s.intents != nil {
			cleared, err := s.intents.Clear(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("failed to clear intents: %w", err)
			}
			result.Cleared = cleared
		}
		return result, nil
	})
}

// RegisterBye gives a confirmed player a round-one bye and returns all byes.
func (s *TournamentService) RegisterBye(ctx context.Context, id tournamentdomain.TournamentID, player tournamentdomain.DiscordID) ([]tournamentdomain.DiscordID, error) {
	return withTelemetry(s, ctx, "RegisterBye", id, func(ctx context.Context) ([]tournamentdomain.DiscordID, error) {
		defer s.lockTournament(id)()

		t, err := s.getTournament(ctx, id, tournamentdomain.StatusPreparing, tournamentdomain.StatusRegistrationOpen)
		if err != nil {
			return nil, err
		}
		if t.FindPlayer(player) == nil {
			return nil, tournamentdomain.NewUserError("Player %s is not a confirmed player in Tournament %s!", tournamentdomain.MentionUser(player), id)
		}
		t, err = s.repo.RegisterBye(ctx, s.db, id, player)
		if err != nil {
			return nil, notFound(id, err)
		}
		return t.Byes, nil
	})
}

func (s *TournamentService) RemoveBye(ctx context.Context, id tournamentdomain.TournamentID, player tournamentdomain.DiscordID) ([]tournamentdomain.DiscordID, error) {
	return withTelemetry(s, ctx, "RemoveBye", id, func(ctx context.Context) ([]tournamentdomain.DiscordID, error) {
		defer s.lockTournament(id)()

		if _, err := s.getTournament(ctx, id, tournamentdomain.StatusPreparing, tournamentdomain.StatusRegistrationOpen); err != nil {
			return nil, err
		}
		t, err := s.repo.RemoveBye(ctx, s.db, id, player)
		if err != nil {
			return nil, notFound(id, err)
		}
		return t.Byes, nil
	})
}

// AuthenticateHost fails unless user hosts the tournament.
func (s *TournamentService) AuthenticateHost(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID) error {
	t, err := s.getTournament(ctx, id)
	if err != nil {
		return err
	}
	if !t.IsHost(user) {
		return &tournamentdomain.UnauthorisedHostError{Host: user, TournamentID: id}
	}
	s.logger.DebugContext(ctx, "Host authorised",
		attr.ExtractCorrelationID(ctx),
		attr.TournamentID(string(id)),
		attr.UserID(string(user)),
	)
	return nil
}

// AuthenticatePlayer fails unless user is a confirmed player.
func (s *TournamentService) AuthenticatePlayer(ctx context.Context, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID) error {
	t, err := s.getTournament(ctx, id)
	if err != nil {
		return err
	}
	if t.FindPlayer(user) == nil {
		return &tournamentdomain.UnauthorisedPlayerError{Player: user, TournamentID: id}
	}
	return nil
}

// AuthenticateOrganiser fails unless user holds the organiser role in server.
func (s *TournamentService) AuthenticateOrganiser(ctx context.Context, server tournamentdomain.ServerID, user tournamentdomain.DiscordID) error {
	ok, err := s.messenger.IsOrganiser(ctx, server, user)
	if err != nil {
		return fmt.Errorf("failed to check organiser role: %w", err)
	}
	if !ok {
		return &tournamentdomain.UnauthorisedTOError{User: user}
	}
	return nil
}
