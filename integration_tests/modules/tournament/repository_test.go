package tournamentintegrationtests

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	tournamentdb "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/infrastructure/repositories"
)

func snowflake() tournamentdomain.DiscordID {
	return tournamentdomain.DiscordID(gofakeit.Numerify("1#################"))
}

func seedTournament(t *testing.T, ctx context.Context, repo tournamentdb.Repository, host tournamentdomain.DiscordID) tournamentdomain.TournamentID {
	t.Helper()
	id := tournamentdomain.TournamentID(gofakeit.LetterN(12))
	require.NoError(t, repo.CreateTournament(ctx, nil, &tournamentdomain.Tournament{
		ID:       id,
		Name:     gofakeit.Company() + " Cup",
		ServerID: "500000000000000001",
		Hosts:    []tournamentdomain.DiscordID{host},
	}))
	return id
}

func TestTournamentRepository_Lifecycle(t *testing.T) {
	env := testEnv(t)
	env.Reset(t)
	ctx := env.Ctx
	repo := &tournamentdb.TournamentDBImpl{DB: env.DB}

	host := snowflake()
	id := seedTournament(t, ctx, repo, host)

	got, err := repo.GetTournament(ctx, nil, id)
	require.NoError(t, err)
	assert.Equal(t, tournamentdomain.StatusPreparing, got.Status)
	assert.Equal(t, []tournamentdomain.DiscordID{host}, got.Hosts)

	_, err = repo.GetTournament(ctx, nil, id, tournamentdomain.StatusInProgress)
	require.ErrorIs(t, err, tournamentdb.ErrNotFound, "status filter hides the tournament")

	require.ErrorIs(t, repo.RemoveHost(ctx, nil, id, host), tournamentdb.ErrLastHost)

	require.NoError(t, repo.AddChannel(ctx, nil, id, "600000000000000001", tournamentdomain.ChannelPublic))
	require.NoError(t, repo.AddChannel(ctx, nil, id, "600000000000000001", tournamentdomain.ChannelPublic))
	got, err = repo.GetTournament(ctx, nil, id)
	require.NoError(t, err)
	assert.Len(t, got.PublicChannels, 1, "adding a channel twice is idempotent")

	require.NoError(t, repo.SetStatus(ctx, nil, id, tournamentdomain.StatusPreparing, tournamentdomain.StatusRegistrationOpen))
	require.NoError(t, repo.OpenRegistration(ctx, nil, id, "600000000000000001", "700000000000000001"))

	pending, confirmed := snowflake(), snowflake()
	added, err := repo.AddPendingPlayer(ctx, nil, "600000000000000001", "700000000000000001", pending)
	require.NoError(t, err)
	require.NotNil(t, added)
	assert.Equal(t, id, added.ID)

	again, err := repo.AddPendingPlayer(ctx, nil, "600000000000000001", "700000000000000001", pending)
	require.NoError(t, err)
	assert.Nil(t, again, "a second reaction changes nothing")

	unknown, err := repo.AddPendingPlayer(ctx, nil, "600000000000000001", "799999999999999999", pending)
	require.NoError(t, err)
	assert.Nil(t, unknown)

	require.NoError(t, repo.ConfirmPlayer(ctx, nil, id, confirmed, 42, "ydke://main!extra!side!"))
	list, err := repo.PendingTournaments(ctx, nil, pending)
	require.NoError(t, err)
	require.Len(t, list, 1)

	dropped, err := repo.StartTournament(ctx, nil, id)
	require.NoError(t, err)
	assert.Equal(t, []tournamentdomain.DiscordID{pending}, dropped)

	got, err = repo.GetTournament(ctx, nil, id, tournamentdomain.StatusInProgress)
	require.NoError(t, err)
	require.Len(t, got.Players, 1)
	assert.Equal(t, confirmed, got.Players[0].DiscordID)
	assert.Equal(t, 42, got.Players[0].BracketID)

	msgs, err := repo.RegisterMessages(ctx, nil, id)
	require.NoError(t, err)
	assert.Empty(t, msgs, "starting drops the registration messages")

	require.NoError(t, repo.FinishTournament(ctx, nil, id, false))
	require.ErrorIs(t, repo.FinishTournament(ctx, nil, id, false), tournamentdb.ErrNotFound)
}

func TestTournamentRepository_ListAndByes(t *testing.T) {
	env := testEnv(t)
	env.Reset(t)
	ctx := env.Ctx
	repo := &tournamentdb.TournamentDBImpl{DB: env.DB}

	host := snowflake()
	first := seedTournament(t, ctx, repo, host)
	second := seedTournament(t, ctx, repo, host)
	_, err := repo.CancelRegistration(ctx, nil, second)
	require.NoError(t, err)

	active, err := repo.ListTournaments(ctx, nil, tournamentdb.ListFilter{
		ServerID: "500000000000000001",
		Statuses: tournamentdomain.ActiveStatuses,
	})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first, active[0].ID)

	bye := snowflake()
	withBye, err := repo.RegisterBye(ctx, nil, first, bye)
	require.NoError(t, err)
	assert.Equal(t, []tournamentdomain.DiscordID{bye}, withBye.Byes)

	withoutBye, err := repo.RemoveBye(ctx, nil, first, bye)
	require.NoError(t, err)
	assert.Empty(t, withoutBye.Byes)
}
