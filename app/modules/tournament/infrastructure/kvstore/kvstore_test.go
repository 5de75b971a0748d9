package kvstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimStore(t *testing.T) {
	ctx := context.Background()
	kv := NewFakeKeyValue()
	store := NewClaimStore(kv)

	got, err := store.Get(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, got)

	claim := tournamentdomain.MatchScoreClaim{MatchID: 5, ReporterBracketID: 1, ReporterDiscordID: "1001", OwnScore: 2, OppScore: 1}
	require.NoError(t, store.Put(ctx, claim))
	assert.Contains(t, kv.data, "claims.5")

	got, err = store.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, &claim, got)

	require.NoError(t, store.Delete(ctx, 5))
	require.NoError(t, store.Delete(ctx, 5))
	got, err = store.Get(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, got)

	kv.PutErr = errors.New("bucket gone")
	assert.Error(t, store.Put(ctx, claim))
}

func TestIntentStore(t *testing.T) {
	ctx := context.Background()
	kv := NewFakeKeyValue()
	store := NewIntentStore(kv, slog.New(slog.NewTextHandler(io.Discard, nil)))
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)

	first, err := store.Begin(ctx, "mc", "start")
	require.NoError(t, err)
	second, err := store.Begin(ctx, "mc2", "create")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	require.NoError(t, store.Step(ctx, first, "persisted"))

	mine, err := store.List(ctx, "mc")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "persisted", mine[0].Step)
	assert.True(t, mine[0].UpdatedAt.After(mine[0].CreatedAt))

	all, err = store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID, "oldest first")

	cleared, err := store.Clear(ctx, "mc")
	require.NoError(t, err)
	assert.Len(t, cleared, 1)

	require.NoError(t, store.Complete(ctx, second))
	all, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestIntentStore_SkipsGarbage(t *testing.T) {
	kv := NewFakeKeyValue()
	kv.data["intents.mc.bad"] = []byte("{not json")
	store := NewIntentStore(kv, slog.New(slog.NewTextHandler(io.Discard, nil)))

	all, err := store.List(context.Background(), "mc")
	require.NoError(t, err)
	assert.Empty(t, all)
}
