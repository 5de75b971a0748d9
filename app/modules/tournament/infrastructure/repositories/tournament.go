package tournamentdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/uptrace/bun"
)

// TournamentDBImpl is the bun implementation of Repository.
type TournamentDBImpl struct {
	DB *bun.DB
}

var _ Repository = (*TournamentDBImpl)(nil)

func (r *TournamentDBImpl) idb(db bun.IDB) bun.IDB {
	if db == nil {
		return r.DB
	}
	return db
}

func channelColumn(kind tournamentdomain.ChannelKind) bun.Ident {
	if kind == tournamentdomain.ChannelPrivate {
		return bun.Ident("private_channels")
	}
	return bun.Ident("public_channels")
}

func withPlayers(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Relation("Participants", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("p.status = ?", ParticipantConfirmed).Order("p.id ASC")
	})
}

func affected(res sql.Result, err error, notFound error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func (r *TournamentDBImpl) CreateTournament(ctx context.Context, db bun.IDB, t *tournamentdomain.Tournament) error {
	row := &Tournament{
		ID:              string(t.ID),
		Name:            t.Name,
		Description:     t.Description,
		Status:          tournamentdomain.StatusPreparing,
		ServerID:        string(t.ServerID),
		Hosts:           convert[string](t.Hosts),
		PublicChannels:  convert[string](t.PublicChannels),
		PrivateChannels: convert[string](t.PrivateChannels),
		Byes:            []string{},
		TopCut:          t.TopCut,
	}
	if _, err := r.idb(db).NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create tournament %s: %w", t.ID, err)
	}
	t.Status = tournamentdomain.StatusPreparing
	return nil
}

func (r *TournamentDBImpl) GetTournament(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, statuses ...tournamentdomain.Status) (*tournamentdomain.Tournament, error) {
	row := new(Tournament)
	q := withPlayers(r.idb(db).NewSelect().Model(row)).Where("t.id = ?", id)
	if len(statuses) > 0 {
		q = q.Where("t.status IN (?)", bun.In(statuses))
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch tournament %s: %w", id, err)
	}
	return toDomain(row), nil
}

func (r *TournamentDBImpl) ListTournaments(ctx context.Context, db bun.IDB, filter ListFilter) ([]tournamentdomain.Tournament, error) {
	var rows []Tournament
	q := withPlayers(r.idb(db).NewSelect().Model(&rows)).Order("t.created_at ASC")
	if filter.ServerID != "" {
		q = q.Where("t.server_id = ?", filter.ServerID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("t.status IN (?)", bun.In(filter.Statuses))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return toDomainList(rows), nil
}

func (r *TournamentDBImpl) UpdateTournament(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, name, description string) error {
	res, err := r.idb(db).NewUpdate().
		Model((*Tournament)(nil)).
		Set("name = ?", name).
		Set("description = ?", description).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Where("status IN (?)", bun.In([]tournamentdomain.Status{tournamentdomain.StatusPreparing, tournamentdomain.StatusRegistrationOpen})).
		Exec(ctx)
	return affected(res, err, ErrNotFound)
}

func (r *TournamentDBImpl) SetStatus(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, from, to tournamentdomain.Status) error {
	res, err := r.idb(db).NewUpdate().
		Model((*Tournament)(nil)).
		Set("status = ?", to).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	return affected(res, err, ErrNotFound)
}

func (r *TournamentDBImpl) AddHost(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, host tournamentdomain.DiscordID) error {
	_, err := r.idb(db).NewUpdate().
		Model((*Tournament)(nil)).
		Set("hosts = array_append(hosts, ?)", host).
		Where("id = ?", id).
		Where("NOT (? = ANY(hosts))", host).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add host to %s: %w", id, err)
	}
	return nil
}

func (r *TournamentDBImpl) RemoveHost(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, host tournamentdomain.DiscordID) error {
	res, err := r.idb(db).NewUpdate().
		Model((*Tournament)(nil)).
		Set("hosts = array_remove(hosts, ?)", host).
		Where("id = ?", id).
		Where("? = ANY(hosts)", host).
		Where("cardinality(hosts) > 1").
		Exec(ctx)
	if err := affected(res, err, ErrNoRowsAffected); err != nil {
		if !errors.Is(err, ErrNoRowsAffected) {
			return fmt.Errorf("failed to remove host from %s: %w", id, err)
		}
		t, getErr := r.GetTournament(ctx, db, id)
		if getErr != nil {
			return getErr
		}
		if t.IsHost(host) {
			return ErrLastHost
		}
		return ErrNoRowsAffected
	}
	return nil
}

func (r *TournamentDBImpl) AddChannel(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, channel tournamentdomain.ChannelID, kind tournamentdomain.ChannelKind) error {
	col := channelColumn(kind)
	_, err := r.idb(db).NewUpdate().
		Model((*Tournament)(nil)).
		Set("? = array_append(?, ?)", col, col, channel).
		Where("id = ?", id).
		Where("NOT (? = ANY(?))", channel, col).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to add %s channel to %s: %w", kind, id, err)
	}
	return nil
}

func (r *TournamentDBImpl) RemoveChannel(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, channel tournamentdomain.ChannelID, kind tournamentdomain.ChannelKind) error {
	col := channelColumn(kind)
	res, err := r.idb(db).NewUpdate().
		Model((*Tournament)(nil)).
		Set("? = array_remove(?, ?)", col, col, channel).
		Where("id = ?", id).
		Where("? = ANY(?)", channel, col).
		Exec(ctx)
	return affected(res, err, ErrNoRowsAffected)
}

func (r *TournamentDBImpl) RegisterBye(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, player tournamentdomain.DiscordID) (*tournamentdomain.Tournament, error) {
	_, err := r.idb(db).NewUpdate().
		Model((*Tournament)(nil)).
		Set("byes = array_append(byes, ?)", player).
		Where("id = ?", id).
		Where("NOT (? = ANY(byes))", player).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to register bye in %s: %w", id, err)
	}
	return r.GetTournament(ctx, db, id)
}

func (r *TournamentDBImpl) RemoveBye(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, player tournamentdomain.DiscordID) (*tournamentdomain.Tournament, error) {
	_, err := r.idb(db).NewUpdate().
		Model((*Tournament)(nil)).
		Set("byes = array_remove(byes, ?)", player).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to remove bye in %s: %w", id, err)
	}
	return r.GetTournament(ctx, db, id)
}

func (r *TournamentDBImpl) tournamentsFor(ctx context.Context, db bun.IDB, user tournamentdomain.DiscordID, status ParticipantStatus) ([]tournamentdomain.Tournament, error) {
	var rows []Tournament
	err := withPlayers(r.idb(db).NewSelect().Model(&rows)).
		Where("t.status = ?", tournamentdomain.StatusRegistrationOpen).
		Where("EXISTS (SELECT 1 FROM participants AS pp WHERE pp.tournament_id = t.id AND pp.discord_id = ? AND pp.status = ?)", user, status).
		Order("t.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s tournaments for %s: %w", status, user, err)
	}
	return toDomainList(rows), nil
}

func (r *TournamentDBImpl) PendingTournaments(ctx context.Context, db bun.IDB, user tournamentdomain.DiscordID) ([]tournamentdomain.Tournament, error) {
	return r.tournamentsFor(ctx, db, user, ParticipantPending)
}

func (r *TournamentDBImpl) ConfirmedTournaments(ctx context.Context, db bun.IDB, user tournamentdomain.DiscordID) ([]tournamentdomain.Tournament, error) {
	return r.tournamentsFor(ctx, db, user, ParticipantConfirmed)
}

func (r *TournamentDBImpl) AddPendingPlayer(ctx context.Context, db bun.IDB, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, user tournamentdomain.DiscordID) (*tournamentdomain.Tournament, error) {
	var id string
	err := r.idb(db).NewRaw(`
		INSERT INTO participants (tournament_id, discord_id, status, register_channel_id, register_message_id)
		SELECT rm.tournament_id, ?, ?, rm.channel_id, rm.message_id
		FROM register_messages AS rm
		JOIN tournaments AS t ON t.id = rm.tournament_id
		WHERE rm.channel_id = ? AND rm.message_id = ? AND t.status = ?
		ON CONFLICT DO NOTHING
		RETURNING tournament_id`,
		user, ParticipantPending, channel, message, tournamentdomain.StatusRegistrationOpen,
	).Scan(ctx, &id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to add pending player %s: %w", user, err)
	}
	return r.GetTournament(ctx, db, tournamentdomain.TournamentID(id))
}

func (r *TournamentDBImpl) RemovePendingPlayer(ctx context.Context, db bun.IDB, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, user tournamentdomain.DiscordID) (*tournamentdomain.Tournament, error) {
	var id string
	err := r.idb(db).NewRaw(`
		DELETE FROM participants
		WHERE register_channel_id = ? AND register_message_id = ? AND discord_id = ? AND status = ?
		RETURNING tournament_id`,
		channel, message, user, ParticipantPending,
	).Scan(ctx, &id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to remove pending player %s: %w", user, err)
	}
	return r.GetTournament(ctx, db, tournamentdomain.TournamentID(id))
}

func (r *TournamentDBImpl) RemoveConfirmedPlayerReaction(ctx context.Context, db bun.IDB, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, user tournamentdomain.DiscordID) (*tournamentdomain.Tournament, error) {
	rm := new(RegisterMessage)
	err := r.idb(db).NewSelect().Model(rm).
		Where("channel_id = ?", channel).
		Where("message_id = ?", message).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up registration message: %w", err)
	}
	return r.removeConfirmed(ctx, db, tournamentdomain.TournamentID(rm.TournamentID), user, tournamentdomain.StatusRegistrationOpen)
}

func (r *TournamentDBImpl) RemoveConfirmedPlayerForce(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID) (*tournamentdomain.Tournament, error) {
	return r.removeConfirmed(ctx, db, id, user, tournamentdomain.ActiveStatuses...)
}

func (r *TournamentDBImpl) removeConfirmed(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID, statuses ...tournamentdomain.Status) (*tournamentdomain.Tournament, error) {
	var before *tournamentdomain.Tournament
	err := r.idb(db).RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		t, err := r.GetTournament(ctx, tx, id, statuses...)
		if err != nil {
			return err
		}
		if t.FindPlayer(user) == nil {
			return nil
		}
		if _, err := tx.NewDelete().Model((*Participant)(nil)).
			Where("tournament_id = ?", id).
			Where("discord_id = ?", user).
			Where("status = ?", ParticipantConfirmed).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewUpdate().Model((*Tournament)(nil)).
			Set("byes = array_remove(byes, ?)", user).
			Where("id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		before = t
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to remove confirmed player %s: %w", user, err)
	}
	return before, nil
}

func (r *TournamentDBImpl) ConfirmPlayer(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, user tournamentdomain.DiscordID, bracketID int, deck string) error {
	p := &Participant{
		TournamentID: string(id),
		DiscordID:    string(user),
		Status:       ParticipantConfirmed,
		BracketID:    bracketID,
		Deck:         deck,
	}
	_, err := r.idb(db).NewInsert().
		Model(p).
		On("CONFLICT (tournament_id, discord_id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("bracket_id = EXCLUDED.bracket_id").
		Set("deck = EXCLUDED.deck").
		Set("register_channel_id = NULL").
		Set("register_message_id = NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to confirm player %s in %s: %w", user, id, err)
	}
	return nil
}

func (r *TournamentDBImpl) OpenRegistration(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID) error {
	rm := &RegisterMessage{ChannelID: string(channel), MessageID: string(message), TournamentID: string(id)}
	if _, err := r.idb(db).NewInsert().Model(rm).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("failed to store registration message for %s: %w", id, err)
	}
	return nil
}

func (r *TournamentDBImpl) RegisterMessages(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID) ([]tournamentdomain.RegisterMessage, error) {
	var rows []RegisterMessage
	q := r.idb(db).NewSelect().Model(&rows)
	if id != "" {
		q = q.Where("tournament_id = ?", id)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list registration messages: %w", err)
	}
	out := make([]tournamentdomain.RegisterMessage, 0, len(rows))
	for _, rm := range rows {
		out = append(out, tournamentdomain.RegisterMessage{
			ChannelID:    tournamentdomain.ChannelID(rm.ChannelID),
			MessageID:    tournamentdomain.MessageID(rm.MessageID),
			TournamentID: tournamentdomain.TournamentID(rm.TournamentID),
		})
	}
	return out, nil
}

func (r *TournamentDBImpl) CleanRegistration(ctx context.Context, db bun.IDB, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID) error {
	return r.idb(db).RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*Participant)(nil)).
			Where("register_channel_id = ?", channel).
			Where("register_message_id = ?", message).
			Where("status = ?", ParticipantPending).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop pending players: %w", err)
		}
		if _, err := tx.NewDelete().Model((*RegisterMessage)(nil)).
			Where("channel_id = ?", channel).
			Where("message_id = ?", message).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to delete registration message: %w", err)
		}
		return nil
	})
}

// closeRegistration drops pending players and registration messages, then moves
// the tournament from one of from to to.
func (r *TournamentDBImpl) closeRegistration(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, to tournamentdomain.Status, from ...tournamentdomain.Status) ([]tournamentdomain.DiscordID, error) {
	var dropped []tournamentdomain.DiscordID
	err := r.idb(db).RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*Tournament)(nil)).
			Set("status = ?", to).
			Set("updated_at = current_timestamp").
			Where("id = ?", id).
			Where("status IN (?)", bun.In(from)).
			Exec(ctx)
		if err := affected(res, err, ErrNotFound); err != nil {
			return err
		}

		var pending []string
		if err := tx.NewSelect().Model((*Participant)(nil)).
			Column("discord_id").
			Where("tournament_id = ?", id).
			Where("status = ?", ParticipantPending).
			Scan(ctx, &pending); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*Participant)(nil)).
			Where("tournament_id = ?", id).
			Where("status = ?", ParticipantPending).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*RegisterMessage)(nil)).
			Where("tournament_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		dropped = convert[tournamentdomain.DiscordID](pending)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to close registration for %s: %w", id, err)
	}
	return dropped, nil
}

func (r *TournamentDBImpl) StartTournament(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID) ([]tournamentdomain.DiscordID, error) {
	return r.closeRegistration(ctx, db, id, tournamentdomain.StatusInProgress, tournamentdomain.StatusRegistrationOpen)
}

func (r *TournamentDBImpl) CancelRegistration(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID) ([]tournamentdomain.DiscordID, error) {
	return r.closeRegistration(ctx, db, id, tournamentdomain.StatusCancelled, tournamentdomain.StatusPreparing, tournamentdomain.StatusRegistrationOpen)
}

func (r *TournamentDBImpl) FinishTournament(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, cancel bool) error {
	to := tournamentdomain.StatusComplete
	if cancel {
		to = tournamentdomain.StatusCancelled
	}
	return r.SetStatus(ctx, db, id, tournamentdomain.StatusInProgress, to)
}

func (r *TournamentDBImpl) Synchronise(ctx context.Context, db bun.IDB, id tournamentdomain.TournamentID, snapshot tournamentdomain.Snapshot) error {
	return r.idb(db).RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*Tournament)(nil)).
			Set("name = ?", snapshot.Name).
			Set("description = ?", snapshot.Description).
			Set("updated_at = current_timestamp").
			Where("id = ?", id).
			Exec(ctx)
		if err := affected(res, err, ErrNotFound); err != nil {
			return err
		}
		for _, p := range snapshot.Players {
			if !tournamentdomain.IsUserSnowflake(p.DiscordID) {
				continue
			}
			if _, err := tx.NewUpdate().Model((*Participant)(nil)).
				Set("bracket_id = ?", p.BracketID).
				Where("tournament_id = ?", id).
				Where("discord_id = ?", p.DiscordID).
				Where("status = ?", ParticipantConfirmed).
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to sync player %s: %w", p.DiscordID, err)
			}
		}
		return nil
	})
}
