package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	tournamentservice "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/application"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

var _ tournamentservice.IntentStore = (*IntentStore)(nil)

// IntentStore keeps intents under "intents.<tournament id>.<intent id>".
type IntentStore struct {
	kv     jetstream.KeyValue
	logger *slog.Logger
	now    func() time.Time
}

func NewIntentStore(kv jetstream.KeyValue, logger *slog.Logger) *IntentStore {
	return &IntentStore{kv: kv, logger: logger, now: time.Now}
}

func intentKey(in *tournamentdomain.Intent) string {
	return fmt.Sprintf("intents.%s.%s", in.TournamentID, in.ID)
}

func (s *IntentStore) put(ctx context.Context, in *tournamentdomain.Intent) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	if _, err := s.kv.Put(ctx, intentKey(in), data); err != nil {
		return fmt.Errorf("failed to store intent: %w", err)
	}
	return nil
}

func (s *IntentStore) Begin(ctx context.Context, id tournamentdomain.TournamentID, operation string) (*tournamentdomain.Intent, error) {
	now := s.now().UTC()
	in := &tournamentdomain.Intent{
		ID:           uuid.NewString(),
		TournamentID: id,
		Operation:    operation,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.put(ctx, in); err != nil {
		return nil, err
	}
	return in, nil
}

func (s *IntentStore) Step(ctx context.Context, in *tournamentdomain.Intent, step string) error {
	in.Step = step
	in.UpdatedAt = s.now().UTC()
	return s.put(ctx, in)
}

func (s *IntentStore) Complete(ctx context.Context, in *tournamentdomain.Intent) error {
	err := s.kv.Delete(ctx, intentKey(in))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete intent: %w", err)
	}
	return nil
}

// List returns the intents of id, or all intents when id is empty, oldest first.
func (s *IntentStore) List(ctx context.Context, id tournamentdomain.TournamentID) ([]tournamentdomain.Intent, error) {
	prefix := "intents."
	if id != "" {
		prefix += string(id) + "."
	}

	keys, err := s.kv.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list intents: %w", err)
	}

	var out []tournamentdomain.Intent
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		entry, err := s.kv.Get(ctx, k)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read intent %s: %w", k, err)
		}
		var in tournamentdomain.Intent
		if err := json.Unmarshal(entry.Value(), &in); err != nil {
			s.logger.WarnContext(ctx, "Skipping undecodable intent",
				attr.String("key", k),
				attr.Error(err),
			)
			continue
		}
		out = append(out, in)
	}
	slices.SortFunc(out, func(a, b tournamentdomain.Intent) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

// Clear removes and returns the intents of id.
func (s *IntentStore) Clear(ctx context.Context, id tournamentdomain.TournamentID) ([]tournamentdomain.Intent, error) {
	intents, err := s.List(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range intents {
		if err := s.Complete(ctx, &intents[i]); err != nil {
			return nil, err
		}
	}
	return intents, nil
}
