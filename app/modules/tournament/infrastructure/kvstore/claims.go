package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	tournamentservice "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/application"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/nats-io/nats.go/jetstream"
)

var _ tournamentservice.ClaimStore = (*ClaimStore)(nil)

// ClaimStore keeps one claim per match under "claims.<match id>".
type ClaimStore struct {
	kv jetstream.KeyValue
}

func NewClaimStore(kv jetstream.KeyValue) *ClaimStore {
	return &ClaimStore{kv: kv}
}

func claimKey(matchID int) string {
	return "claims." + strconv.Itoa(matchID)
}

func (s *ClaimStore) Get(ctx context.Context, matchID int) (*tournamentdomain.MatchScoreClaim, error) {
	entry, err := s.kv.Get(ctx, claimKey(matchID))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read claim: %w", err)
	}
	var claim tournamentdomain.MatchScoreClaim
	if err := json.Unmarshal(entry.Value(), &claim); err != nil {
		return nil, fmt.Errorf("failed to decode claim: %w", err)
	}
	return &claim, nil
}

func (s *ClaimStore) Put(ctx context.Context, claim tournamentdomain.MatchScoreClaim) error {
	data, err := json.Marshal(claim)
	if err != nil {
		return err
	}
	if _, err := s.kv.Put(ctx, claimKey(claim.MatchID), data); err != nil {
		return fmt.Errorf("failed to store claim: %w", err)
	}
	return nil
}

func (s *ClaimStore) Delete(ctx context.Context, matchID int) error {
	err := s.kv.Delete(ctx, claimKey(matchID))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete claim: %w", err)
	}
	return nil
}
