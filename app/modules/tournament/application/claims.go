package tournamentservice

import (
	"context"
	"sync"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
)

// MemoryClaimStore keeps score claims in process memory. Claims are lost on restart.
type MemoryClaimStore struct {
	mu     sync.Mutex
	claims map[int]tournamentdomain.MatchScoreClaim
}

var _ ClaimStore = (*MemoryClaimStore)(nil)

func NewMemoryClaimStore() *MemoryClaimStore {
	return &MemoryClaimStore{claims: make(map[int]tournamentdomain.MatchScoreClaim)}
}

func (m *MemoryClaimStore) Get(_ context.Context, matchID int) (*tournamentdomain.MatchScoreClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[matchID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *MemoryClaimStore) Put(_ context.Context, claim tournamentdomain.MatchScoreClaim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[claim.MatchID] = claim
	return nil
}

func (m *MemoryClaimStore) Delete(_ context.Context, matchID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, matchID)
	return nil
}
