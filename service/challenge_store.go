package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mijinummi/Lumenpulse/core"
)

// DefaultSweepInterval is how often the background sweep evicts expired
// challenges. The sweep is housekeeping only; VerifyChallenge checks expiry
// at read time regardless.
const DefaultSweepInterval = time.Minute

// ChallengeStore is the process-local cache of outstanding challenges,
// keyed by Stellar account ID. All access goes through one mutex, shared by
// the request path and the background sweep.
type ChallengeStore struct {
	mu      sync.Mutex
	entries map[string]*core.Challenge

	sweepEvery time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewChallengeStore creates an empty challenge store.
func NewChallengeStore(sweepEvery time.Duration, logger *zap.Logger) *ChallengeStore {
	if sweepEvery <= 0 {
		sweepEvery = DefaultSweepInterval
	}
	return &ChallengeStore{
		entries:    make(map[string]*core.Challenge),
		sweepEvery: sweepEvery,
		logger:     logger,
		now:        time.Now,
	}
}

// Put stores a challenge, replacing any prior one for the same account.
func (s *ChallengeStore) Put(challenge *core.Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[challenge.Account] = challenge
}

// Take removes and returns the challenge for an account. The fetch and the
// delete are one critical section, so of two concurrent verifications only
// one can observe the challenge.
func (s *ChallengeStore) Take(account string) (*core.Challenge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.entries[account]
	if !ok {
		return nil, false
	}
	delete(s.entries, account)
	return challenge, true
}

// Len returns the number of outstanding challenges.
func (s *ChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// Run sweeps expired challenges until the context is cancelled.
func (s *ChallengeStore) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *ChallengeStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for account, challenge := range s.entries {
		if challenge.Expired(now) {
			delete(s.entries, account)
			evicted++
		}
	}
	if evicted > 0 && s.logger != nil {
		s.logger.Debug("evicted expired challenges", zap.Int("count", evicted))
	}
}
