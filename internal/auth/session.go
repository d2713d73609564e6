package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nkoval/backoffice/internal/pkg/metrics"
)

// TicketStore holds one-time login session tickets.
//
// Take atomically removes the ticket and returns its expiry: a ticket is
// single-use even when the credential check that follows it fails, and two
// concurrent logins presenting the same ticket can never both observe it.
type TicketStore interface {
	Put(ctx context.Context, id string, expiresAt time.Time) error
	Take(ctx context.Context, id string) (expiresAt time.Time, ok bool, err error)
}

// MemoryTicketStore is the default in-process TicketStore. Tickets do not
// survive a restart. A background reaper bounds memory by sweeping tickets
// that expired without ever being presented.
type MemoryTicketStore struct {
	mu      sync.Mutex
	tickets map[string]time.Time

	now func() time.Time

	sweepInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewMemoryTicketStore creates an in-memory ticket store.
func NewMemoryTicketStore(sweepInterval time.Duration) *MemoryTicketStore {
	return &MemoryTicketStore{
		tickets:       make(map[string]time.Time),
		now:           time.Now,
		sweepInterval: sweepInterval,
		stopCh:        make(chan struct{}),
	}
}

// Put stores a ticket with its expiry. Never fails.
func (s *MemoryTicketStore) Put(_ context.Context, id string, expiresAt time.Time) error {
	s.mu.Lock()
	s.tickets[id] = expiresAt
	s.mu.Unlock()
	return nil
}

// Take removes the ticket and returns its expiry. ok is false when the
// ticket was never issued or was already consumed.
func (s *MemoryTicketStore) Take(_ context.Context, id string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.tickets[id]
	if !ok {
		return time.Time{}, false, nil
	}
	delete(s.tickets, id)
	return expiresAt, true, nil
}

// Len returns the number of stored tickets.
func (s *MemoryTicketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}

// Start launches the background reaper.
func (s *MemoryTicketStore) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop terminates the reaper and waits for it to finish.
func (s *MemoryTicketStore) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *MemoryTicketStore) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if n := s.sweep(); n > 0 {
				slog.Debug("swept expired session tickets", "count", n)
			}
		}
	}
}

// sweep removes tickets whose expiry has passed and returns how many.
func (s *MemoryTicketStore) sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	swept := 0
	for id, expiresAt := range s.tickets {
		if now.After(expiresAt) {
			delete(s.tickets, id)
			swept++
		}
	}
	if swept > 0 {
		metrics.SessionTickets.WithLabelValues("swept").Add(float64(swept))
	}
	return swept
}
