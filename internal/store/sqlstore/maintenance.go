package sqlstore

import (
	"context"
	"math/rand/v2"
	"time"
)

// EvictHook drops in-memory entries last seen before cutoff. The cache
// registers one so a sweep clears memory and the table together.
type EvictHook func(cutoff time.Time)

const sweepTimeout = time.Minute

// Sweep runs one maintenance pass: hooks first, then the profile table. The
// cutoff is now minus the profile TTL.
func (s *Store) Sweep(ctx context.Context, hooks ...EvictHook) (int64, error) {
	cutoff := s.now().Add(-s.ttl)
	for _, hook := range hooks {
		hook(cutoff)
	}
	n, err := s.DeleteExpiredProfiles(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired profiles deleted", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// StartMaintenance sweeps every interval until StopMaintenance or Close. The
// first sweep happens after a random delay within one interval so that
// instances sharing a database do not sweep in lockstep. Calling it while
// maintenance is running restarts it.
func (s *Store) StartMaintenance(interval time.Duration, hooks ...EvictHook) {
	if interval <= 0 {
		return
	}
	s.StopMaintenance()

	s.maintMu.Lock()
	defer s.maintMu.Unlock()
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done

	go func() {
		defer close(done)
		timer := time.NewTimer(rand.N(interval))
		defer timer.Stop()
		for {
			select {
			case <-stop:
				return
			case <-timer.C:
			}
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			if _, err := s.Sweep(ctx, hooks...); err != nil {
				s.logger.Error("profile maintenance failed", "error", err)
			}
			cancel()
			timer.Reset(interval)
		}
	}()
}

// StopMaintenance stops the maintenance goroutine and waits for it to exit.
func (s *Store) StopMaintenance() {
	s.maintMu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.maintMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
