package editlogs

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const (
	seqKey = "editlogs:seq"

	// seqBackoff is how long Next stays on the local counter after Redis
	// fails.
	seqBackoff = 30 * time.Second
)

// Sequencer hands out strictly increasing entry numbers. Redis INCR keeps
// them global across server processes; when Redis is unavailable a local
// counter takes over, never going below what was already handed out.
type Sequencer struct {
	rdb       *redis.Client
	local     atomic.Int64
	downUntil atomic.Int64
	now       func() time.Time
	log       zerolog.Logger
}

// NewSequencer seeds the counters with the highest persisted seq. rdb may be
// nil, in which case only the local counter is used.
func NewSequencer(ctx context.Context, rdb *redis.Client, seed int64, log zerolog.Logger) *Sequencer {
	s := &Sequencer{rdb: rdb, log: log, now: time.Now}
	s.local.Store(seed)

	if rdb != nil {
		current, err := rdb.Get(ctx, seqKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("reading edit-log sequence")
		} else if current < seed {
			if err := rdb.Set(ctx, seqKey, seed, 0).Err(); err != nil {
				log.Warn().Err(err).Msg("seeding edit-log sequence")
			}
		} else {
			s.observe(current)
		}
	}

	return s
}

// Next returns the next entry number. After a Redis failure the local
// counter is used for seqBackoff before Redis is tried again.
func (s *Sequencer) Next(ctx context.Context) int64 {
	if s.rdb != nil && s.now().UnixNano() >= s.downUntil.Load() {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		n, err := s.rdb.Incr(ctx, seqKey).Result()
		cancel()
		if err == nil {
			s.observe(n)
			return n
		}
		s.downUntil.Store(s.now().Add(seqBackoff).UnixNano())
		s.log.Warn().Err(err).Dur("retry_in", seqBackoff).Msg("edit-log sequence falling back to local counter")
	}
	return s.local.Add(1)
}

func (s *Sequencer) observe(n int64) {
	for {
		cur := s.local.Load()
		if n <= cur || s.local.CompareAndSwap(cur, n) {
			return
		}
	}
}
