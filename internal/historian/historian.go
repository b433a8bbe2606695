// internal/historian/historian.go drains the match action queue from Redis and
// persists it in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Store persists action records.
type Store interface {
	// SaveActions writes one batch atomically. A record of type
	// cache.ActionFinalGameOver completes its match.
	SaveActions(ctx context.Context, recs []cache.MatchActionRecord) error
	// MarkAbandoned closes a match that stopped producing actions.
	MarkAbandoned(ctx context.Context, matchID uuid.UUID) error
}

// Options tunes the service. Zero values fall back to defaults.
type Options struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	PopTimeout time.Duration
	// Inactivity is how long a match may go without actions before it is abandoned.
	Inactivity    time.Duration
	SweepInterval time.Duration
	Logger        *logrus.Logger
}

// Service is the historian: a BLPop reader, a periodic flusher and an
// inactivity sweeper.
type Service struct {
	rdb   *redis.Client
	store Store
	opts  Options
	log   *logrus.Entry

	batchMu sync.Mutex
	batch   []cache.MatchActionRecord

	activityMu   sync.Mutex
	lastActivity map[uuid.UUID]time.Time

	now func() time.Time
}

// New builds a Service.
func New(rdb *redis.Client, store Store, opts Options) *Service {
	if opts.Queue == "" {
		opts.Queue = cache.DefaultQueueName
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = 3 * time.Second
	}
	if opts.Inactivity <= 0 {
		opts.Inactivity = 10 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Service{
		rdb:          rdb,
		store:        store,
		opts:         opts,
		log:          opts.Logger.WithField("component", "historian"),
		batch:        make([]cache.MatchActionRecord, 0, opts.BatchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
		now:          time.Now,
	}
}

// Run blocks until ctx is cancelled, then flushes whatever is still buffered.
func (s *Service) Run(ctx context.Context) error {
	s.log.Infof("Historian started on queue %q", s.opts.Queue)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error { return s.flushLoop(gctx) })
	g.Go(func() error { return s.sweepLoop(gctx) })
	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.flush(flushCtx)
	s.log.Info("Historian stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Service) readLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := s.rdb.BLPop(ctx, s.opts.PopTimeout, s.opts.Queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.WithError(err).Warn("BLPop failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		// res[0] is the queue name, res[1] the payload.
		if len(res) < 2 {
			continue
		}
		s.handlePayload(ctx, res[1])
	}
}

func (s *Service) handlePayload(ctx context.Context, payload string) {
	var rec cache.MatchActionRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		s.log.WithError(err).Warn("Dropping invalid action record")
		return
	}

	s.activityMu.Lock()
	if rec.ActionType == cache.ActionFinalGameOver {
		delete(s.lastActivity, rec.MatchID)
	} else {
		s.lastActivity[rec.MatchID] = s.now()
	}
	s.activityMu.Unlock()

	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.opts.BatchSize
	s.batchMu.Unlock()

	if full {
		s.flush(ctx)
	}
}

func (s *Service) flushLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.flush(ctx)
		}
	}
}

// flush writes the buffered batch. A failed batch is logged and dropped.
func (s *Service) flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := make([]cache.MatchActionRecord, len(s.batch))
	copy(pending, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.store.SaveActions(ctx, pending); err != nil {
		s.log.WithError(err).Errorf("Failed to persist %d actions", len(pending))
		return
	}
	s.log.Debugf("Flushed %d actions", len(pending))
}

func (s *Service) sweepLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweepInactive(ctx)
		}
	}
}

// sweepInactive abandons matches idle for longer than the inactivity window.
func (s *Service) sweepInactive(ctx context.Context) {
	now := s.now()
	var stale []uuid.UUID
	s.activityMu.Lock()
	for id, last := range s.lastActivity {
		if now.Sub(last) > s.opts.Inactivity {
			stale = append(stale, id)
			delete(s.lastActivity, id)
		}
	}
	s.activityMu.Unlock()

	if len(stale) == 0 {
		return
	}
	// Buffered actions for these matches must land first.
	s.flush(ctx)
	for _, id := range stale {
		if err := s.store.MarkAbandoned(ctx, id); err != nil {
			s.log.WithError(err).Warnf("Failed to mark match %s abandoned", id)
			continue
		}
		s.log.Infof("Marked match %s abandoned after inactivity", id)
	}
}
