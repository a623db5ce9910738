package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Recorder receives round lifecycle events (metrics). It may be nil.
type Recorder interface {
	RoundCreated()
	RoundResolved(outcome string)
}

// SessionService keeps an in-memory cache of live rounds in front of a
// SessionPersistence so that rounds survive a restart.
type SessionService struct {
	mu sync.Mutex
	in map[string]*Session

	cfg     Config
	persist SessionPersistence
	rnd     Randomness
	rec     Recorder
	log     *slog.Logger
}

func NewSessionService(cfg Config, persist SessionPersistence, log *slog.Logger) *SessionService {
	if log == nil {
		log = slog.Default()
	}
	return &SessionService{
		in:      make(map[string]*Session),
		cfg:     cfg,
		persist: persist,
		rnd:     CryptoRandomness{},
		log:     log,
	}
}

// WithRandomness swaps the randomness source. Used by tests.
func (s *SessionService) WithRandomness(rnd Randomness) *SessionService {
	s.rnd = rnd
	return s
}

func (s *SessionService) WithRecorder(rec Recorder) *SessionService {
	s.rec = rec
	return s
}

func (s *SessionService) Create(ctx context.Context, moves []string) (*Session, error) {
	sess, err := NewSession(uuid.NewString(), moves, s.rnd)
	if err != nil {
		return nil, err
	}

	if err := s.persist.Save(ctx, sess.Snapshot()); err != nil {
		return nil, fmt.Errorf("save round: %w", err)
	}

	s.mu.Lock()
	s.sweepLocked()
	s.in[sess.ID()] = sess
	s.mu.Unlock()

	if s.rec != nil {
		s.rec.RoundCreated()
	}
	s.log.Debug("round created", "round", sess.ID(), "moves", len(moves))
	return sess, nil
}

func (s *SessionService) GetOrLoad(ctx context.Context, id string) (*Session, bool, error) {
	s.mu.Lock()
	sess, ok := s.in[id]
	s.mu.Unlock()
	if ok {
		return sess, true, nil
	}

	snap, found, err := s.persist.Load(ctx, id)
	if err != nil || !found {
		return nil, false, err
	}

	sess, err = RestoreSession(snap)
	if err != nil {
		return nil, false, err
	}

	if sess.Phase() != PhaseResolved {
		s.mu.Lock()
		if cached, ok := s.in[id]; ok {
			sess = cached
		} else {
			s.in[id] = sess
		}
		s.mu.Unlock()
	}
	return sess, true, nil
}

// Play resolves round id. Storage decides which play wins: the key is only
// handed out once Resolve has accepted the resolved snapshot, so neither a
// stale cached copy nor another instance can play the round a second time.
func (s *SessionService) Play(ctx context.Context, id string, userIndex int) (Result, error) {
	sess, ok, err := s.GetOrLoad(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, ErrNotFound
	}

	res, snap, err := sess.prepare(userIndex)
	if err != nil {
		if errors.Is(err, ErrResolved) {
			s.evict(id, sess)
		}
		return Result{}, err
	}

	if err := s.persist.Resolve(ctx, snap); err != nil {
		if errors.Is(err, ErrResolved) || errors.Is(err, ErrNotFound) {
			s.evict(id, sess)
			return Result{}, err
		}
		return Result{}, fmt.Errorf("resolve round: %w", err)
	}

	sess.settle(res)
	s.evict(id, sess)

	if s.rec != nil {
		s.rec.RoundResolved(res.UserOutcome().String())
	}
	s.log.Info("round resolved",
		"round", id,
		"user", res.UserMove,
		"computer", res.ComputerMove,
		"result", res.UserOutcome().String(),
	)
	return res, nil
}

// evict drops sess from the cache unless a newer copy replaced it.
func (s *SessionService) evict(id string, sess *Session) {
	s.mu.Lock()
	if s.in[id] == sess {
		delete(s.in, id)
	}
	s.mu.Unlock()
}

// sweepLocked drops cached rounds that were never played and are older than
// the session TTL. Storage expires them on its own.
func (s *SessionService) sweepLocked() {
	if s.cfg.SessionTTL <= 0 {
		return
	}
	cutoff := time.Now().Add(-s.cfg.SessionTTL)
	for id, sess := range s.in {
		if sess.CreatedAt().Before(cutoff) {
			delete(s.in, id)
		}
	}
}
