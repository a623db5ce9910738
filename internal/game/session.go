package game

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"example.com/fairplay/internal/commit"
	"example.com/fairplay/internal/rules"
)

type Phase string

const (
	PhaseCreated      Phase = "created"
	PhaseCommitted    Phase = "committed"
	PhaseAwaitingMove Phase = "awaiting_move"
	PhaseResolved     Phase = "resolved"
)

var (
	ErrIndexOutOfRange = errors.New("move index out of range")
	ErrResolved        = errors.New("round already resolved")
	ErrRuleInvariant   = errors.New("rule table disagrees with itself")
	ErrNotFound        = errors.New("round not found")
)

// Randomness supplies the computer's pick and the commitment key.
type Randomness interface {
	Intn(n int) (int, error)
	Key() ([]byte, error)
}

// CryptoRandomness draws everything from crypto/rand.
type CryptoRandomness struct{}

func (CryptoRandomness) Intn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", commit.ErrEntropy, err)
	}
	return int(v.Int64()), nil
}

func (CryptoRandomness) Key() ([]byte, error) {
	return commit.GenerateKey()
}

// FixedRandomness always picks moves[Index]. A nil Secret falls back to a
// random key so the commitment stays meaningful.
type FixedRandomness struct {
	Index  int
	Secret []byte
}

func (f FixedRandomness) Intn(n int) (int, error) {
	if f.Index < 0 || f.Index >= n {
		return 0, fmt.Errorf("fixed index %d outside [0,%d)", f.Index, n)
	}
	return f.Index, nil
}

func (f FixedRandomness) Key() ([]byte, error) {
	if f.Secret == nil {
		return commit.GenerateKey()
	}
	return append([]byte(nil), f.Secret...), nil
}

type MenuItem struct {
	Key   string
	Label string
}

// Session is one round against the computer. The computer's move is fixed and
// committed to at construction; the key is only handed out by Play.
type Session struct {
	mu sync.Mutex

	id        string
	phase     Phase
	createdAt time.Time

	moves    []string
	table    *rules.Table
	computer int
	commit   commit.Commitment

	result *Result
}

func NewSession(id string, moves []string, rnd Randomness) (*Session, error) {
	table, err := rules.Build(moves)
	if err != nil {
		return nil, err
	}
	if rnd == nil {
		rnd = CryptoRandomness{}
	}

	s := &Session{
		id:        id,
		phase:     PhaseCreated,
		createdAt: time.Now(),
		moves:     table.Moves(),
		table:     table,
	}

	idx, err := rnd.Intn(len(s.moves))
	if err != nil {
		return nil, fmt.Errorf("pick computer move: %w", err)
	}
	key, err := rnd.Key()
	if err != nil {
		return nil, fmt.Errorf("commitment key: %w", err)
	}

	s.computer = idx
	s.commit = commit.New(key, s.moves[idx])
	s.phase = PhaseCommitted
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Moves() []string {
	return append([]string(nil), s.moves...)
}

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Digest is the published commitment, safe to show before the user moves.
func (s *Session) Digest() string {
	return s.commit.Digest
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Menu lists the choices offered to the user and marks the session as waiting
// for a move.
func (s *Session) Menu() []MenuItem {
	s.mu.Lock()
	if s.phase == PhaseCommitted {
		s.phase = PhaseAwaitingMove
	}
	s.mu.Unlock()

	items := make([]MenuItem, 0, len(s.moves)+2)
	for i, m := range s.moves {
		items = append(items, MenuItem{Key: strconv.Itoa(i + 1), Label: m})
	}
	items = append(items,
		MenuItem{Key: "0", Label: "exit"},
		MenuItem{Key: "?", Label: "help"},
	)
	return items
}

// Help exposes the rule table. It leaves the phase and the commitment alone.
func (s *Session) Help() (*rules.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseResolved {
		return nil, ErrResolved
	}
	return s.table, nil
}

// Play resolves the round with the user's 1-based move index and reveals the
// key. A session can be played once.
func (s *Session) Play(userIndex int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseResolved {
		return Result{}, ErrResolved
	}
	res, err := s.resolveLocked(userIndex)
	if err != nil {
		return Result{}, err
	}
	s.result = &res
	s.phase = PhaseResolved
	return res, nil
}

// prepare computes the result of userIndex and the snapshot that records it,
// leaving the session open. The caller settles it once storage has accepted
// the snapshot.
func (s *Session) prepare(userIndex int) (Result, SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseResolved {
		return Result{}, SessionSnapshot{}, ErrResolved
	}
	res, err := s.resolveLocked(userIndex)
	if err != nil {
		return Result{}, SessionSnapshot{}, err
	}

	snap := s.snapshotLocked()
	snap.Phase = PhaseResolved
	snap.UserIndex = res.UserIndex
	return res, snap, nil
}

func (s *Session) settle(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		s.result = &res
		s.phase = PhaseResolved
	}
}

// Result returns the outcome once the session is resolved.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

func (s *Session) resolveLocked(userIndex int) (Result, error) {
	n := len(s.moves)
	if userIndex < 1 || userIndex > n {
		return Result{}, fmt.Errorf("%w: %d not in [1,%d]", ErrIndexOutOfRange, userIndex, n)
	}
	user := userIndex - 1

	// rows are the computer's perspective
	outcome := s.table.At(s.computer, user)
	if s.table.At(user, s.computer) != outcome.Invert() {
		return Result{}, fmt.Errorf("%w: %q vs %q", ErrRuleInvariant, s.moves[s.computer], s.moves[user])
	}

	return Result{
		UserIndex:    userIndex,
		UserMove:     s.moves[user],
		ComputerMove: s.moves[s.computer],
		Outcome:      outcome,
		Digest:       s.commit.Digest,
		Key:          append([]byte(nil), s.commit.Key...),
	}, nil
}

// Result is what a resolved round discloses. Outcome is from the computer's
// side.
type Result struct {
	UserIndex    int
	UserMove     string
	ComputerMove string
	Outcome      rules.Outcome
	Digest       string
	Key          []byte
}

func (r Result) UserOutcome() rules.Outcome {
	return r.Outcome.Invert()
}

func (r Result) Message() string {
	switch r.UserOutcome() {
	case rules.Win:
		return "You win!"
	case rules.Lose:
		return "You lose!"
	default:
		return "Draw!"
	}
}

func (r Result) KeyHex() string {
	return commit.EncodeHex(r.Key)
}
