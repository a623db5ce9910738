package game

import (
	"errors"
	"fmt"
	"time"

	"example.com/fairplay/internal/commit"
	"example.com/fairplay/internal/rules"
)

var ErrCorruptSnapshot = errors.New("corrupt round snapshot")

// SessionSnapshot is the serialisable state of a round. It carries the secret
// key, so it only ever goes to server-side storage.
type SessionSnapshot struct {
	ID    string   `json:"id"`
	Moves []string `json:"moves"`
	Phase Phase    `json:"phase"`

	ComputerIndex int    `json:"computerIndex"`
	Key           string `json:"key"`
	Digest        string `json:"digest"`

	UserIndex int `json:"userIndex,omitempty"` // 1-based, 0 until resolved

	CreatedAt time.Time `json:"createdAt"`
}

func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() SessionSnapshot {
	snap := SessionSnapshot{
		ID:            s.id,
		Moves:         append([]string(nil), s.moves...),
		Phase:         s.phase,
		ComputerIndex: s.computer,
		Key:           s.commit.KeyHex(),
		Digest:        s.commit.Digest,
		CreatedAt:     s.createdAt,
	}
	if s.result != nil {
		snap.UserIndex = s.result.UserIndex
	}
	return snap
}

// RestoreSession rebuilds a round from storage. The rules are derived again
// and the stored digest must still match the stored key and move.
func RestoreSession(snap SessionSnapshot) (*Session, error) {
	table, err := rules.Build(snap.Moves)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if snap.ComputerIndex < 0 || snap.ComputerIndex >= len(snap.Moves) {
		return nil, fmt.Errorf("%w: computer index %d", ErrCorruptSnapshot, snap.ComputerIndex)
	}
	key, err := commit.DecodeHex(snap.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	c := commit.New(key, snap.Moves[snap.ComputerIndex])
	if c.Digest != snap.Digest {
		return nil, fmt.Errorf("%w: digest does not match key and move", ErrCorruptSnapshot)
	}

	s := &Session{
		id:        snap.ID,
		phase:     snap.Phase,
		createdAt: snap.CreatedAt,
		moves:     table.Moves(),
		table:     table,
		computer:  snap.ComputerIndex,
		commit:    c,
	}

	switch snap.Phase {
	case PhaseCommitted, PhaseAwaitingMove:
	case PhaseResolved:
		res, err := s.resolveLocked(snap.UserIndex)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
		}
		s.result = &res
	default:
		return nil, fmt.Errorf("%w: phase %q", ErrCorruptSnapshot, snap.Phase)
	}
	return s, nil
}
