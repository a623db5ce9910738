package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"example.com/fairplay/internal/game"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSessionStore keeps live round snapshots in the rounds table.
// Rows past expires_at are invisible to Load and removed by PurgeExpired.
type PostgresSessionStore struct {
	db  *pgxpool.Pool
	ttl time.Duration
}

func NewPostgresSessionStore(db *pgxpool.Pool, ttl time.Duration) *PostgresSessionStore {
	return &PostgresSessionStore{db: db, ttl: ttl}
}

func (s *PostgresSessionStore) Save(ctx context.Context, snap game.SessionSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO rounds (id, phase, snapshot, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE
		SET phase = EXCLUDED.phase,
		    snapshot = EXCLUDED.snapshot,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = now()
	`, snap.ID, string(snap.Phase), string(b), time.Now().Add(s.ttl))
	return err
}

func (s *PostgresSessionStore) Load(ctx context.Context, id string) (game.SessionSnapshot, bool, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `
		SELECT snapshot
		FROM rounds
		WHERE id = $1 AND expires_at > now()
	`, id).Scan(&raw)

	if errors.Is(err, pgx.ErrNoRows) {
		return game.SessionSnapshot{}, false, nil
	}
	if err != nil {
		return game.SessionSnapshot{}, false, err
	}

	var snap game.SessionSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return game.SessionSnapshot{}, false, err
	}
	return snap, true, nil
}

// Resolve overwrites the snapshot only while the stored round is open and
// unexpired. A lost race is told apart from a missing row afterwards.
func (s *PostgresSessionStore) Resolve(ctx context.Context, snap game.SessionSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE rounds
		SET phase = $2,
		    snapshot = $3,
		    expires_at = $4,
		    updated_at = now()
		WHERE id = $1
		  AND phase <> $5
		  AND expires_at > now()
	`, snap.ID, string(snap.Phase), string(b), time.Now().Add(s.ttl), string(game.PhaseResolved))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var phase string
	err = s.db.QueryRow(ctx, `
		SELECT phase
		FROM rounds
		WHERE id = $1 AND expires_at > now()
	`, snap.ID).Scan(&phase)
	if errors.Is(err, pgx.ErrNoRows) {
		return game.ErrNotFound
	}
	if err != nil {
		return err
	}
	return game.ErrResolved
}

func (s *PostgresSessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM rounds WHERE id = $1`, id)
	return err
}

// PurgeExpired deletes rounds whose TTL has passed and reports how many.
func (s *PostgresSessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM rounds WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
