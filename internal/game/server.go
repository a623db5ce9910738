package game

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"example.com/fairplay/internal/auth"
	"example.com/fairplay/internal/rules"
)

type Config struct {
	SessionTTL time.Duration // 0 => rounds never expire from the cache
}

// TokenVerifier checks a round token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type Server struct {
	cfg      Config
	sessions *SessionService
	verifier TokenVerifier
	log      *slog.Logger
}

func NewServer(cfg Config, sessions *SessionService, verifier TokenVerifier, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		verifier: verifier,
		log:      log,
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/{id}", s.handleWS)
}

// NewRulesPayload renders the table from the user's side: row = computer move,
// column = user move.
func NewRulesPayload(t *rules.Table) RulesPayload {
	n := t.Len()
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, n)
		for j := 0; j < n; j++ {
			row[j] = t.At(i, j).Invert().String()
		}
		rows[i] = row
	}
	return RulesPayload{Moves: t.Moves(), Rows: rows}
}

func NewCommitmentPayload(sess *Session, menu []MenuItem) CommitmentPayload {
	entries := make([]MenuEntry, 0, len(menu))
	for _, it := range menu {
		entries = append(entries, MenuEntry{Key: it.Key, Label: it.Label})
	}
	return CommitmentPayload{
		RoundID: sess.ID(),
		HMAC:    sess.Digest(),
		Moves:   sess.Moves(),
		Phase:   sess.Phase(),
		Menu:    entries,
	}
}

// ErrorCode maps round errors to stable wire codes.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, rules.ErrInvalidMoveSet):
		return "invalid_move_set"
	case errors.Is(err, ErrIndexOutOfRange):
		return "index_out_of_range"
	case errors.Is(err, ErrResolved):
		return "already_resolved"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
