package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"example.com/fairplay/internal/commit"
	"example.com/fairplay/internal/game"
	"example.com/fairplay/internal/rules"
)

type TokenSigner interface {
	Sign(roundID string) (string, error)
}

// Rejections counts requests turned away before touching a round. May be nil.
type Rejections interface {
	Rejected(reason string)
}

type RoundHandler struct {
	Sessions *game.SessionService
	Tokens   TokenSigner
	Rejects  Rejections
	Log      *slog.Logger
}

type CreateRoundRequest struct {
	Moves []string `json:"moves"`
}

type CreateRoundResponse struct {
	RoundID string   `json:"roundId"`
	HMAC    string   `json:"hmac"`
	Moves   []string `json:"moves"`
	Token   string   `json:"token"`
}

type RoundResponse struct {
	game.CommitmentPayload
	Result *game.ResultPayload `json:"result,omitempty"`
}

type PlayRequest struct {
	Move int `json:"move"` // 1-based
}

type VerifyRequest struct {
	Key  string `json:"key"`
	Move string `json:"move"`
	HMAC string `json:"hmac"`
}

type VerifyResponse struct {
	Valid bool `json:"valid"`
}

func (h *RoundHandler) RegisterRoutes(mux *http.ServeMux, v TokenVerifier) {
	mux.HandleFunc("POST /api/rounds", h.Create)
	mux.HandleFunc("GET /api/rounds/{id}", h.Get)
	mux.HandleFunc("GET /api/rounds/{id}/rules", h.Rules)
	mux.Handle("POST /api/rounds/{id}/play", AuthMiddleware(v)(http.HandlerFunc(h.Play)))
	mux.HandleFunc("POST /api/verify", Verify)
}

func (h *RoundHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.reject("bad_json")
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}

	sess, err := h.Sessions.Create(r.Context(), req.Moves)
	if err != nil {
		if errors.Is(err, rules.ErrInvalidMoveSet) {
			h.reject("invalid_move_set")
		} else {
			h.logger().Error("create round", "err", err)
		}
		writeRoundError(w, err)
		return
	}

	token, err := h.Tokens.Sign(sess.ID())
	if err != nil {
		h.logger().Error("sign round token", "round", sess.ID(), "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to sign token")
		return
	}

	writeJSON(w, http.StatusCreated, CreateRoundResponse{
		RoundID: sess.ID(),
		HMAC:    sess.Digest(),
		Moves:   sess.Moves(),
		Token:   token,
	})
}

// Get shows the round's commitment and menu. The key is only included once
// the round is resolved.
func (h *RoundHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}

	resp := RoundResponse{CommitmentPayload: game.NewCommitmentPayload(sess, sess.Menu())}
	if res, done := sess.Result(); done {
		p := game.NewResultPayload(res)
		resp.Result = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *RoundHandler) Rules(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.load(w, r)
	if !ok {
		return
	}

	table, err := sess.Help()
	if err != nil {
		writeRoundError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game.NewRulesPayload(table))
}

func (h *RoundHandler) Play(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	claims, ok := ClaimsFromContext(r.Context())
	if !ok || claims.RoundID != id {
		h.reject("token_mismatch")
		writeError(w, http.StatusUnauthorized, "unauthorized", "token does not belong to this round")
		return
	}

	var req PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.reject("bad_json")
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}

	res, err := h.Sessions.Play(r.Context(), id, req.Move)
	if err != nil {
		if errors.Is(err, game.ErrIndexOutOfRange) {
			h.reject("index_out_of_range")
		}
		writeRoundError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game.NewResultPayload(res))
}

// Verify recomputes a revealed commitment. It needs no round state.
func Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}

	ok, err := commit.Verify(req.Key, req.Move, req.HMAC)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{Valid: ok})
}

func (h *RoundHandler) load(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	id := r.PathValue("id")
	sess, ok, err := h.Sessions.GetOrLoad(r.Context(), id)
	if err != nil {
		h.logger().Error("load round", "round", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "storage error")
		return nil, false
	}
	if !ok {
		writeRoundError(w, game.ErrNotFound)
		return nil, false
	}
	return sess, true
}

func (h *RoundHandler) reject(reason string) {
	if h.Rejects != nil {
		h.Rejects.Rejected(reason)
	}
}

func (h *RoundHandler) logger() *slog.Logger {
	if h.Log == nil {
		return slog.Default()
	}
	return h.Log
}
