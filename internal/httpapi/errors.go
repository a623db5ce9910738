package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"example.com/fairplay/internal/game"
	"example.com/fairplay/internal/rules"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, ErrorResponse{Code: errCode, Message: msg})
}

// writeRoundError maps round errors to a status and body.
func writeRoundError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, rules.ErrInvalidMoveSet), errors.Is(err, game.ErrIndexOutOfRange):
		code, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, game.ErrNotFound):
		code, msg = http.StatusNotFound, "round not found"
	case errors.Is(err, game.ErrResolved):
		code, msg = http.StatusConflict, "round already resolved"
	}
	writeError(w, code, game.ErrorCode(err), msg)
}
