package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/fairplay/internal/auth"
	"example.com/fairplay/internal/commit"
	"example.com/fairplay/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rejectCounter map[string]int

func (c rejectCounter) Rejected(reason string) { c[reason]++ }

func newTestAPI(t *testing.T) (*httptest.Server, rejectCounter) {
	t.Helper()

	tokens := auth.NewService([]byte("test-secret"), time.Hour)
	sessions := game.NewSessionService(game.Config{}, game.NewMemorySessionStore(time.Hour), nil).
		WithRandomness(game.FixedRandomness{Index: 1})
	rejects := rejectCounter{}

	h := &RoundHandler{Sessions: sessions, Tokens: tokens, Rejects: rejects}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, tokens)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, rejects
}

func doJSON(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()

	var rd bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&rd).Encode(body))
	}
	req, err := http.NewRequest(method, url, &rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createRound(t *testing.T, base string) CreateRoundResponse {
	t.Helper()
	var created CreateRoundResponse
	code := doJSON(t, http.MethodPost, base+"/api/rounds", "", CreateRoundRequest{
		Moves: []string{"rock", "paper", "scissors"},
	}, &created)
	require.Equal(t, http.StatusCreated, code)
	return created
}

func TestRounds_FullFlow(t *testing.T) {
	ts, _ := newTestAPI(t)
	created := createRound(t, ts.URL)

	require.NotEmpty(t, created.RoundID)
	require.NotEmpty(t, created.Token)
	require.Len(t, created.HMAC, 64)
	assert.Equal(t, []string{"rock", "paper", "scissors"}, created.Moves)

	var round RoundResponse
	code := doJSON(t, http.MethodGet, ts.URL+"/api/rounds/"+created.RoundID, "", nil, &round)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, created.HMAC, round.HMAC)
	assert.Equal(t, game.PhaseAwaitingMove, round.Phase)
	assert.Nil(t, round.Result)

	var rules game.RulesPayload
	code = doJSON(t, http.MethodGet, ts.URL+"/api/rounds/"+created.RoundID+"/rules", "", nil, &rules)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, rules.Rows, 3)

	var res game.ResultPayload
	code = doJSON(t, http.MethodPost, ts.URL+"/api/rounds/"+created.RoundID+"/play", created.Token, PlayRequest{Move: 1}, &res)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "You win!", res.Message)
	assert.Equal(t, "paper", res.ComputerMove)

	ok, err := commit.Verify(res.Key, res.ComputerMove, created.HMAC)
	require.NoError(t, err)
	assert.True(t, ok)

	code = doJSON(t, http.MethodGet, ts.URL+"/api/rounds/"+created.RoundID, "", nil, &round)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, game.PhaseResolved, round.Phase)
	require.NotNil(t, round.Result)
	assert.Equal(t, res.Key, round.Result.Key)

	var verified VerifyResponse
	code = doJSON(t, http.MethodPost, ts.URL+"/api/verify", "", VerifyRequest{
		Key: res.Key, Move: res.ComputerMove, HMAC: created.HMAC,
	}, &verified)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, verified.Valid)

	code = doJSON(t, http.MethodPost, ts.URL+"/api/verify", "", VerifyRequest{
		Key: res.Key, Move: "rock", HMAC: created.HMAC,
	}, &verified)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, verified.Valid)
}

func TestRounds_Errors(t *testing.T) {
	ts, rejects := newTestAPI(t)
	created := createRound(t, ts.URL)
	other := createRound(t, ts.URL)
	playURL := ts.URL + "/api/rounds/" + created.RoundID + "/play"

	cases := []struct {
		name     string
		method   string
		url      string
		token    string
		body     any
		wantCode int
		wantErr  string
	}{
		{"even_move_set", http.MethodPost, ts.URL + "/api/rounds", "", CreateRoundRequest{Moves: []string{"a", "b"}}, http.StatusBadRequest, "invalid_move_set"},
		{"duplicate_moves", http.MethodPost, ts.URL + "/api/rounds", "", CreateRoundRequest{Moves: []string{"a", "a", "b"}}, http.StatusBadRequest, "invalid_move_set"},
		{"unknown_round", http.MethodGet, ts.URL + "/api/rounds/nope", "", nil, http.StatusNotFound, "not_found"},
		{"play_without_token", http.MethodPost, playURL, "", PlayRequest{Move: 1}, http.StatusUnauthorized, "unauthorized"},
		{"play_bad_token", http.MethodPost, playURL, "garbage", PlayRequest{Move: 1}, http.StatusUnauthorized, "unauthorized"},
		{"play_other_rounds_token", http.MethodPost, playURL, other.Token, PlayRequest{Move: 1}, http.StatusUnauthorized, "unauthorized"},
		{"play_out_of_range", http.MethodPost, playURL, created.Token, PlayRequest{Move: 4}, http.StatusBadRequest, "index_out_of_range"},
		{"verify_bad_hex", http.MethodPost, ts.URL + "/api/verify", "", VerifyRequest{Key: "zz", Move: "rock", HMAC: created.HMAC}, http.StatusBadRequest, "bad_request"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var er ErrorResponse
			code := doJSON(t, tc.method, tc.url, tc.token, tc.body, &er)
			require.Equal(t, tc.wantCode, code)
			assert.Equal(t, tc.wantErr, er.Code)
		})
	}

	assert.Equal(t, 2, rejects["invalid_move_set"])
	assert.Equal(t, 1, rejects["token_mismatch"])
	assert.Equal(t, 1, rejects["index_out_of_range"])
}

func TestRounds_PlayTwiceConflicts(t *testing.T) {
	ts, _ := newTestAPI(t)
	created := createRound(t, ts.URL)
	playURL := ts.URL + "/api/rounds/" + created.RoundID + "/play"

	code := doJSON(t, http.MethodPost, playURL, created.Token, PlayRequest{Move: 2}, nil)
	require.Equal(t, http.StatusOK, code)

	var er ErrorResponse
	code = doJSON(t, http.MethodPost, playURL, created.Token, PlayRequest{Move: 3}, &er)
	require.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_resolved", er.Code)

	code = doJSON(t, http.MethodGet, ts.URL+"/api/rounds/"+created.RoundID+"/rules", "", nil, &er)
	require.Equal(t, http.StatusConflict, code)
}
