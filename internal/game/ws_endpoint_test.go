package game

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"example.com/fairplay/internal/auth"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type testVerifier struct {
	roundID string
}

func (v testVerifier) Verify(token string) (*auth.Claims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &auth.Claims{RoundID: v.roundID}, nil
}

func readEnvelope(t *testing.T, ws *websocket.Conn) Envelope {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := ws.ReadMessage()
		require.NoError(t, err)
		var env Envelope
		if json.Unmarshal(data, &env) == nil {
			return env
		}
	}
}

func newWSServer(t *testing.T) (*httptest.Server, *SessionService, string) {
	t.Helper()

	cfg := Config{}
	svc := NewSessionService(cfg, &memPersist{}, nil).WithRandomness(FixedRandomness{Index: 1})
	sess, err := svc.Create(context.Background(), rps)
	require.NoError(t, err)

	server := NewServer(cfg, svc, testVerifier{roundID: sess.ID()}, nil)
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, svc, sess.ID()
}

func TestWS_Endpoint_Handshake(t *testing.T) {
	ts, _, roundID := newWSServer(t)
	mkWSURL := func(path string) string {
		return "ws" + strings.TrimPrefix(ts.URL, "http") + path
	}

	cases := []struct {
		name       string
		urlPath    string
		authHeader string
		wantCode   int // 0 => expect success (101)
	}{
		{name: "success_auth_header", urlPath: "/ws/" + roundID, authHeader: "Bearer good"},
		{name: "success_query_token", urlPath: "/ws/" + roundID + "?token=good"},
		{name: "missing_token", urlPath: "/ws/" + roundID, wantCode: http.StatusUnauthorized},
		{name: "bad_token", urlPath: "/ws/" + roundID, authHeader: "Bearer bad", wantCode: http.StatusUnauthorized},
		{name: "token_for_other_round", urlPath: "/ws/other?token=good", wantCode: http.StatusUnauthorized},
		{name: "no_route", urlPath: "/ws/", wantCode: http.StatusNotFound},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			hdr := http.Header{}
			if tc.authHeader != "" {
				hdr.Set("Authorization", tc.authHeader)
			}

			ws, resp, err := websocket.DefaultDialer.Dial(mkWSURL(tc.urlPath), hdr)
			if tc.wantCode != 0 {
				require.Error(t, err)
				require.NotNil(t, resp)
				require.Equal(t, tc.wantCode, resp.StatusCode)
				return
			}
			require.NoError(t, err)
			defer ws.Close()

			env := readEnvelope(t, ws)
			require.Equal(t, "commitment", env.Type)

			var p CommitmentPayload
			require.NoError(t, json.Unmarshal(env.Payload, &p))
			require.Equal(t, roundID, p.RoundID)
			require.Len(t, p.HMAC, 64)
			require.Equal(t, PhaseAwaitingMove, p.Phase)
			require.Len(t, p.Menu, 5)
		})
	}
}

func TestWS_Endpoint_HelpThenPlay(t *testing.T) {
	ts, _, roundID := newWSServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/" + roundID + "?token=good"

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	commitEnv := readEnvelope(t, ws)
	var c CommitmentPayload
	require.NoError(t, json.Unmarshal(commitEnv.Payload, &c))

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"help"}`)))
	env := readEnvelope(t, ws)
	require.Equal(t, "rules", env.Type)
	var rp RulesPayload
	require.NoError(t, json.Unmarshal(env.Payload, &rp))
	require.Equal(t, []string{"Win", "Draw", "Lose"}, rp.Rows[1])

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"play","payload":{"move":7}}`)))
	env = readEnvelope(t, ws)
	require.Equal(t, "error", env.Type)
	var ep ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &ep))
	require.Equal(t, "index_out_of_range", ep.Code)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"play","payload":{"move":1}}`)))
	env = readEnvelope(t, ws)
	require.Equal(t, "result", env.Type)
	var res ResultPayload
	require.NoError(t, json.Unmarshal(env.Payload, &res))
	require.Equal(t, "rock", res.YourMove)
	require.Equal(t, "paper", res.ComputerMove)
	require.Equal(t, "You win!", res.Message)
	require.Equal(t, c.HMAC, res.HMAC)
	require.Len(t, res.Key, 64)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"play","payload":{"move":2}}`)))
	env = readEnvelope(t, ws)
	require.Equal(t, "error", env.Type)
	require.NoError(t, json.Unmarshal(env.Payload, &ep))
	require.Equal(t, "already_resolved", ep.Code)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"dance"}`)))
	env = readEnvelope(t, ws)
	require.NoError(t, json.Unmarshal(env.Payload, &ep))
	require.Equal(t, "unknown_type", ep.Code)
}
