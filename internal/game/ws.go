package game

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
}

func (c *ClientConn) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

func (c *ClientConn) sendEnvelope(typ string, v any) {
	b, _ := json.Marshal(Envelope{Type: typ, Payload: mustJSON(v)})
	select {
	case c.send <- b:
	default:
		// slow reader, drop
	}
}

func (c *ClientConn) sendError(err error) {
	c.sendEnvelope("error", ErrorPayload{Code: ErrorCode(err), Message: err.Error()})
}

// handleWS plays one round over a websocket: /ws/{id}
// The round token comes from "Authorization: Bearer" or ?token=.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	roundID := r.PathValue("id")
	if roundID == "" || strings.Contains(roundID, "/") {
		http.Error(w, "missing round id", http.StatusBadRequest)
		return
	}

	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	claims, err := s.verifier.Verify(token)
	if err != nil || claims.RoundID != roundID {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	sess, ok, err := s.sessions.GetOrLoad(r.Context(), roundID)
	if err != nil {
		s.log.Error("load round", "round", roundID, "err", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "round not found", http.StatusNotFound)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	cc := &ClientConn{
		ws:   ws,
		send: make(chan []byte, 16),
	}
	defer cc.Close()

	// writer loop
	go func() {
		ticker := time.NewTicker(25 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case msg, ok := <-cc.send:
				if !ok {
					return
				}
				_ = ws.WriteMessage(websocket.TextMessage, msg)
			case <-ticker.C:
				_ = ws.WriteMessage(websocket.PingMessage, []byte{})
			}
		}
	}()

	cc.sendEnvelope("commitment", NewCommitmentPayload(sess, sess.Menu()))

	// reader loop, one request at a time
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			break
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			cc.sendEnvelope("error", ErrorPayload{Code: "bad_json", Message: "invalid json"})
			continue
		}

		switch env.Type {
		case "help":
			table, err := sess.Help()
			if err != nil {
				cc.sendError(err)
				continue
			}
			cc.sendEnvelope("rules", NewRulesPayload(table))

		case "play":
			var p PlayPayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				cc.sendEnvelope("error", ErrorPayload{Code: "bad_input", Message: "invalid payload"})
				continue
			}
			res, err := s.sessions.Play(r.Context(), roundID, p.Move)
			if err != nil {
				cc.sendError(err)
				continue
			}
			cc.sendEnvelope("result", NewResultPayload(res))

		default:
			cc.sendEnvelope("error", ErrorPayload{Code: "unknown_type", Message: "unknown message type"})
		}
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
