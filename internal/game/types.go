package game

import "encoding/json"

// Envelope WS envelope: {"type":"...","payload":{...}}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// incoming

type PlayPayload struct {
	Move int `json:"move"` // 1-based
}

// outgoing

type MenuEntry struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type CommitmentPayload struct {
	RoundID string      `json:"roundId"`
	HMAC    string      `json:"hmac"`
	Moves   []string    `json:"moves"`
	Phase   Phase       `json:"phase"`
	Menu    []MenuEntry `json:"menu"`
}

// RulesPayload rows are computer moves, columns user moves, cells the user's
// result.
type RulesPayload struct {
	Moves []string   `json:"moves"`
	Rows  [][]string `json:"rows"`
}

type ResultPayload struct {
	YourMove     string `json:"yourMove"`
	ComputerMove string `json:"computerMove"`
	Result       string `json:"result"`
	Message      string `json:"message"`
	HMAC         string `json:"hmac"`
	Key          string `json:"key"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewResultPayload(r Result) ResultPayload {
	return ResultPayload{
		YourMove:     r.UserMove,
		ComputerMove: r.ComputerMove,
		Result:       r.UserOutcome().String(),
		Message:      r.Message(),
		HMAC:         r.Digest,
		Key:          r.KeyHex(),
	}
}
