// Package protocol defines the JSON frames exchanged between the relay hub
// and its websocket clients.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/MicroPhone1/App-HelpPeople/internal/model"
)

// Event types carried in the envelope "type" field.
const (
	TypeInit  = "init"  // hub→conn, replay of recent records after connect
	TypeAlert = "alert" // conn→hub submission, hub→all stamped record
	TypeError = "error" // hub→conn, validation failure to the sender only
	TypePing  = "ping"  // conn→hub liveness probe
	TypePong  = "pong"  // hub→conn reply
)

// Envelope is the single wire frame. Exactly the fields matching Type are
// set; the rest stay empty. Client-sent alert frames carry only submission
// fields; receivedAt/from are stamped by the hub and never read from the
// client.
type Envelope struct {
	Type   string              `json:"type"`
	Alert  *model.AlertRecord  `json:"alert,omitempty"`
	Alerts []model.AlertRecord `json:"alerts,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// Decode parses a wire frame.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("decode frame: missing type")
	}
	return &env, nil
}

// Init builds the connect-time replay frame.
func Init(records []model.AlertRecord) *Envelope {
	return &Envelope{Type: TypeInit, Alerts: records}
}

// Alert builds a frame carrying a full stamped record.
func Alert(rec model.AlertRecord) *Envelope {
	return &Envelope{Type: TypeAlert, Alert: &rec}
}

// Submission builds the client-side frame for a not-yet-stamped alert.
func Submission(sub model.AlertSubmission) *Envelope {
	return &Envelope{Type: TypeAlert, Alert: &model.AlertRecord{AlertSubmission: sub}}
}

// Error builds the rejection frame sent back to a submitter.
func Error(msg string) *Envelope {
	return &Envelope{Type: TypeError, Error: msg}
}
