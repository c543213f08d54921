// Package events defines the push-channel message model shared by every
// transport and the request/response persistence API.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/haulplan/haulplan/core/board"
)

// Event type discriminators carried in the inbound envelope.
const (
	EventOrderUpdated          = "order_updated"
	EventRunUpdated            = "run_updated"
	EventNoteUpdated           = "note_updated"
	EventBulkUpdate            = "bulk_update"
	EventConnectionEstablished = "connection_established"
)

// Action values carried alongside an entity.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Ping is the keepalive frame sent on the channel at a fixed interval. The
// server replies with {"type":"pong"}; the reply is informational only.
var Ping = []byte(`{"type":"ping"}`)

// Entity is the wire form of an order, run or note. Scheduling fields are
// decoded for the board; everything else stays in Raw and is echoed to the
// rendering host untouched.
type Entity struct {
	ID       string `json:"id"`
	Date     string `json:"date,omitempty"`
	Truck    string `json:"truck,omitempty"`
	RunID    string `json:"run_id,omitempty"`
	Sequence int    `json:"sequence"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the full payload around next to the decoded fields.
func (e *Entity) UnmarshalJSON(data []byte) error {
	type wire Entity
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Entity(w)
	e.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Item converts the wire entity into a board item of the given kind.
func (e Entity) Item(kind board.Kind) board.Item {
	return board.Item{
		ID:        e.ID,
		Kind:      kind,
		Container: board.ContainerRef{Date: e.Date, Truck: e.Truck, RunID: e.RunID},
		Seq:       e.Sequence,
		Payload:   e.Raw,
		UpdatedAt: time.Now(),
	}
}

// EntityChange pairs an action with exactly one entity kind.
type EntityChange struct {
	Action string  `json:"action"`
	Order  *Entity `json:"order,omitempty"`
	Run    *Entity `json:"run,omitempty"`
	Note   *Entity `json:"note,omitempty"`
}

// Message is a decoded inbound channel frame.
type Message struct {
	Event  string `json:"event"`
	Type   string `json:"type"`
	Action string `json:"action"`

	Order *Entity `json:"order,omitempty"`
	Run   *Entity `json:"run,omitempty"`
	Note  *Entity `json:"note,omitempty"`

	Orders []EntityChange `json:"orders,omitempty"`
	Runs   []EntityChange `json:"runs,omitempty"`
	Notes  []EntityChange `json:"notes,omitempty"`
}

// IsPong reports whether the frame is a keepalive acknowledgment.
func (m Message) IsPong() bool { return m.Type == "pong" }

// Decode parses an inbound channel frame.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode channel frame: %w", err)
	}
	return m, nil
}
