package board

import (
	"encoding/json"
	"time"
)

// Kind discriminates the draggable item types shown on the board.
type Kind string

const (
	KindOrder    Kind = "order"
	KindRun      Kind = "run"
	KindNote     Kind = "note"
	KindTemplate Kind = "template"
)

// ContainerRef identifies the container an item currently belongs to: a
// calendar cell (date, optionally narrowed to a truck), a delivery run, or
// the unscheduled bin when all fields are empty.
type ContainerRef struct {
	Date  string `json:"date,omitempty"`
	Truck string `json:"truck,omitempty"`
	RunID string `json:"run_id,omitempty"`
}

// Unscheduled reports whether the reference points at the unscheduled bin.
func (c ContainerRef) Unscheduled() bool {
	return c.Date == "" && c.RunID == ""
}

// IsRun reports whether the reference points at a delivery run.
func (c ContainerRef) IsRun() bool { return c.RunID != "" }

// Key returns a stable map key for the container.
func (c ContainerRef) Key() string {
	if c.RunID != "" {
		return "run:" + c.RunID
	}
	if c.Date == "" {
		return "unscheduled"
	}
	return "cell:" + c.Date + ":" + c.Truck
}

// Item is a draggable work item. The board store owns every Item; a drag
// session holds only the item's ID for the duration of the gesture.
type Item struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Container ContainerRef    `json:"container"`
	Seq       int             `json:"seq"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}
