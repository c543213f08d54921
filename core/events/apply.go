package events

import "github.com/haulplan/haulplan/core/board"

// Apply writes the message's entity changes into the store and returns the
// number of entities applied. Created and updated both upsert, deleted
// removes; every operation keys on the entity ID, so applying a frame twice
// or out of order with frames about other entities leaves the store in the
// same state. Repeated frames about the same entity resolve last-write-wins.
func Apply(store board.Store, m Message) int {
	n := 0
	switch m.Event {
	case EventOrderUpdated:
		n += applyOne(store, m.Action, m.Order, board.KindOrder)
	case EventRunUpdated:
		n += applyOne(store, m.Action, m.Run, board.KindRun)
	case EventNoteUpdated:
		n += applyOne(store, m.Action, m.Note, board.KindNote)
	case EventBulkUpdate:
		for _, c := range m.Orders {
			n += applyOne(store, c.Action, c.Order, board.KindOrder)
		}
		for _, c := range m.Runs {
			n += applyOne(store, c.Action, c.Run, board.KindRun)
		}
		for _, c := range m.Notes {
			n += applyOne(store, c.Action, c.Note, board.KindNote)
		}
	}
	return n
}

func applyOne(store board.Store, action string, e *Entity, kind board.Kind) int {
	if e == nil || e.ID == "" {
		return 0
	}
	switch action {
	case ActionCreated, ActionUpdated:
		store.Upsert(e.Item(kind))
	case ActionDeleted:
		store.Remove(e.ID)
	default:
		return 0
	}
	return 1
}
