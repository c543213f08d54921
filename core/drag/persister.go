package drag

import (
	"context"

	"github.com/haulplan/haulplan/core/board"
	"github.com/haulplan/haulplan/core/events"
)

// MemberChange is one entry of the batched persistence request issued on
// drop: the member's new container and sequence value.
type MemberChange struct {
	ID        string             `json:"id"`
	Container board.ContainerRef `json:"container"`
	Sequence  int                `json:"sequence"`
}

// Persister is the backend boundary for drop outcomes. BatchUpdate persists
// every changed member in one call and returns the authoritative entities;
// MergeIntoRun asks the backend to create or extend a run from the moving
// item and the merge target. Neither call is retried by the controller.
type Persister interface {
	BatchUpdate(ctx context.Context, changes []MemberChange) ([]events.Entity, error)
	MergeIntoRun(ctx context.Context, movingID, targetID string) ([]events.Entity, error)
}
