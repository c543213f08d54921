// Package drag coordinates a drag gesture from pointer-down to persisted
// drop: it resolves the live target each frame, turns the released target
// into a sequence plan, mutates the board optimistically and issues one
// batched persistence call, rolling back if the backend rejects it.
package drag

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haulplan/haulplan/core/board"
	"github.com/haulplan/haulplan/core/events"
	"github.com/haulplan/haulplan/core/geometry"
	"github.com/haulplan/haulplan/core/logger"
	"github.com/haulplan/haulplan/core/metrics"
	"github.com/haulplan/haulplan/core/sequence"
	"github.com/haulplan/haulplan/internal/eventbus"
)

// State is the controller's gesture state.
type State int

const (
	Idle State = iota
	Dragging
)

// StartedEvent is published on the bus when a gesture begins.
type StartedEvent struct {
	SessionID string
	ItemID    string
}

// DroppedEvent is published when a gesture ends with a drop attempt.
type DroppedEvent struct {
	SessionID string
	ItemID    string
	Zone      geometry.ZoneClass
	Rejected  bool
	Err       error
}

// CancelledEvent is published when a gesture ends without a drop.
type CancelledEvent struct {
	SessionID string
	ItemID    string
}

// Outcome describes how a Drop concluded.
type Outcome struct {
	SessionID string
	Rejected  bool
	Zone      geometry.ZoneClass
	Changed   int
	Entities  []events.Entity
}

type session struct {
	id      string
	itemID  string
	target  *geometry.Candidate
	stats   *GestureStats
	started time.Time
}

// Controller owns at most one drag session at a time. All methods are called
// from the host's event loop; the internal mutex only guards against Frame
// racing a concurrent Drop in embedded hosts that pump frames from a ticker.
type Controller struct {
	store     board.Store
	persister Persister
	bus       eventbus.EventBus
	sink      metrics.Sink
	log       logger.Logger

	mu   sync.Mutex
	sess *session
}

// NewController wires the controller to its collaborators. bus, sink and log
// may be nil.
func NewController(store board.Store, p Persister, bus eventbus.EventBus, sink metrics.Sink, log logger.Logger) *Controller {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Controller{store: store, persister: p, bus: bus, sink: sink, log: log}
}

// State reports whether a gesture is in flight.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != nil {
		return Dragging
	}
	return Idle
}

// Start begins a gesture for the given item once the host's drag threshold
// has been crossed.
func (c *Controller) Start(itemID string) (string, error) {
	if _, ok := c.store.Get(itemID); !ok {
		return "", ErrUnknownItem
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != nil {
		return "", ErrSessionActive
	}
	c.sess = &session{
		id:      uuid.NewString(),
		itemID:  itemID,
		stats:   newGestureStats(),
		started: time.Now(),
	}
	c.publish(StartedEvent{SessionID: c.sess.id, ItemID: itemID})
	c.log.Debugf("drag started: item=%s session=%s", itemID, c.sess.id)
	return c.sess.id, nil
}

// Frame resolves the current candidate set and stores the winner as the live
// target. The result is for highlighting only; no board state changes until
// Drop. Returns nil when no gesture is active or no zone matches.
func (c *Controller) Frame(candidates []geometry.Candidate, pointer geometry.Point) *geometry.Candidate {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return nil
	}
	begin := time.Now()
	target := geometry.Resolve(candidates, pointer)
	c.sess.stats.ObserveResolve(time.Since(begin))
	c.sess.target = target
	return target
}

// Cancel ends the gesture without mutating anything; the item stays where it
// was. Safe to call when idle.
func (c *Controller) Cancel() {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()
	if sess == nil {
		return
	}
	c.publish(CancelledEvent{SessionID: sess.id, ItemID: sess.itemID})
	c.finish(sess)
}

// Drop ends the gesture at the live target. With no target the drop is
// rejected and the gesture cancelled. A merge target goes through the
// run-creation path; every other zone class maps to an insertion directive
// for the sequence planner. The resulting plan is applied to the board
// immediately and persisted in one batched call; on failure the board is
// restored to its pre-drop snapshot and a *PersistenceError is returned. A
// stale insertion reference aborts the drop before any mutation and returns
// sequence.ErrTargetNotFound alongside a rejected outcome.
func (c *Controller) Drop(ctx context.Context) (*Outcome, error) {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.mu.Unlock()
	if sess == nil {
		return nil, ErrNoSession
	}
	defer c.finish(sess)

	target := sess.target
	if target == nil {
		c.publish(CancelledEvent{SessionID: sess.id, ItemID: sess.itemID})
		return &Outcome{SessionID: sess.id, Rejected: true}, nil
	}

	begin := time.Now()
	var (
		out *Outcome
		err error
	)
	if target.Class == geometry.ZoneOrderMerge {
		out, err = c.dropMerge(ctx, sess, target)
	} else {
		out, err = c.dropInsert(ctx, sess, target)
	}
	sess.stats.ObserveDrop(time.Since(begin))

	res := metrics.DropResult{
		SessionID: sess.id,
		ItemID:    sess.itemID,
		Zone:      string(target.Class),
		Persisted: err == nil,
		Latency:   time.Since(begin),
		Time:      time.Now(),
	}
	if out != nil {
		res.Members = out.Changed
	}
	if serr := c.sink.RecordDrop(res); serr != nil {
		c.log.Warnf("record drop: %v", serr)
	}
	c.publish(DroppedEvent{SessionID: sess.id, ItemID: sess.itemID, Zone: target.Class, Rejected: out != nil && out.Rejected, Err: err})
	return out, err
}

func (c *Controller) dropInsert(ctx context.Context, sess *session, target *geometry.Candidate) (*Outcome, error) {
	ref := target.Container
	members := c.store.Members(ref)
	ids := make([]string, 0, len(members))
	prior := make(map[string]int, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
		prior[m.ID] = m.Seq
	}

	ins := insertionFor(target)
	plan, err := sequence.Plan(ids, prior, sess.itemID, ins)
	if errors.Is(err, sequence.ErrTargetNotFound) {
		// The reference member vanished mid-gesture (removed by another
		// session). The drop is aborted; the item stays where it was and
		// the host surfaces the error as a transient notice.
		c.log.Warnf("insertion target %s gone, drop aborted", ins.Target)
		return &Outcome{SessionID: sess.id, Rejected: true, Zone: target.Class}, err
	}
	if err != nil {
		return nil, err
	}

	snap := c.store.Snapshot()
	c.store.ApplySequences(ref, plan)

	changes := make([]MemberChange, 0, len(plan))
	for id, seq := range plan {
		changes = append(changes, MemberChange{ID: id, Container: ref, Sequence: seq})
	}
	entities, err := c.persister.BatchUpdate(ctx, changes)
	if err != nil {
		c.store.Restore(snap)
		return nil, &PersistenceError{Err: err}
	}
	c.reconcile(entities)
	return &Outcome{SessionID: sess.id, Zone: target.Class, Changed: len(changes), Entities: entities}, nil
}

func (c *Controller) dropMerge(ctx context.Context, sess *session, target *geometry.Candidate) (*Outcome, error) {
	entities, err := c.persister.MergeIntoRun(ctx, sess.itemID, target.TargetItem)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	c.reconcile(entities)
	return &Outcome{SessionID: sess.id, Zone: target.Class, Changed: len(entities), Entities: entities}, nil
}

// reconcile overwrites optimistic values with the backend's authoritative
// entities. Kinds are looked up from the store; the realtime channel fills in
// anything the board has never seen, so unknown IDs default to orders.
func (c *Controller) reconcile(entities []events.Entity) {
	for _, e := range entities {
		kind := board.KindOrder
		if cur, ok := c.store.Get(e.ID); ok {
			kind = cur.Kind
		}
		c.store.Upsert(e.Item(kind))
	}
}

func (c *Controller) finish(sess *session) {
	sum := sess.stats.Summary(sess.id)
	if rec, ok := c.sink.(metrics.GestureRecorder); ok {
		if err := rec.RecordGestureSummary(sum); err != nil {
			c.log.Warnf("record gesture summary: %v", err)
		}
	}
	c.log.Debugw("gesture finished", map[string]any{
		"session":         sess.id,
		"frames":          sum.Frames,
		"mean_resolve_ms": sum.MeanResolveMS,
		"p95_resolve_ms":  sum.P95ResolveMS,
		"drop_latency_ms": sum.DropLatencyMS,
	})
}

func (c *Controller) publish(e eventbus.Event) {
	if c.bus != nil {
		c.bus.Publish(e)
	}
}

// insertionFor maps a zone class to the planner directive. Top strips insert
// first, everything else appends; a zone carrying a BeforeMember places the
// item ahead of that member instead.
func insertionFor(target *geometry.Candidate) sequence.Insertion {
	if target.BeforeMember != "" {
		return sequence.Insertion{Pos: sequence.Before, Target: target.BeforeMember}
	}
	if target.Class == geometry.ZoneCellTop {
		return sequence.Insertion{Pos: sequence.Top}
	}
	return sequence.Insertion{Pos: sequence.Bottom}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
