// Package drag reifies the drag gesture as an explicit state machine over a
// single session, plus the payload and burn barrel targets it drops onto.
package drag

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/board"
	"github.com/gosuda/taskboard/internal/domain"
)

var ErrBusy = errors.New("drag: a drag session is already active")

type State int

const (
	StateIdle State = iota
	StateDragging
	StateCommitting
	StateCommittingDelete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StateCommitting:
		return "committing"
	case StateCommittingDelete:
		return "committing-delete"
	default:
		return "unknown"
	}
}

type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetColumn
	TargetBarrel
)

// Target is a drop or hover location. Index counts positions in the column
// with the dragged task removed.
type Target struct {
	Kind   TargetKind
	Status domain.Status
	Index  int
}

func ColumnTarget(status domain.Status, index int) Target {
	return Target{Kind: TargetColumn, Status: status, Index: index}
}

func BarrelTarget() Target { return Target{Kind: TargetBarrel} }

func (t Target) valid() bool {
	switch t.Kind {
	case TargetColumn:
		return t.Status.Valid() && t.Index >= 0
	case TargetBarrel:
		return true
	default:
		return false
	}
}

// Session is the ephemeral record of one gesture.
type Session struct {
	DraggedTaskID uuid.UUID
	OriginStatus  domain.Status
	OriginOrder   float64
	Hover         Target

	payload []byte
}

type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeMoved
	OutcomeDeleted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMoved:
		return "moved"
	case OutcomeDeleted:
		return "deleted"
	default:
		return "none"
	}
}

// Board is the slice of the board controller the drag controller drives.
type Board interface {
	Board() board.Board
	CanEdit() bool
	MoveTo(taskID uuid.UUID, status domain.Status, index int) (bool, error)
}

// Controller runs one drag session at a time. It is owned by a single UI
// loop and is not safe for concurrent use.
type Controller struct {
	board   Board
	barrel  *BurnBarrel
	state   State
	session *Session

	// OnError is called with every failed commit, in addition to the error
	// returned from Drop.
	OnError func(error)
}

func NewController(b Board, barrel *BurnBarrel) *Controller {
	return &Controller{board: b, barrel: barrel}
}

func (c *Controller) State() State { return c.state }

// Session returns a copy of the active session, if any.
func (c *Controller) Session() (Session, bool) {
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Barrel returns the burn barrel the controller drops onto.
func (c *Controller) Barrel() *BurnBarrel { return c.barrel }

// Start begins dragging taskID and returns the payload it carries.
func (c *Controller) Start(taskID uuid.UUID) (Payload, error) {
	if c.state != StateIdle {
		return Payload{}, ErrBusy
	}
	if !c.board.CanEdit() {
		return Payload{}, board.ErrReadOnly
	}
	t, _, ok := c.board.Board().Find(taskID)
	if !ok {
		return Payload{}, fmt.Errorf("drag.Controller.Start: %w", board.ErrUnknownTask)
	}

	p := Payload{TaskID: taskID}
	raw, err := p.Encode()
	if err != nil {
		return Payload{}, fmt.Errorf("drag.Controller.Start: %w", err)
	}
	c.session = &Session{
		DraggedTaskID: taskID,
		OriginStatus:  t.Status,
		OriginOrder:   t.Order,
		payload:       raw,
	}
	c.state = StateDragging
	return p, nil
}

// Hover records the target under the pointer. It only affects affordances:
// the burn barrel arms while hovered.
func (c *Controller) Hover(target Target) {
	if c.state != StateDragging {
		return
	}
	c.session.Hover = target
	if target.Kind == TargetBarrel {
		c.barrel.Arm()
	} else {
		c.barrel.Disarm()
	}
}

// Cancel ends the session without issuing any mutation.
func (c *Controller) Cancel() {
	c.reset()
}

// Drop ends the session on target. A column target issues a move, the burn
// barrel issues a delete and anything else cancels. At most one mutation is
// issued and the controller is always idle afterwards.
func (c *Controller) Drop(target Target) (Outcome, error) {
	if c.state != StateDragging {
		return OutcomeNone, nil
	}
	defer c.reset()

	if !target.valid() {
		return OutcomeNone, nil
	}

	s := c.session
	switch target.Kind {
	case TargetBarrel:
		c.state = StateCommittingDelete
		deleted, err := c.barrel.Drop(s.payload)
		if errors.Is(err, board.ErrDeleteDeclined) {
			return OutcomeNone, nil
		}
		if err != nil {
			return OutcomeNone, c.fail(err)
		}
		if !deleted {
			return OutcomeNone, nil
		}
		return OutcomeDeleted, nil
	default:
		c.state = StateCommitting
		p, err := DecodePayload(s.payload)
		if err != nil {
			return OutcomeNone, c.fail(err)
		}
		moved, err := c.board.MoveTo(p.TaskID, target.Status, target.Index)
		if err != nil {
			return OutcomeNone, c.fail(err)
		}
		if !moved {
			return OutcomeNone, nil
		}
		return OutcomeMoved, nil
	}
}

func (c *Controller) fail(err error) error {
	err = fmt.Errorf("drag.Controller.Drop: %w", err)
	if c.OnError != nil {
		c.OnError(err)
	}
	return err
}

func (c *Controller) reset() {
	c.state = StateIdle
	c.session = nil
	c.barrel.Disarm()
}
