package drag

import (
	"fmt"

	"github.com/google/uuid"
)

// Deleter receives delete intents. *board.Controller satisfies it.
type Deleter interface {
	Delete(taskID uuid.UUID) (bool, error)
}

// BurnBarrel is the deletion drop target. It is armed while a drag hovers it
// and turns any drop into a delete intent. It never asks for confirmation.
type BurnBarrel struct {
	deleter Deleter
	armed   bool
}

func NewBurnBarrel(deleter Deleter) *BurnBarrel {
	return &BurnBarrel{deleter: deleter}
}

func (b *BurnBarrel) Arm()        { b.armed = true }
func (b *BurnBarrel) Disarm()     { b.armed = false }
func (b *BurnBarrel) Armed() bool { return b.armed }

// Drop extracts the task ID from raw and forwards a delete intent. It reports
// false when nothing was dispatched because the task is already gone.
func (b *BurnBarrel) Drop(raw []byte) (bool, error) {
	b.armed = false

	p, err := DecodePayload(raw)
	if err != nil {
		return false, fmt.Errorf("drag.BurnBarrel.Drop: %w", err)
	}
	deleted, err := b.deleter.Delete(p.TaskID)
	if err != nil {
		return false, fmt.Errorf("drag.BurnBarrel.Drop: %w", err)
	}
	return deleted, nil
}
