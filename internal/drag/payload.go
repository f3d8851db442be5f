package drag

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrInvalidPayload = errors.New("drag: invalid payload")

// Payload is the transfer carried by a drag gesture from its source task to
// whichever target receives the drop.
type Payload struct {
	TaskID uuid.UUID `json:"task_id"`
}

// Encode serializes the payload for a drop target.
func (p Payload) Encode() ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("drag.Payload.Encode: %w", err)
	}
	return b, nil
}

// DecodePayload parses a drop payload. A payload without a task ID is invalid.
func DecodePayload(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("drag.DecodePayload: %w: %w", ErrInvalidPayload, err)
	}
	if p.TaskID == uuid.Nil {
		return Payload{}, fmt.Errorf("drag.DecodePayload: %w: missing task_id", ErrInvalidPayload)
	}
	return p, nil
}
