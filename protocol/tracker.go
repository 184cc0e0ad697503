package protocol

import (
	"fmt"

	"github.com/BaSui01/cubesnap/types"
	"github.com/google/uuid"
)

// Tracker is the set of request ids still waiting for a response. It is
// owned by the correlator; the ids are known before the first send, so no
// state is shared with the sender.
type Tracker struct {
	pending map[uuid.UUID]struct{}
	acked   int
}

// NewTracker starts tracking ids.
func NewTracker(ids []uuid.UUID) *Tracker {
	t := &Tracker{pending: make(map[uuid.UUID]struct{}, len(ids))}
	for _, id := range ids {
		t.pending[id] = struct{}{}
	}
	return t
}

// Ack marks id as answered. An id that was never sent, or was already
// answered, is a protocol violation.
func (t *Tracker) Ack(id uuid.UUID) error {
	if _, ok := t.pending[id]; !ok {
		return types.NewError(types.ErrUncorrelatedResponse,
			fmt.Sprintf("response request_id %s matches no pending request", id))
	}
	delete(t.pending, id)
	t.acked++
	return nil
}

// Pending returns how many requests have not been answered yet.
func (t *Tracker) Pending() int { return len(t.pending) }

// Acked returns how many requests have been answered.
func (t *Tracker) Acked() int { return t.acked }
