package letters

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"excusedesk/internal/queue"
)

// Mutation event types published to the queue.
const (
	EventLetterSubmitted = "letter.submitted"
	EventLetterReviewed  = "letter.reviewed"
	EventLetterUpdated   = "letter.updated"
	EventLetterDeleted   = "letter.deleted"
	EventAccountUpdated  = "account.updated"
	EventSessionLogin    = "session.login"
	EventSessionLogout   = "session.logout"
)

// Event is the JSON payload carried in a queue message body.
type Event struct {
	Action   string    `json:"action"`
	LetterID string    `json:"letter_id,omitempty"`
	Subject  string    `json:"subject,omitempty"` // student/reviewer id the event is about
	Actor    string    `json:"actor,omitempty"`   // reviewer id performing the action, if any
	Status   Status    `json:"status,omitempty"`
	At       time.Time `json:"at"`
}

// emit publishes a mutation event. Delivery is best-effort: a failed publish
// is logged but never fails the mutation that produced it.
func (s *Store) emit(ctx context.Context, ev Event) {
	if s.events == nil {
		return
	}
	ev.At = time.Now().UTC()
	body, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("marshal event failed", zap.String("action", ev.Action), zap.Error(err))
		return
	}
	if err := s.events.Publish(ctx, queue.Message{Type: ev.Action, Body: body}); err != nil {
		s.logger.Warn("event publish failed", zap.String("action", ev.Action), zap.Error(err))
	}
}
