package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civicdesk/grievance/internal/complaint"
)

// EventStatusUpdate tags a complaint status change.
const EventStatusUpdate = "STATUS_UPDATE"

// ReasonShutdown is the close reason used when the hub is torn down.
const ReasonShutdown = "server shutting down"

// Event is a tagged payload pushed to a citizen.
type Event struct {
	Type    string        `json:"type"`
	Payload StatusPayload `json:"payload"`
}

// StatusPayload identifies the complaint and its new status.
type StatusPayload struct {
	ComplaintID uuid.UUID        `json:"complaintId"`
	Status      complaint.Status `json:"status"`
}

// StatusUpdate builds the event sent after a status write.
func StatusUpdate(complaintID uuid.UUID, status complaint.Status) Event {
	return Event{
		Type:    EventStatusUpdate,
		Payload: StatusPayload{ComplaintID: complaintID, Status: status},
	}
}

// Channel is a live delivery channel owned by one citizen.
type Channel interface {
	Send(ctx context.Context, event Event) error
	Close(reason string) error
}

// Outcome describes what became of one delivery.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeNoChannel Outcome = "no_channel"
	OutcomeRelayed   Outcome = "relayed"
	OutcomeFailed    Outcome = "failed"
)

// Notifier delivers an event to a citizen, if reachable.
type Notifier interface {
	Deliver(ctx context.Context, citizenID uuid.UUID, event Event) (Outcome, error)
}

// Hub maps each citizen to at most one live channel.
// Registering again for the same citizen replaces the previous channel without closing it.
type Hub struct {
	mu       sync.Mutex
	channels map[uuid.UUID]Channel
	closed   bool
	logger   zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		channels: make(map[uuid.UUID]Channel),
		logger:   logger,
	}
}

// Register stores or overwrites the channel for citizenID.
// The caller must already have verified that the channel belongs to citizenID.
func (h *Hub) Register(citizenID uuid.UUID, ch Channel) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = ch.Close(ReasonShutdown)
		return
	}
	_, replaced := h.channels[citizenID]
	h.channels[citizenID] = ch
	h.mu.Unlock()

	h.logger.Debug().Str("citizen_id", citizenID.String()).Bool("replaced", replaced).Msg("notify: channel registered")
}

// Unregister removes the mapping for citizenID. Missing entries are ignored.
func (h *Hub) Unregister(citizenID uuid.UUID) {
	h.mu.Lock()
	delete(h.channels, citizenID)
	h.mu.Unlock()
}

// Release removes the mapping only if ch is still the registered channel.
func (h *Hub) Release(citizenID uuid.UUID, ch Channel) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.channels[citizenID]; ok && current == ch {
		delete(h.channels, citizenID)
		return true
	}
	return false
}

// Deliver sends event to the citizen's channel. An absent channel is not an error.
func (h *Hub) Deliver(ctx context.Context, citizenID uuid.UUID, event Event) (Outcome, error) {
	h.mu.Lock()
	ch, ok := h.channels[citizenID]
	h.mu.Unlock()

	if !ok {
		return OutcomeNoChannel, nil
	}
	if err := ch.Send(ctx, event); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeDelivered, nil
}

// Len reports the number of registered citizens.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels)
}

// Close closes every registered channel and rejects later registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	channels := h.channels
	h.channels = make(map[uuid.UUID]Channel)
	h.mu.Unlock()

	for id, ch := range channels {
		if err := ch.Close(ReasonShutdown); err != nil {
			h.logger.Debug().Err(err).Str("citizen_id", id.String()).Msg("notify: close failed")
		}
	}
	h.logger.Info().Int("channels", len(channels)).Msg("notify: hub closed")
}
