// Package events publishes refresh state transitions to Kafka.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/airvitals/airvitals/internal/aqi"
	"github.com/airvitals/airvitals/internal/geolocation"
	"github.com/airvitals/airvitals/internal/refresh"
)

// TypeTransition is the event type of a refresh state transition.
const TypeTransition = "refresh.transition"

// Event is the JSON payload written for each transition.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	From       refresh.Phase           `json:"from"`
	To         refresh.Phase           `json:"to"`
	Generation uint64                  `json:"generation"`
	Location   geolocation.Coordinates `json:"location"`

	Message string              `json:"message,omitempty"`
	Failure refresh.FailureKind `json:"failure,omitempty"`

	// Set when the transition lands in SUCCESS.
	Place string    `json:"place,omitempty"`
	AQIUS *float64  `json:"aqi_us,omitempty"`
	Label aqi.Label `json:"label,omitempty"`
}

// FromTransition builds the event for a transition.
func FromTransition(t refresh.Transition) Event {
	e := Event{
		ID:         "evt_" + uuid.New().String()[:22],
		Type:       TypeTransition,
		OccurredAt: t.At.UTC(),
		From:       t.From.Phase,
		To:         t.To.Phase,
		Generation: t.To.Generation,
		Location:   t.To.Coordinates,
		Message:    t.To.Message,
		Failure:    t.To.Failure,
	}

	if r := t.To.Report; r != nil {
		value := r.Current.Pollution.AQIUS
		e.Place = r.Place()
		e.AQIUS = &value
		if c, err := r.Current.Pollution.Classification(); err == nil {
			e.Label = c.Label
		}
	}

	return e
}

// Key is the partition key. Events of one phase share a partition.
func (e Event) Key() string {
	return string(e.To)
}
