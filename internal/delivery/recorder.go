package delivery

import (
	"context"
	"errors"
	"time"

	"results-hotline/internal/clinic"
)

// Recorder persists one immutable Delivery per successful composition and
// applies the composer's delivery-status decisions to the covered results.
//
// Invariants:
//   - Deliveries are append-only: a re-delivery (another call, another
//     channel) creates a new record and new associations, never an overwrite.
//   - The delivery insert, its result associations and the status updates are
//     one atomic unit; no partial write survives a failure.
//   - Replaying the cached message within a call does not go through the
//     recorder at all.
type Recorder interface {
	Record(ctx context.Context, req RecordRequest) (clinic.Delivery, error)
}

type RecordRequest struct {
	// Method is the delivery channel identifier (e.g. "phone").
	Method string
	// Message is the composed text that was transmitted.
	Message string
	// Statuses is the new delivery-status per covered result id.
	Statuses map[string]clinic.DeliveryStatus
	// At is the transmission timestamp; zero means now.
	At time.Time
}

var ErrInvalidRequest = errors.New("delivery: invalid request")

func (r RecordRequest) validate() error {
	if r.Method == "" || r.Message == "" || len(r.Statuses) == 0 {
		return ErrInvalidRequest
	}
	for id, st := range r.Statuses {
		if id == "" || st == "" {
			return ErrInvalidRequest
		}
	}
	return nil
}
