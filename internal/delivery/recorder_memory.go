package delivery

import (
	"context"
	"sync"
	"time"

	"results-hotline/internal/clinic"

	"github.com/google/uuid"
)

// MemoryRecorder is a simple in-memory recorder useful for tests.
// It is not intended for production use.
type MemoryRecorder struct {
	mu         sync.Mutex
	deliveries []clinic.Delivery
	// associations maps delivery id -> covered result ids.
	associations map[string][]string
	statuses     map[string]clinic.DeliveryStatus

	// Repo, when set, receives the status updates so repository-backed
	// assertions see the same view as the Postgres path.
	Repo *clinic.MemoryRepo

	Clock func() time.Time

	// Err, when set, makes Record fail (transient-failure simulation).
	Err error
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		associations: make(map[string][]string),
		statuses:     make(map[string]clinic.DeliveryStatus),
		Clock:        time.Now,
	}
}

func (r *MemoryRecorder) Record(ctx context.Context, req RecordRequest) (clinic.Delivery, error) {
	if err := req.validate(); err != nil {
		return clinic.Delivery{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return clinic.Delivery{}, r.Err
	}

	at := req.At
	if at.IsZero() {
		at = r.Clock()
	}
	d := clinic.Delivery{
		ID:          uuid.NewString(),
		Method:      req.Method,
		Message:     req.Message,
		DeliveredAt: at.UTC(),
	}
	r.deliveries = append(r.deliveries, d)
	for id, st := range req.Statuses {
		r.associations[d.ID] = append(r.associations[d.ID], id)
		r.statuses[id] = st
		if r.Repo != nil {
			r.Repo.SetDeliveryStatus(id, st)
		}
	}
	return d, nil
}

func (r *MemoryRecorder) Deliveries() []clinic.Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]clinic.Delivery, len(r.deliveries))
	copy(out, r.deliveries)
	return out
}

func (r *MemoryRecorder) StatusOf(resultID string) (clinic.DeliveryStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.statuses[resultID]
	return st, ok
}

func (r *MemoryRecorder) AssociatedResults(deliveryID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.associations[deliveryID]))
	copy(out, r.associations[deliveryID])
	return out
}
