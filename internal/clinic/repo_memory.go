package clinic

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is a simple in-memory repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu       sync.Mutex
	clinics  map[string]Clinic
	visits   map[string]Visit
	tests    map[string]Test
	statuses map[string]Status
	results  map[string]Result

	Clock func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		clinics:  make(map[string]Clinic),
		visits:   make(map[string]Visit),
		tests:    make(map[string]Test),
		statuses: make(map[string]Status),
		results:  make(map[string]Result),
		Clock:    time.Now,
	}
}

func (r *MemoryRepo) now() time.Time { return r.Clock().UTC() }

func (r *MemoryRepo) CreateClinic(ctx context.Context, c Clinic) (Clinic, error) {
	if err := ValidateClinic(c); err != nil {
		return Clinic{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.clinics {
		if e.Code == c.Code || e.Name == c.Name {
			return Clinic{}, ErrDuplicate
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := r.now()
	c.CreatedAt = now
	c.UpdatedAt = now
	r.clinics[c.ID] = c
	return c, nil
}

func (r *MemoryRepo) UpdateClinic(ctx context.Context, c Clinic) (Clinic, error) {
	if err := ValidateClinic(c); err != nil {
		return Clinic{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.clinics[c.ID]
	if !ok {
		return Clinic{}, ErrNotFound
	}
	if existing.Code != c.Code {
		return Clinic{}, ErrCodeImmutable
	}
	existing.Name = c.Name
	existing.HoursEnglish = c.HoursEnglish
	existing.HoursSpanish = c.HoursSpanish
	existing.UpdatedAt = r.now()
	r.clinics[c.ID] = existing
	return existing, nil
}

func (r *MemoryRepo) SoftDeleteClinic(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clinics[id]
	if !ok || c.Deleted() {
		return ErrNotFound
	}
	now := r.now()
	c.DeletedAt = &now
	c.UpdatedAt = now
	r.clinics[id] = c
	return nil
}

func (r *MemoryRepo) FindClinicByCode(ctx context.Context, code string, includeDeleted bool) (Clinic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clinics {
		if c.Code != code {
			continue
		}
		if c.Deleted() && !includeDeleted {
			continue
		}
		return c, nil
	}
	return Clinic{}, ErrNotFound
}

func (r *MemoryRepo) ListClinics(ctx context.Context, includeDeleted bool) ([]Clinic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Clinic
	for _, c := range r.clinics {
		if c.Deleted() && !includeDeleted {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *MemoryRepo) ClinicByID(ctx context.Context, id string) (Clinic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clinics[id]
	if !ok {
		return Clinic{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) CreateVisit(ctx context.Context, v Visit) (Visit, error) {
	if err := ValidateVisit(v); err != nil {
		return Visit{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.visits {
		if e.Username == v.Username && e.Password == v.Password {
			return Visit{}, ErrDuplicate
		}
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CreatedAt = r.now()
	r.visits[v.ID] = v
	return v, nil
}

func (r *MemoryRepo) FindVisitByUsername(ctx context.Context, username string) (Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best Visit
	found := false
	for _, v := range r.visits {
		if v.Username != username {
			continue
		}
		if !found || v.CreatedAt.After(best.CreatedAt) {
			best = v
			found = true
		}
	}
	if !found {
		return Visit{}, ErrNotFound
	}
	return best, nil
}

func (r *MemoryRepo) FindVisitByCredentials(ctx context.Context, username, password string) (Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.visits {
		if v.Username == username && v.Password == password {
			return v, nil
		}
	}
	return Visit{}, ErrNotFound
}

// AddTest registers a test type, creating it on first use.
func (r *MemoryRepo) AddTest(name string) Test {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tests {
		if t.Name == name {
			return t
		}
	}
	t := Test{ID: uuid.NewString(), Name: name}
	r.tests[t.ID] = t
	return t
}

// AddResult appends a result row for a visit.
func (r *MemoryRepo) AddResult(visitID string, test Test, status *Status, at time.Time) Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := Result{
		ID:             uuid.NewString(),
		VisitID:        visitID,
		Test:           test,
		Status:         status,
		DeliveryStatus: DeliveryStatusPendingDelivery,
		CreatedAt:      at.UTC(),
	}
	r.results[res.ID] = res
	return res
}

func (r *MemoryRepo) LatestResultsByTest(ctx context.Context, visitID string) ([]Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	latest := make(map[string]Result)
	for _, res := range r.results {
		if res.VisitID != visitID {
			continue
		}
		cur, ok := latest[res.Test.ID]
		if !ok || res.CreatedAt.After(cur.CreatedAt) {
			latest[res.Test.ID] = res
		}
	}
	out := make([]Result, 0, len(latest))
	for _, res := range latest {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Test.Name < out[j].Test.Name })
	return out, nil
}

// SetDeliveryStatus applies a delivery-status update (test hook; the
// transactional path lives in the delivery recorder).
func (r *MemoryRepo) SetDeliveryStatus(resultID string, st DeliveryStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.results[resultID]; ok {
		res.DeliveryStatus = st
		r.results[resultID] = res
	}
}

// ResultByID is a test hook for asserting on stored rows.
func (r *MemoryRepo) ResultByID(id string) (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[id]
	return res, ok
}

func (r *MemoryRepo) CreateStatus(ctx context.Context, s Status) (Status, error) {
	if s.Label == "" {
		return Status{}, ErrInvalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.statuses {
		if strings.EqualFold(e.Label, s.Label) {
			return Status{}, ErrDuplicate
		}
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	r.statuses[s.ID] = s
	return s, nil
}

func (r *MemoryRepo) FindStatusByLabel(ctx context.Context, label string) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.statuses {
		if strings.EqualFold(s.Label, label) {
			return s, nil
		}
	}
	return Status{}, ErrNotFound
}
