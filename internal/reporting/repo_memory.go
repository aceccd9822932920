package reporting

import (
	"context"
	"time"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	Rows []Row

	// Err simulates a data-source failure.
	Err error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListRows(ctx context.Context, from, to time.Time, clinicCode string) ([]Row, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	var out []Row
	for _, row := range r.Rows {
		if row.VisitDate.Before(from) || !row.VisitDate.Before(to) {
			continue
		}
		if clinicCode != "" && row.ClinicCode != clinicCode {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}
