package clinic

import (
	"context"
	"errors"
)

// Repository is the durable-storage contract for clinics, visits, results
// and statuses.
//
// Error discipline: lookups distinguish a "not found" miss (ErrNotFound)
// from transient storage I/O (any other error). Callers re-prompt on the
// former and fail the turn on the latter.
//
// Soft delete: clinic lookups come in active-only and include-deleted
// variants. Visit-to-clinic resolution always bypasses the deletion filter;
// a visit at a closed clinic must still authenticate and hear its results.
type Repository interface {
	CreateClinic(ctx context.Context, c Clinic) (Clinic, error)
	// UpdateClinic updates name and hours. Any attempt to change the code is
	// rejected with ErrCodeImmutable and leaves the row untouched.
	UpdateClinic(ctx context.Context, c Clinic) (Clinic, error)
	SoftDeleteClinic(ctx context.Context, id string) error
	FindClinicByCode(ctx context.Context, code string, includeDeleted bool) (Clinic, error)
	ListClinics(ctx context.Context, includeDeleted bool) ([]Clinic, error)
	// ClinicByID resolves a clinic regardless of deletion state. This is the
	// visit-association path.
	ClinicByID(ctx context.Context, id string) (Clinic, error)

	CreateVisit(ctx context.Context, v Visit) (Visit, error)
	// FindVisitByUsername matches any visit's username, not scoped by clinic.
	FindVisitByUsername(ctx context.Context, username string) (Visit, error)
	FindVisitByCredentials(ctx context.Context, username, password string) (Visit, error)

	// LatestResultsByTest returns the visit's most recent result per test,
	// with Test and Status populated in one batched fetch.
	LatestResultsByTest(ctx context.Context, visitID string) ([]Result, error)

	// CreateStatus enforces case-insensitive label uniqueness.
	CreateStatus(ctx context.Context, s Status) (Status, error)
	FindStatusByLabel(ctx context.Context, label string) (Status, error)
}

var (
	ErrNotFound = errors.New("clinic: not found")
	// ErrCodeImmutable rejects clinic code changes after creation.
	ErrCodeImmutable = errors.New("clinic: code cannot be changed after creation")
	ErrDuplicate     = errors.New("clinic: duplicate record")
	ErrInvalid       = errors.New("clinic: invalid record")
)

// ValidateVisit checks the mandatory visit fields before persistence.
func ValidateVisit(v Visit) error {
	if v.PatientNumber == "" || v.ClinicID == "" || v.Username == "" || v.Password == "" || v.VisitDate.IsZero() {
		return ErrInvalid
	}
	return nil
}

// ValidateClinic checks the mandatory clinic fields before persistence.
func ValidateClinic(c Clinic) error {
	if c.Code == "" || c.Name == "" {
		return ErrInvalid
	}
	return nil
}
