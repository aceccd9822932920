package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only; records never reach callers.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogClinicAction records an administrative change to a clinic.
func (s *Service) LogClinicAction(ctx context.Context, clinicID, ip, message, metadata string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeClinicAdmin,
		ClinicID:  clinicID,
		IPAddress: ip,
		Message:   message,
		Metadata:  metadata,
	})
}

// LogVisitAction records an administrative change to a visit.
func (s *Service) LogVisitAction(ctx context.Context, visitID, ip, message, metadata string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeVisitAdmin,
		VisitID:   visitID,
		IPAddress: ip,
		Message:   message,
		Metadata:  metadata,
	})
}
