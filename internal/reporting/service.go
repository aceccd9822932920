package reporting

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"time"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// Implementations query immutable sources: visits, every result row
// (superseded ones included), and the additive delivery record.

type Repository interface {
	ListRows(ctx context.Context, from, to time.Time, clinicCode string) ([]Row, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// VisitReport returns one row per (visit, result, delivery).
func (s *Service) VisitReport(ctx context.Context, req VisitReportRequest) ([]Row, error) {
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return nil, ErrInvalidRequest
	}
	if s.repo == nil {
		return nil, errors.New("reporting: repository not configured")
	}
	return s.repo.ListRows(ctx, req.Range.From, req.Range.To, req.ClinicCode)
}

var csvHeader = []string{
	"clinic_code", "patient_number", "username", "password", "visit_date",
	"test_name", "status_label", "delivery_status", "method", "delivered_at",
	"message",
}

// WriteCSV writes the visit report to w and returns the row count.
func (s *Service) WriteCSV(ctx context.Context, w io.Writer, req VisitReportRequest) (int, error) {
	rows, err := s.VisitReport(ctx, req)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, err
	}
	for _, row := range rows {
		deliveredAt := ""
		if row.DeliveredAt != nil {
			deliveredAt = row.DeliveredAt.UTC().Format(time.RFC3339)
		}
		rec := []string{
			row.ClinicCode,
			row.PatientNumber,
			row.Username,
			row.Password,
			row.VisitDate.UTC().Format("2006-01-02"),
			row.TestName,
			row.StatusLabel,
			row.DeliveryStatus,
			row.Method,
			deliveredAt,
			row.Message,
		}
		if err := cw.Write(rec); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}
	return len(rows), nil
}
