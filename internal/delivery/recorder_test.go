package delivery

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"results-hotline/internal/clinic"
)

// The Postgres recorder's transactional behavior (delivery insert + result
// status updates committing or rolling back together) is covered by
// integration tests against Postgres. What we can safely unit-test without
// a DB is request validation and the additive association semantics of the
// shared contract.

func TestRecorder_RejectsInvalidRequest(t *testing.T) {
	rec := NewPostgresRecorder((*sql.DB)(nil))

	cases := []RecordRequest{
		{},
		{Method: "phone", Message: "hi"},
		{Method: "", Message: "hi", Statuses: map[string]clinic.DeliveryStatus{"r1": clinic.DeliveryStatusDelivered}},
		{Method: "phone", Message: "", Statuses: map[string]clinic.DeliveryStatus{"r1": clinic.DeliveryStatusDelivered}},
		{Method: "phone", Message: "hi", Statuses: map[string]clinic.DeliveryStatus{"": clinic.DeliveryStatusDelivered}},
		{Method: "phone", Message: "hi", Statuses: map[string]clinic.DeliveryStatus{"r1": ""}},
	}
	for i, req := range cases {
		if _, err := rec.Record(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("case %d: expected ErrInvalidRequest, got %v", i, err)
		}
	}
}

func TestMemoryRecorder_AdditiveAssociations(t *testing.T) {
	rec := NewMemoryRecorder()
	rec.Clock = func() time.Time { return time.Date(2024, 1, 8, 15, 0, 0, 0, time.UTC) }

	req := RecordRequest{
		Method:  "phone",
		Message: "first transmission",
		Statuses: map[string]clinic.DeliveryStatus{
			"r1": clinic.DeliveryStatusDelivered,
			"r2": clinic.DeliveryStatusDelivered,
		},
	}
	d1, err := rec.Record(context.Background(), req)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	// A later re-delivery appends a new record; the first one survives.
	req.Message = "second transmission"
	d2, err := rec.Record(context.Background(), req)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	all := rec.Deliveries()
	if len(all) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(all))
	}
	if all[0].Message != "first transmission" {
		t.Fatalf("expected prior delivery untouched, got %q", all[0].Message)
	}
	if len(rec.AssociatedResults(d1.ID)) != 2 || len(rec.AssociatedResults(d2.ID)) != 2 {
		t.Fatalf("expected both deliveries associated with both results")
	}
	if st, _ := rec.StatusOf("r1"); st != clinic.DeliveryStatusDelivered {
		t.Fatalf("expected delivered status, got %q", st)
	}
}

func TestMemoryRecorder_DefaultsTimestamp(t *testing.T) {
	rec := NewMemoryRecorder()
	now := time.Date(2024, 1, 8, 15, 0, 0, 0, time.UTC)
	rec.Clock = func() time.Time { return now }

	d, err := rec.Record(context.Background(), RecordRequest{
		Method:   "phone",
		Message:  "msg",
		Statuses: map[string]clinic.DeliveryStatus{"r1": clinic.DeliveryStatusComeBack},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !d.DeliveredAt.Equal(now) {
		t.Fatalf("expected clock timestamp, got %v", d.DeliveredAt)
	}
}
