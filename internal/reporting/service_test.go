package reporting

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedRepo() *MemoryRepo {
	deliveredAt := time.Date(2024, 1, 10, 15, 4, 5, 0, time.UTC)
	repo := NewMemoryRepo()
	repo.Rows = []Row{
		{
			ClinicCode: "DTC", PatientNumber: "P-100", Username: "4821", Password: "9937",
			VisitDate: day(2024, 1, 2), TestName: "HIV", StatusLabel: "Negative",
			DeliveryStatus: "delivered", Method: "phone", DeliveredAt: &deliveredAt,
			Message: "Your HIV result is negative.",
		},
		{
			ClinicCode: "DTC", PatientNumber: "P-101", Username: "7730", Password: "2218",
			VisitDate: day(2024, 1, 3), TestName: "HIV", StatusLabel: "",
			DeliveryStatus: "not_yet_delivered",
		},
		{
			ClinicCode: "NSC", PatientNumber: "P-200", Username: "1144", Password: "5501",
			VisitDate: day(2024, 2, 1), TestName: "Syphilis", StatusLabel: "Pending",
			DeliveryStatus: "not_yet_delivered",
		},
	}
	return repo
}

func TestVisitReportFiltersRangeAndClinic(t *testing.T) {
	svc := NewService(seedRepo())
	ctx := context.Background()

	rows, err := svc.VisitReport(ctx, VisitReportRequest{
		Range: TimeRange{From: day(2024, 1, 1), To: day(2024, 2, 1)},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows in january, got %d", len(rows))
	}

	rows, err = svc.VisitReport(ctx, VisitReportRequest{
		Range:      TimeRange{From: day(2024, 1, 1), To: day(2024, 3, 1)},
		ClinicCode: "NSC",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rows) != 1 || rows[0].PatientNumber != "P-200" {
		t.Fatalf("expected the NSC row, got %+v", rows)
	}
}

func TestVisitReportKeepsSupersededResults(t *testing.T) {
	// A test can get a corrected result after the first one was already
	// delivered. Both rows belong in the export with their own delivery
	// history.
	firstDelivered := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	secondDelivered := time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo()
	repo.Rows = []Row{
		{
			ClinicCode: "DTC", PatientNumber: "P-100", Username: "4821", Password: "9937",
			VisitDate: day(2024, 1, 2), TestName: "HIV", StatusLabel: "Pending",
			DeliveryStatus: "not_delivered", Method: "phone", DeliveredAt: &firstDelivered,
			Message: "Your results are not ready yet.",
		},
		{
			ClinicCode: "DTC", PatientNumber: "P-100", Username: "4821", Password: "9937",
			VisitDate: day(2024, 1, 2), TestName: "HIV", StatusLabel: "Negative",
			DeliveryStatus: "delivered", Method: "phone", DeliveredAt: &secondDelivered,
			Message: "Your HIV result is negative.",
		},
	}

	svc := NewService(repo)
	rows, err := svc.VisitReport(context.Background(), VisitReportRequest{
		Range: TimeRange{From: day(2024, 1, 1), To: day(2024, 2, 1)},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected both result rows, got %d", len(rows))
	}
	if rows[0].StatusLabel != "Pending" || rows[1].StatusLabel != "Negative" {
		t.Fatalf("expected superseded row alongside the current one, got %+v", rows)
	}
}

func TestVisitReportRejectsBadRange(t *testing.T) {
	svc := NewService(seedRepo())
	_, err := svc.VisitReport(context.Background(), VisitReportRequest{
		Range: TimeRange{From: day(2024, 2, 1), To: day(2024, 1, 1)},
	})
	if err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestWriteCSV(t *testing.T) {
	svc := NewService(seedRepo())

	var buf bytes.Buffer
	n, err := svc.WriteCSV(context.Background(), &buf, VisitReportRequest{
		Range: TimeRange{From: day(2024, 1, 1), To: day(2024, 2, 1)},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows written, got %d", n)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines: %s", len(lines), buf.String())
	}
	if lines[0] != "clinic_code,patient_number,username,password,visit_date,test_name,status_label,delivery_status,method,delivered_at,message" {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if lines[1] != "DTC,P-100,4821,9937,2024-01-02,HIV,Negative,delivered,phone,2024-01-10T15:04:05Z,Your HIV result is negative." {
		t.Fatalf("unexpected delivered row: %s", lines[1])
	}
	if lines[2] != "DTC,P-101,7730,2218,2024-01-03,HIV,,not_yet_delivered,,," {
		t.Fatalf("unexpected undelivered row: %s", lines[2])
	}
}
