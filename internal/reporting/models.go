package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// VisitReportRequest requests the visit delivery report. ClinicCode is
// optional; empty means all clinics.

type VisitReportRequest struct {
	Range      TimeRange `json:"range"`
	ClinicCode string    `json:"clinic_code,omitempty"`
}

// Row is one line of the visit delivery report: a (visit, result, delivery)
// triple. Superseded result rows appear alongside the current one, each with
// its own delivery history; a result that was never spoken to the caller has
// no delivery columns.
type Row struct {
	ClinicCode     string     `json:"clinic_code"`
	PatientNumber  string     `json:"patient_number"`
	Username       string     `json:"username"`
	Password       string     `json:"password"`
	VisitDate      time.Time  `json:"visit_date"`
	TestName       string     `json:"test_name"`
	StatusLabel    string     `json:"status_label"`
	DeliveryStatus string     `json:"delivery_status"`
	Method         string     `json:"method,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	Message        string     `json:"message,omitempty"`
}
