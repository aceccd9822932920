package clinic

import (
	"strings"
	"time"

	"results-hotline/internal/locale"
)

// Clinic is a soft-deletable clinic record.
//
// Invariants:
// - Code is write-once: it is assigned at creation and can never change.
// - Name and Code are unique among clinics.
// - Hours carries exactly one text per supported language.
type Clinic struct {
	ID   string `json:"id" db:"id"`
	Code string `json:"code" db:"code"`
	Name string `json:"name" db:"name"`

	HoursEnglish string `json:"hours_english" db:"hours_english"`
	HoursSpanish string `json:"hours_spanish" db:"hours_spanish"`

	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Hours returns the clinic hours text for a language, degrading with the
// locale default rather than failing.
func (c Clinic) Hours(l locale.Language) string {
	switch locale.Resolve(l) {
	case locale.Spanish:
		return c.HoursSpanish
	default:
		return c.HoursEnglish
	}
}

func (c Clinic) Deleted() bool { return c.DeletedAt != nil }

// Visit is one patient visit. Credentials are the keypad-entered
// (username, password) pair; uniqueness is scoped to the pair, not to the
// clinic.
type Visit struct {
	ID            string    `json:"id" db:"id"`
	ClinicID      string    `json:"clinic_id" db:"clinic_id"`
	PatientNumber string    `json:"patient_number" db:"patient_number"`
	Username      string    `json:"username" db:"username"`
	Password      string    `json:"password" db:"password"`
	VisitDate     time.Time `json:"visit_date" db:"visit_date"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Test is a clinical test type (e.g. HIV, Hepatitis C).
type Test struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Status is a clinical result status label, unique case-insensitively.
type Status struct {
	ID    string `json:"id" db:"id"`
	Label string `json:"label" db:"label"`
}

// Reserved status labels that drive message-branch selection.
const (
	StatusLabelPending  = "Pending"
	StatusLabelComeBack = "Come back to clinic"
)

func (s Status) IsPending() bool  { return strings.EqualFold(s.Label, StatusLabelPending) }
func (s Status) IsComeBack() bool { return strings.EqualFold(s.Label, StatusLabelComeBack) }

// DeliveryStatus tracks whether and how a result's message reached the
// patient.
type DeliveryStatus string

const (
	// DeliveryStatusPendingDelivery marks a result not yet delivered.
	DeliveryStatusPendingDelivery DeliveryStatus = "not_yet_delivered"
	// DeliveryStatusNotDelivered marks a result whose delivery attempt hit a
	// failed condition (malformed record, pending status, missing template).
	DeliveryStatusNotDelivered DeliveryStatus = "not_delivered"
	// DeliveryStatusComeBack marks a result whose caller was told to return
	// to the clinic.
	DeliveryStatusComeBack DeliveryStatus = "come_back_to_clinic"
	// DeliveryStatusDelivered marks a fully delivered result.
	DeliveryStatusDelivered DeliveryStatus = "delivered"
)

// Result is one result row for a (visit, test) pair. A visit may accumulate
// several rows per test; only the most recently created one is current for
// messaging, older rows stay for audit and reporting.
//
// Status is nil when the record is malformed (no status attached).
type Result struct {
	ID      string `json:"id" db:"id"`
	VisitID string `json:"visit_id" db:"visit_id"`

	Test   Test    `json:"test"`
	Status *Status `json:"status,omitempty"`

	DeliveryStatus DeliveryStatus `json:"delivery_status" db:"delivery_status"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// Delivery is an immutable record of one successful message transmission.
// It associates with one or more results; repeated deliveries append new
// records and never overwrite prior ones.
type Delivery struct {
	ID          string    `json:"id" db:"id"`
	Method      string    `json:"method" db:"method"`
	Message     string    `json:"message" db:"message"`
	DeliveredAt time.Time `json:"delivered_at" db:"delivered_at"`
}
