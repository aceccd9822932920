package reporting

import (
	"context"
	"database/sql"
	"time"
)

// PostgresRepo reads report rows over database/sql.
//
// NOTE: Assumed schema additions over the core tables:
//
//	deliveries(id PK, method, message, delivered_at)
//	deliveries_results(delivery_id FK, result_id FK)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) ListRows(ctx context.Context, from, to time.Time, clinicCode string) ([]Row, error) {
	// One row per (visit, result, delivery). Superseded result rows are
	// included on purpose: older rows keep their own delivery history in
	// the export. Results that were never delivered keep NULL delivery
	// columns through the LEFT JOINs.
	const q = `
SELECT c.code, v.patient_number, v.username, v.password, v.visit_date,
       t.name, COALESCE(s.label, ''), res.delivery_status,
       COALESCE(d.method, ''), d.delivered_at, COALESCE(d.message, '')
FROM visits v
JOIN clinics c ON c.id = v.clinic_id
JOIN results res ON res.visit_id = v.id
JOIN tests t ON t.id = res.test_id
LEFT JOIN statuses s ON s.id = res.status_id
LEFT JOIN deliveries_results dr ON dr.result_id = res.id
LEFT JOIN deliveries d ON d.id = dr.delivery_id
WHERE v.visit_date >= $1 AND v.visit_date < $2
  AND ($3 = '' OR c.code = $3)
ORDER BY c.code, v.visit_date, v.username, t.name, res.created_at, d.delivered_at NULLS FIRST
`
	rows, err := r.db.QueryContext(ctx, q, from, to, clinicCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var deliveredAt sql.NullTime
		if err := rows.Scan(
			&row.ClinicCode, &row.PatientNumber, &row.Username, &row.Password,
			&row.VisitDate, &row.TestName, &row.StatusLabel, &row.DeliveryStatus,
			&row.Method, &deliveredAt, &row.Message,
		); err != nil {
			return nil, err
		}
		if deliveredAt.Valid {
			at := deliveredAt.Time
			row.DeliveredAt = &at
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
