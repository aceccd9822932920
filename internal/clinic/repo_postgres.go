package clinic

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"results-hotline/pkg/utils"

	"github.com/google/uuid"
)

// PostgresRepo implements Repository over database/sql.
//
// NOTE: Assumed schema:
//
//	clinics(id PK, code UNIQUE, name UNIQUE, hours_english, hours_spanish,
//	        deleted_at NULL, created_at, updated_at)
//	visits(id PK, clinic_id FK, patient_number, username, password,
//	       visit_date, created_at, UNIQUE (username, password))
//	tests(id PK, name UNIQUE)
//	statuses(id PK, label, UNIQUE (LOWER(label)))
//	results(id PK, visit_id FK, test_id FK, status_id NULL FK,
//	        delivery_status, created_at)
type PostgresRepo struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, clock: time.Now}
}

func (r *PostgresRepo) CreateClinic(ctx context.Context, c Clinic) (Clinic, error) {
	if err := ValidateClinic(c); err != nil {
		return Clinic{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := r.clock().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	const q = `
INSERT INTO clinics (id, code, name, hours_english, hours_spanish, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	if _, err := r.db.ExecContext(ctx, q, c.ID, c.Code, c.Name, c.HoursEnglish, c.HoursSpanish, c.CreatedAt, c.UpdatedAt); err != nil {
		if utils.IsUniqueViolation(err) {
			return Clinic{}, ErrDuplicate
		}
		return Clinic{}, err
	}
	return c, nil
}

func (r *PostgresRepo) UpdateClinic(ctx context.Context, c Clinic) (Clinic, error) {
	if err := ValidateClinic(c); err != nil {
		return Clinic{}, err
	}
	existing, err := r.ClinicByID(ctx, c.ID)
	if err != nil {
		return Clinic{}, err
	}
	if existing.Code != c.Code {
		return Clinic{}, ErrCodeImmutable
	}

	c.UpdatedAt = r.clock().UTC()
	const q = `
UPDATE clinics
SET name = $2, hours_english = $3, hours_spanish = $4, updated_at = $5
WHERE id = $1
`
	if _, err := r.db.ExecContext(ctx, q, c.ID, c.Name, c.HoursEnglish, c.HoursSpanish, c.UpdatedAt); err != nil {
		if utils.IsUniqueViolation(err) {
			return Clinic{}, ErrDuplicate
		}
		return Clinic{}, err
	}
	c.Code = existing.Code
	c.CreatedAt = existing.CreatedAt
	c.DeletedAt = existing.DeletedAt
	return c, nil
}

func (r *PostgresRepo) SoftDeleteClinic(ctx context.Context, id string) error {
	now := r.clock().UTC()
	const q = `
UPDATE clinics
SET deleted_at = $2, updated_at = $2
WHERE id = $1 AND deleted_at IS NULL
`
	res, err := r.db.ExecContext(ctx, q, id, now)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const clinicColumns = `id, code, name, hours_english, hours_spanish, deleted_at, created_at, updated_at`

func (r *PostgresRepo) FindClinicByCode(ctx context.Context, code string, includeDeleted bool) (Clinic, error) {
	q := `SELECT ` + clinicColumns + ` FROM clinics WHERE code = $1`
	if !includeDeleted {
		q += ` AND deleted_at IS NULL`
	}
	return scanClinic(r.db.QueryRowContext(ctx, q, code))
}

func (r *PostgresRepo) ListClinics(ctx context.Context, includeDeleted bool) ([]Clinic, error) {
	q := `SELECT ` + clinicColumns + ` FROM clinics`
	if !includeDeleted {
		q += ` WHERE deleted_at IS NULL`
	}
	q += ` ORDER BY code`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Clinic
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ClinicByID(ctx context.Context, id string) (Clinic, error) {
	// No deletion filter: visits at soft-deleted clinics stay reachable.
	q := `SELECT ` + clinicColumns + ` FROM clinics WHERE id = $1`
	return scanClinic(r.db.QueryRowContext(ctx, q, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClinic(row rowScanner) (Clinic, error) {
	var c Clinic
	var deleted sql.NullTime
	if err := row.Scan(&c.ID, &c.Code, &c.Name, &c.HoursEnglish, &c.HoursSpanish, &deleted, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Clinic{}, ErrNotFound
		}
		return Clinic{}, err
	}
	if deleted.Valid {
		t := deleted.Time
		c.DeletedAt = &t
	}
	return c, nil
}

func (r *PostgresRepo) CreateVisit(ctx context.Context, v Visit) (Visit, error) {
	if err := ValidateVisit(v); err != nil {
		return Visit{}, err
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CreatedAt = r.clock().UTC()

	const q = `
INSERT INTO visits (id, clinic_id, patient_number, username, password, visit_date, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	if _, err := r.db.ExecContext(ctx, q, v.ID, v.ClinicID, v.PatientNumber, v.Username, v.Password, v.VisitDate, v.CreatedAt); err != nil {
		if utils.IsUniqueViolation(err) {
			return Visit{}, ErrDuplicate
		}
		return Visit{}, err
	}
	return v, nil
}

const visitColumns = `id, clinic_id, patient_number, username, password, visit_date, created_at`

func (r *PostgresRepo) FindVisitByUsername(ctx context.Context, username string) (Visit, error) {
	const q = `SELECT ` + visitColumns + ` FROM visits WHERE username = $1 ORDER BY created_at DESC LIMIT 1`
	return scanVisit(r.db.QueryRowContext(ctx, q, username))
}

func (r *PostgresRepo) FindVisitByCredentials(ctx context.Context, username, password string) (Visit, error) {
	const q = `SELECT ` + visitColumns + ` FROM visits WHERE username = $1 AND password = $2`
	return scanVisit(r.db.QueryRowContext(ctx, q, username, password))
}

func scanVisit(row rowScanner) (Visit, error) {
	var v Visit
	if err := row.Scan(&v.ID, &v.ClinicID, &v.PatientNumber, &v.Username, &v.Password, &v.VisitDate, &v.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Visit{}, ErrNotFound
		}
		return Visit{}, err
	}
	return v, nil
}

// LatestResultsByTest fetches the most recent result per test in one query,
// joining test and status rows to avoid per-result round trips.
func (r *PostgresRepo) LatestResultsByTest(ctx context.Context, visitID string) ([]Result, error) {
	const q = `
SELECT DISTINCT ON (res.test_id)
       res.id, res.visit_id, res.delivery_status, res.created_at,
       t.id, t.name,
       s.id, s.label
FROM results res
JOIN tests t ON t.id = res.test_id
LEFT JOIN statuses s ON s.id = res.status_id
WHERE res.visit_id = $1
ORDER BY res.test_id, res.created_at DESC, res.id DESC
`
	rows, err := r.db.QueryContext(ctx, q, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var res Result
		var statusID, statusLabel sql.NullString
		if err := rows.Scan(
			&res.ID, &res.VisitID, &res.DeliveryStatus, &res.CreatedAt,
			&res.Test.ID, &res.Test.Name,
			&statusID, &statusLabel,
		); err != nil {
			return nil, err
		}
		if statusID.Valid {
			res.Status = &Status{ID: statusID.String, Label: statusLabel.String}
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) CreateStatus(ctx context.Context, s Status) (Status, error) {
	if s.Label == "" {
		return Status{}, ErrInvalid
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	const q = `INSERT INTO statuses (id, label) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, q, s.ID, s.Label); err != nil {
		if utils.IsUniqueViolation(err) {
			return Status{}, ErrDuplicate
		}
		return Status{}, err
	}
	return s, nil
}

func (r *PostgresRepo) FindStatusByLabel(ctx context.Context, label string) (Status, error) {
	const q = `SELECT id, label FROM statuses WHERE LOWER(label) = LOWER($1)`
	var s Status
	if err := r.db.QueryRowContext(ctx, q, label).Scan(&s.ID, &s.Label); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Status{}, ErrNotFound
		}
		return Status{}, err
	}
	return s, nil
}
