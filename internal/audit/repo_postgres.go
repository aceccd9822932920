package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends audit events over database/sql.
//
// NOTE: Assumed schema:
//
//	audit_events(id PK, type, ip_address, clinic_id NULL, visit_id NULL,
//	             message, metadata, created_at)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, type, ip_address, clinic_id, visit_id, message, metadata, created_at)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, string(e.Type), e.IPAddress, e.ClinicID, e.VisitID, e.Message, e.Metadata, e.CreatedAt)
	return err
}
