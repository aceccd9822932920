package delivery

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"results-hotline/internal/clinic"
	"results-hotline/pkg/utils"

	"github.com/google/uuid"
)

// PostgresRecorder implements Recorder over database/sql.
//
// NOTE: Assumed schema:
//
//	deliveries(id PK, method, message, delivered_at)
//	deliveries_results(delivery_id FK, result_id FK,
//	                   PRIMARY KEY (delivery_id, result_id))
//
// deliveries is INSERT-only; associations are additive.
type PostgresRecorder struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db, clock: time.Now}
}

func (r *PostgresRecorder) Record(ctx context.Context, req RecordRequest) (clinic.Delivery, error) {
	if err := req.validate(); err != nil {
		return clinic.Delivery{}, err
	}

	at := req.At
	if at.IsZero() {
		at = r.clock()
	}
	d := clinic.Delivery{
		ID:          uuid.NewString(),
		Method:      req.Method,
		Message:     req.Message,
		DeliveredAt: at.UTC(),
	}

	// Deterministic update order keeps concurrent recordings deadlock-free.
	ids := make([]string, 0, len(req.Statuses))
	for id := range req.Statuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if err := insertDelivery(ctx, tx, d); err != nil {
			return err
		}
		for _, resultID := range ids {
			if err := attachDelivery(ctx, tx, d.ID, resultID); err != nil {
				return err
			}
			if err := updateDeliveryStatus(ctx, tx, resultID, req.Statuses[resultID]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return clinic.Delivery{}, err
	}
	return d, nil
}

func insertDelivery(ctx context.Context, tx *sql.Tx, d clinic.Delivery) error {
	const q = `
INSERT INTO deliveries (id, method, message, delivered_at)
VALUES ($1, $2, $3, $4)
`
	_, err := tx.ExecContext(ctx, q, d.ID, d.Method, d.Message, d.DeliveredAt)
	return err
}

func attachDelivery(ctx context.Context, tx *sql.Tx, deliveryID, resultID string) error {
	const q = `
INSERT INTO deliveries_results (delivery_id, result_id)
VALUES ($1, $2)
`
	_, err := tx.ExecContext(ctx, q, deliveryID, resultID)
	return err
}

func updateDeliveryStatus(ctx context.Context, tx *sql.Tx, resultID string, st clinic.DeliveryStatus) error {
	const q = `
UPDATE results
SET delivery_status = $2
WHERE id = $1
`
	res, err := tx.ExecContext(ctx, q, resultID, st)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return clinic.ErrNotFound
	}
	return nil
}
