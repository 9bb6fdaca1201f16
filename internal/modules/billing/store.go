// README: Billing report archive backed by PostgreSQL.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleetops/internal/modules/fleet"
	"fleetops/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// SaveReport writes the report header, its per-driver rows and the full payload in one
// transaction and sets r.ID.
func (s *Store) SaveReport(ctx context.Context, r *Report) error {
	from, err := time.Parse(fleet.DateLayout, r.From)
	if err != nil {
		return fmt.Errorf("report from: %w", err)
	}
	to, err := time.Parse(fleet.DateLayout, r.To)
	if err != nil {
		return fmt.Errorf("report to: %w", err)
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx, `
        INSERT INTO billing_reports (
            from_date, to_date, generated_at, drivers, rides, amount_cents, payload
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id`,
		from, to, r.GeneratedAt,
		r.Totals.Drivers, r.Totals.Rides, int64(r.Totals.Amount),
		string(payload),
	).Scan(&id)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, d := range r.Drivers {
		batch.Queue(`
            INSERT INTO billing_report_drivers (
                report_id, driver_id, driver_name,
                finished_count, no_show_count, driver_canceled_count, total_cents
            ) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, int64(d.DriverID), d.DriverName,
			d.FinishedCount, d.NoShowCount, d.DriverCanceledCount, int64(d.TotalAmount),
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	r.ID = id
	return nil
}

func (s *Store) ListReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, from_date, to_date, generated_at, drivers, rides, amount_cents
        FROM billing_reports
        ORDER BY generated_at DESC, id DESC
        LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportSummary
	for rows.Next() {
		var rs ReportSummary
		var from, to time.Time
		var cents int64
		if err := rows.Scan(&rs.ID, &from, &to, &rs.GeneratedAt, &rs.Drivers, &rs.Rides, &cents); err != nil {
			return nil, err
		}
		rs.From = from.Format(fleet.DateLayout)
		rs.To = to.Format(fleet.DateLayout)
		rs.Amount = types.Money(cents)
		out = append(out, rs)
	}
	return out, rows.Err()
}

// DriverTotals returns the archived per-driver rows of one report in driver id order.
func (s *Store) DriverTotals(ctx context.Context, reportID int64) ([]DriverBilling, error) {
	rows, err := s.db.Query(ctx, `
        SELECT driver_id, driver_name, finished_count, no_show_count, driver_canceled_count, total_cents
        FROM billing_report_drivers
        WHERE report_id = $1
        ORDER BY driver_id`, reportID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DriverBilling
	for rows.Next() {
		var d DriverBilling
		var id, cents int64
		if err := rows.Scan(&id, &d.DriverName, &d.FinishedCount, &d.NoShowCount, &d.DriverCanceledCount, &cents); err != nil {
			return nil, err
		}
		d.DriverID = types.ID(id)
		d.TotalAmount = types.Money(cents)
		out = append(out, d)
	}
	return out, rows.Err()
}
