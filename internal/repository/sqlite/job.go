package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/repairdesk/internal/models"
)

// ErrJobNotFound is returned by UpdateStatus when no row matches the id.
var ErrJobNotFound = fmt.Errorf("job not found")

func (r *SQLiteRepo) CreateJob(ctx context.Context, j *models.Job) (string, error) {
	if j == nil {
		return "", fmt.Errorf("job is nil")
	}

	id := j.ID
	if id == "" {
		id = uuid.NewString()
	}
	status := j.Status
	if status == "" {
		status = models.StatusReceived
	}
	if !status.Valid() {
		return "", fmt.Errorf("invalid status %q", status)
	}
	created := j.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	// Walk-in jobs have no customer yet; NULL keeps the FK satisfied.
	var customerID any
	if j.CustomerID != "" {
		customerID = j.CustomerID
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO jobs (id, customer_id, device_model, device_issue, device_condition, serial_number, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, customerID, j.DeviceModel, j.DeviceIssue, j.DeviceCondition, j.SerialNumber, string(status), created.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	j.ID = id
	j.Status = status
	j.CreatedAt = created
	return id, nil
}

// ListJoined is the single fetch the tracker issues: all jobs joined with
// their customer, ordered newest first at the store level. COALESCE applies
// the placeholder defaults so callers never see empty identity fields.
func (r *SQLiteRepo) ListJoined(ctx context.Context) ([]models.Job, error) {
	rows, err := r.conn.QueryRows(ctx, `
		SELECT j.id, COALESCE(j.customer_id, ''),
		       COALESCE(c.name, ?), COALESCE(c.phoneno, ?), COALESCE(c.email, ?),
		       j.device_model, j.device_issue, j.device_condition, j.serial_number,
		       j.status, j.created_at
		FROM jobs j
		LEFT JOIN customers c ON c.id = j.customer_id
		ORDER BY j.created_at DESC`,
		models.UnknownCustomer, models.NotAvailable, models.NotAvailable)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		var (
			j       models.Job
			status  string
			created int64
		)
		if err := rows.Scan(&j.ID, &j.CustomerID, &j.CustomerName, &j.CustomerPhone, &j.CustomerEmail,
			&j.DeviceModel, &j.DeviceIssue, &j.DeviceCondition, &j.SerialNumber, &status, &created); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.Status = models.Status(status)
		j.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}

	return out, nil
}

func (r *SQLiteRepo) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	res, err := r.conn.Exec(ctx, `UPDATE jobs SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrJobNotFound
	}

	return nil
}
