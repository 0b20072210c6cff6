package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/repairdesk/internal/models"
)

func (r *SQLiteRepo) CreateCustomer(ctx context.Context, c *models.Customer) (string, error) {
	if c == nil {
		return "", fmt.Errorf("customer is nil")
	}

	id := c.ID
	if id == "" {
		id = uuid.NewString()
	}
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	var email any
	if c.Email != "" {
		email = c.Email
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO customers (id, name, phoneno, email, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, c.Name, c.Phone, email, created.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}

	c.ID = id
	c.CreatedAt = created
	return id, nil
}

func (r *SQLiteRepo) GetCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, name, phoneno, email, created_at FROM customers WHERE phoneno = ?`, phone)

	var (
		c       models.Customer
		email   sql.NullString
		created int64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &email, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("get customer by phone: %w", err)
	}

	if email.Valid {
		c.Email = email.String
	}
	c.CreatedAt = time.UnixMilli(created).UTC()

	return &c, nil
}
