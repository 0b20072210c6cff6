package repository

import (
	"context"

	"github.com/garnizeh/repairdesk/internal/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

type CustomerRepo interface {
	CreateCustomer(ctx context.Context, c *models.Customer) (string, error)
	// GetCustomerByPhone returns (nil, nil) when no customer has the phone;
	// absence is a normal branch at intake, not an error.
	GetCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error)
}

type JobRepo interface {
	CreateJob(ctx context.Context, j *models.Job) (string, error)
	// ListJoined returns every job joined with its customer identity fields,
	// ordered by created_at descending. Missing customer fields come back as
	// the placeholder values in models.
	ListJoined(ctx context.Context) ([]models.Job, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) error
}
