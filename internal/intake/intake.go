// Package intake turns a validated service-request form into a customer
// record (deduplicated by phone) and a new job with status received.
package intake

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"log/slog"

	"github.com/garnizeh/repairdesk/internal/models"
	"github.com/garnizeh/repairdesk/pkg/repository"
)

// ErrInvalidForm wraps every validation failure. Validation happens before
// any store call, so a rejected form has no side effects.
var ErrInvalidForm = errors.New("invalid intake form")

var phoneRe = regexp.MustCompile(`^\d{10}$`)

// Result identifies the records created (or reused) by a submission.
type Result struct {
	JobID      string `json:"job_id"`
	CustomerID string `json:"customer_id"`
}

type Service struct {
	customers repository.CustomerRepo
	jobs      repository.JobRepo
	logger    *slog.Logger
}

func NewService(customers repository.CustomerRepo, jobs repository.JobRepo, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{customers: customers, jobs: jobs, logger: logger}
}

// Validate checks the submission fields: name and phone are required, the
// phone must be exactly 10 digits, and the email (when present) must contain
// an "@".
func Validate(f models.IntakeForm) error {
	if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Phone) == "" {
		return fmt.Errorf("%w: name and phone number are required", ErrInvalidForm)
	}
	if !phoneRe.MatchString(f.Phone) {
		return fmt.Errorf("%w: phone number must be 10 digits", ErrInvalidForm)
	}
	if f.Email != "" && !strings.Contains(f.Email, "@") {
		return fmt.Errorf("%w: malformed email address", ErrInvalidForm)
	}
	return nil
}

// Submit validates the form, looks up or creates the customer by phone, and
// inserts the job. A missing customer is a normal branch, not an error.
func (s *Service) Submit(ctx context.Context, form models.IntakeForm) (*Result, error) {
	if err := Validate(form); err != nil {
		return nil, err
	}

	customer, err := s.customers.GetCustomerByPhone(ctx, form.Phone)
	if err != nil {
		return nil, fmt.Errorf("lookup customer: %w", err)
	}

	var customerID string
	if customer != nil {
		customerID = customer.ID
	} else {
		c := &models.Customer{Name: form.Name, Phone: form.Phone, Email: form.Email}
		customerID, err = s.customers.CreateCustomer(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("create customer: %w", err)
		}
		s.logger.Info("customer created", "id", customerID)
	}

	job := &models.Job{
		CustomerID:      customerID,
		DeviceModel:     form.DeviceModel,
		DeviceIssue:     form.DeviceIssue,
		DeviceCondition: form.DeviceCondition,
		SerialNumber:    form.SerialNumber,
		Status:          models.StatusReceived,
	}
	jobID, err := s.jobs.CreateJob(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.logger.Info("service request submitted", "job_id", jobID, "customer_id", customerID)
	return &Result{JobID: jobID, CustomerID: customerID}, nil
}
