package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/garnizeh/repairdesk/internal/models"
)

// Store is an in-memory CustomerRepo + JobRepo for tests. Error fields, when
// set, are returned by the matching operation before any state change.
type Store struct {
	mu sync.Mutex

	Customers []models.Customer
	Jobs      []models.Job

	CreateCustomerErr error
	CreateJobErr      error
	ListErr           error
	UpdateErr         error

	ListCalls   int
	UpdateCalls int

	nextID int
}

func NewStore() *Store { return &Store{} }

func (s *Store) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s%d", prefix, s.nextID)
}

func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateCustomerErr != nil {
		return "", s.CreateCustomerErr
	}
	if c.ID == "" {
		c.ID = s.newID("cust-")
	}
	s.Customers = append(s.Customers, *c)
	return c.ID, nil
}

func (s *Store) GetCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Customers {
		if s.Customers[i].Phone == phone {
			c := s.Customers[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateJob(ctx context.Context, j *models.Job) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateJobErr != nil {
		return "", s.CreateJobErr
	}
	if j.ID == "" {
		j.ID = s.newID("job-")
	}
	if j.Status == "" {
		j.Status = models.StatusReceived
	}
	s.Jobs = append(s.Jobs, *j)
	return j.ID, nil
}

func (s *Store) ListJoined(ctx context.Context) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ListCalls++
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]models.Job, len(s.Jobs))
	copy(out, s.Jobs)
	return out, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdateCalls++
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	for i := range s.Jobs {
		if s.Jobs[i].ID == id {
			s.Jobs[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("job not found: %s", id)
}
