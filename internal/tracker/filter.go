package tracker

import (
	"sort"
	"strings"
	"time"

	"github.com/garnizeh/repairdesk/internal/models"
)

// StatusAll is the status criterion that keeps every job.
const StatusAll = "all"

type DateRange string

const (
	RangeAll   DateRange = "all"
	RangeToday DateRange = "today"
	RangeWeek  DateRange = "week"
	RangeMonth DateRange = "month"
)

type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
	SortStatus SortOrder = "status"
)

// Criteria is the ephemeral, client-held filter state. The derived view is
// always a pure function of (raw collection, Criteria, evaluation time).
type Criteria struct {
	Query     string    `json:"query"`
	Status    string    `json:"status"`
	DateRange DateRange `json:"dateRange"`
	SortBy    SortOrder `json:"sortBy"`
}

// DefaultCriteria matches everything, newest first.
func DefaultCriteria() Criteria {
	return Criteria{Status: StatusAll, DateRange: RangeAll, SortBy: SortNewest}
}

// Derive applies the filter stages in fixed order (text, status, date range,
// sort) and returns a new ordered slice. The input is never mutated and the
// output is always a subset of it; calling twice with the same inputs yields
// identical output.
func Derive(jobs []models.Job, c Criteria, now time.Time) []models.Job {
	result := make([]models.Job, len(jobs))
	copy(result, jobs)

	if q := strings.ToLower(strings.TrimSpace(c.Query)); q != "" {
		kept := result[:0]
		for _, j := range result {
			if matchesQuery(j, q) {
				kept = append(kept, j)
			}
		}
		result = kept
	}

	if c.Status != "" && c.Status != StatusAll {
		kept := result[:0]
		for _, j := range result {
			if string(j.Status) == c.Status {
				kept = append(kept, j)
			}
		}
		result = kept
	}

	switch c.DateRange {
	case RangeToday:
		kept := result[:0]
		for _, j := range result {
			if sameDay(j.CreatedAt, now) {
				kept = append(kept, j)
			}
		}
		result = kept
	case RangeWeek:
		result = keepSince(result, now.AddDate(0, 0, -7))
	case RangeMonth:
		result = keepSince(result, now.AddDate(0, -1, 0))
	}

	switch c.SortBy {
	case SortOldest:
		sort.SliceStable(result, func(i, k int) bool {
			return result[i].CreatedAt.Before(result[k].CreatedAt)
		})
	case SortStatus:
		sort.SliceStable(result, func(i, k int) bool {
			return result[i].Status < result[k].Status
		})
	default: // SortNewest
		sort.SliceStable(result, func(i, k int) bool {
			return result[i].CreatedAt.After(result[k].CreatedAt)
		})
	}

	return result
}

// matchesQuery checks the lowercased query as a substring across the job id,
// customer name, customer phone, device model and serial number.
func matchesQuery(j models.Job, q string) bool {
	for _, field := range []string{j.ID, j.CustomerName, j.CustomerPhone, j.DeviceModel, j.SerialNumber} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// sameDay reports whether t falls on the same calendar day as now, evaluated
// in now's location.
func sameDay(t, now time.Time) bool {
	y1, m1, d1 := t.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// keepSince keeps jobs created at or after the cutoff (inclusive lower bound).
func keepSince(jobs []models.Job, cutoff time.Time) []models.Job {
	kept := jobs[:0]
	for _, j := range jobs {
		if !j.CreatedAt.Before(cutoff) {
			kept = append(kept, j)
		}
	}
	return kept
}
