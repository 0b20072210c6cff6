package models

import "time"

// Status is the canonical lifecycle tag on a job. Stable values, stored
// verbatim in the jobs table.
type Status string

const (
	StatusReceived   Status = "received"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusOnHold     Status = "on-hold"
)

// Statuses lists every status in presentation order.
var Statuses = []Status{StatusReceived, StatusInProgress, StatusCompleted, StatusOnHold}

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusReceived, StatusInProgress, StatusCompleted, StatusOnHold:
		return true
	}
	return false
}

// CanTransition reports whether a job may move from s to next. The workshop
// workflow is deliberately unconstrained: any known status may move to any
// other known status, and there is no terminal state.
func (s Status) CanTransition(next Status) bool {
	return s.Valid() && next.Valid()
}

// Placeholder values used when the customer join yields no row.
const (
	UnknownCustomer = "Unknown Customer"
	NotAvailable    = "N/A"
)

// Customer is an identity record, deduplicated by phone number at intake.
type Customer struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phoneno" db:"phoneno"`
	Email     string    `json:"email,omitempty" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Job is a service-ticket record. Customer* fields are read-only projections
// of the related customer, resolved at fetch time via join.
type Job struct {
	ID              string    `json:"id" db:"id"`
	CustomerID      string    `json:"customer_id" db:"customer_id"`
	CustomerName    string    `json:"customer_name"`
	CustomerPhone   string    `json:"customer_phone"`
	CustomerEmail   string    `json:"customer_email"`
	DeviceModel     string    `json:"device_model" db:"device_model"`
	DeviceIssue     string    `json:"device_issue" db:"device_issue"`
	DeviceCondition string    `json:"device_condition" db:"device_condition"`
	SerialNumber    string    `json:"serial_number" db:"serial_number"`
	Status          Status    `json:"status" db:"status"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Functionality holds the intake checklist flags.
type Functionality struct {
	ChargingPort  bool `json:"chargingPort"`
	ScreenDisplay bool `json:"screenDisplay"`
	IsCharging    bool `json:"isCharging"`
	CameraWorking bool `json:"cameraWorking"`
	AudioWorking  bool `json:"audioWorking"`
}

// IntakeForm is a validated service-request submission.
type IntakeForm struct {
	Name            string        `json:"name"`
	Phone           string        `json:"phoneno"`
	Email           string        `json:"email,omitempty"`
	DeviceModel     string        `json:"deviceModel"`
	DeviceIssue     string        `json:"deviceIssue"`
	DeviceCondition string        `json:"deviceCondition"`
	SerialNumber    string        `json:"serialNumber"`
	DeviceType      string        `json:"deviceType"`
	Functionality   Functionality `json:"deviceFunctionality"`
}
