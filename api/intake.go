package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/repairdesk/internal/intake"
	"github.com/garnizeh/repairdesk/internal/models"
	"github.com/garnizeh/repairdesk/internal/share"
	"github.com/garnizeh/repairdesk/internal/tracker"
)

// intakeSchema rejects structurally broken submissions before the service
// runs its own field validation.
const intakeSchema = `{
  "type": "object",
  "required": ["name", "phoneno"],
  "properties": {
    "name": {"type": "string"},
    "phoneno": {"type": "string"},
    "email": {"type": "string"},
    "deviceModel": {"type": "string"},
    "deviceIssue": {"type": "string"},
    "deviceCondition": {"type": "string"},
    "serialNumber": {"type": "string"},
    "deviceType": {"type": "string"},
    "deviceFunctionality": {
      "type": "object",
      "properties": {
        "chargingPort": {"type": "boolean"},
        "screenDisplay": {"type": "boolean"},
        "isCharging": {"type": "boolean"},
        "cameraWorking": {"type": "boolean"},
        "audioWorking": {"type": "boolean"}
      }
    }
  }
}`

type IntakeHandler struct {
	svc    *intake.Service
	ctrl   *tracker.Controller
	queue  func(r *http.Request, payload share.DocumentPayload)
	schema *jsonschema.Schema
}

// NewIntakeHandler wires the intake service into the HTTP surface. enqueue
// may be nil when no share queue is running (tests); ctrl may be nil when no
// tracker should be refreshed after a submission.
func NewIntakeHandler(svc *intake.Service, ctrl *tracker.Controller, enqueue func(r *http.Request, payload share.DocumentPayload)) *IntakeHandler {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(intakeSchema), rs); err != nil {
		panic("intake schema does not compile: " + err.Error())
	}
	return &IntakeHandler{svc: svc, ctrl: ctrl, queue: enqueue, schema: rs}
}

// intakeResponse carries the created record IDs plus the share links the
// client hands to the customer. The mailto link is present only when the
// submission included an email address.
type intakeResponse struct {
	JobID        string `json:"job_id"`
	CustomerID   string `json:"customer_id"`
	MailtoLink   string `json:"mailto_link,omitempty"`
	WhatsAppLink string `json:"whatsapp_link"`
}

// Submit validates and stores a service request, then hands the share
// document off to the background queue.
func (h *IntakeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	keyErrs, err := h.schema.ValidateBytes(ctx, body)
	if err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(keyErrs) > 0 {
		http.Error(w, "invalid submission: "+keyErrs[0].Message, http.StatusBadRequest)
		return
	}

	var form models.IntakeForm
	if err := json.Unmarshal(body, &form); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	res, err := h.svc.Submit(ctx, form)
	if err != nil {
		if errors.Is(err, intake.ErrInvalidForm) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "failed to submit service request", http.StatusInternalServerError)
		return
	}

	if h.queue != nil {
		h.queue(r, share.DocumentPayload{Form: form, JobID: res.JobID, CustomerID: res.CustomerID})
	}

	if h.ctrl != nil {
		// keep the materialized job list in step with the new record; the
		// submission already succeeded, so a fetch failure is not fatal here
		if err := h.ctrl.Refresh(ctx); err != nil {
			logger.Error("refresh after intake", "err", err)
		}
	}

	out := intakeResponse{
		JobID:        res.JobID,
		CustomerID:   res.CustomerID,
		WhatsAppLink: share.WhatsAppLink(form.Phone),
	}
	if form.Email != "" {
		out.MailtoLink = share.MailtoLink(form.Email, res.JobID)
	}
	writeJSON(w, out, http.StatusCreated)
}
