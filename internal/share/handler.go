package share

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"log/slog"

	"github.com/garnizeh/repairdesk/internal/models"
	"github.com/garnizeh/repairdesk/internal/queue"
)

// TaskDocument is the queue task type for service-request document rendering.
const TaskDocument = "share.document"

// DocumentPayload is the queue payload enqueued by the intake handler.
type DocumentPayload struct {
	Form       models.IntakeForm `json:"form"`
	JobID      string            `json:"job_id"`
	CustomerID string            `json:"customer_id"`
}

// NewDocumentHandler returns a queue handler that renders the service-request
// document for a submission into dir, named after the job id.
func NewDocumentHandler(dir string, logger *slog.Logger) queue.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *queue.Task) error {
		var p DocumentPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("decode document payload: %w", err)
		}
		if p.JobID == "" {
			return fmt.Errorf("document payload missing job id")
		}

		doc, err := RenderDocument(DocumentData{Form: p.Form, JobID: p.JobID, CustomerID: p.CustomerID})
		if err != nil {
			return err
		}

		path := filepath.Join(dir, "service-request-"+p.JobID+".html")
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			return fmt.Errorf("write service request document: %w", err)
		}

		logger.Info("service request document rendered", "job_id", p.JobID, "path", path)
		return nil
	}
}
