// Package share renders the shareable service-request document and builds
// the links used to hand it to the customer.
package share

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/garnizeh/repairdesk/internal/models"
)

// DocumentData feeds the service-request template.
type DocumentData struct {
	Form       models.IntakeForm
	JobID      string
	CustomerID string
}

const documentTemplate = `<!DOCTYPE html>
<html>
  <head>
    <style>
      body { font-family: Arial, sans-serif; padding: 20px; }
      .header { text-align: center; margin-bottom: 30px; }
      .section { margin-bottom: 20px; }
      .section-title { font-weight: bold; margin-bottom: 10px; }
      .field { margin-bottom: 10px; }
      .label { font-weight: bold; }
    </style>
  </head>
  <body>
    <div class="header">
      <h1>Mobile Service Center - Service Request</h1>
      <p>Job ID: {{.JobID}} | Customer ID: {{.CustomerID}}</p>
    </div>

    <div class="section">
      <div class="section-title">Customer Information</div>
      <div class="field"><span class="label">Name:</span> {{.Form.Name}}</div>
      <div class="field"><span class="label">Phone:</span> {{.Form.Phone}}</div>
      <div class="field"><span class="label">Email:</span> {{if .Form.Email}}{{.Form.Email}}{{else}}Not provided{{end}}</div>
    </div>

    <div class="section">
      <div class="section-title">Device Information</div>
      <div class="field"><span class="label">Device Model:</span> {{.Form.DeviceModel}}</div>
      <div class="field"><span class="label">Serial Number/IMEI:</span> {{.Form.SerialNumber}}</div>
      <div class="field"><span class="label">Device Condition:</span> {{.Form.DeviceCondition}}</div>
      <div class="field"><span class="label">Issue Description:</span> {{.Form.DeviceIssue}}</div>
    </div>
  </body>
</html>
`

var docTmpl = template.Must(template.New("service-request").Parse(documentTemplate))

// RenderDocument produces the HTML service-request document.
func RenderDocument(data DocumentData) (string, error) {
	var b strings.Builder
	if err := docTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render service request: %w", err)
	}
	return b.String(), nil
}

// MailtoLink builds a mailto URL prefilled with the service-request subject.
func MailtoLink(email, jobID string) string {
	q := url.Values{}
	q.Set("subject", fmt.Sprintf("Mobile Service Request - Job #%s", jobID))
	q.Set("body", "Please find attached your service request details.")
	return "mailto:" + email + "?" + q.Encode()
}

// WhatsAppLink builds the whatsapp deep link for a phone number, stripping
// every non-digit first.
func WhatsAppLink(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return "whatsapp://send?phone=" + digits.String()
}
