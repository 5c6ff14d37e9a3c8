package mailer

import (
	"errors"
	"strings"

	"github.com/oksasatya/pks-portal/pkg/mailer/templates"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either Template+Data or Subject with Text/HTML must be set.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // "verify_email" or "forgot_password"
	Data     map[string]any `json:"data,omitempty"`
}

var ErrInvalidJob = errors.New("mailer: invalid email job")

// Resolve renders the job's template when one is set and returns subject, text and html.
func (j EmailJob) Resolve() (subject, text, html string, err error) {
	if strings.TrimSpace(j.To) == "" {
		return "", "", "", ErrInvalidJob
	}
	if j.Template != "" {
		if !templates.Known(j.Template) {
			return "", "", "", ErrInvalidJob
		}
		j.ensureRecipient()
		return templates.Render(j.Template, j.Data)
	}
	if j.Subject == "" || (j.Text == "" && j.HTML == "") {
		return "", "", "", ErrInvalidJob
	}
	return j.Subject, j.Text, j.HTML, nil
}

func (j *EmailJob) ensureRecipient() {
	if j.Data == nil {
		j.Data = map[string]any{}
	}
	for _, k := range []string{"Email", "RecipientEmail"} {
		if v, ok := j.Data[k].(string); !ok || v == "" {
			j.Data[k] = j.To
		}
	}
}
