package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/pks-portal/pkg/mailer/templates"
)

type sentMail struct{ to, subject, text, html string }

type fakeSender struct {
	err  error
	sent []sentMail
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, html string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, text, html})
	return nil
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestWorker_Process(t *testing.T) {
	reset := EmailJob{
		To:       "budi@example.com",
		Template: templates.ForgotPassword,
		Data:     templates.NewForgotPasswordData(templates.Brand{AppName: "PKS Portal"}, "Budi", "budi@example.com", "https://x/reset?token=abc", time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)),
	}

	tests := []struct {
		name    string
		body    []byte
		sendErr error
		want    Outcome
		sent    int
	}{
		{name: "template job is rendered and sent", body: mustJSON(t, reset), want: Ack, sent: 1},
		{name: "raw job is sent", body: mustJSON(t, EmailJob{To: "a@example.com", Subject: "hi", Text: "x"}), want: Ack, sent: 1},
		{name: "malformed json is dropped", body: []byte(`{"to":`), want: Drop},
		{name: "unknown template is dropped", body: mustJSON(t, EmailJob{To: "a@example.com", Template: "nope"}), want: Drop},
		{name: "missing recipient is dropped", body: mustJSON(t, EmailJob{Subject: "hi", Text: "x"}), want: Drop},
		{name: "send failure is retried", body: mustJSON(t, reset), sendErr: errors.New("mailgun down"), want: Retry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSender{err: tt.sendErr}
			got := NewWorker(s, nil).Process(context.Background(), tt.body)
			assert.Equal(t, tt.want, got)
			assert.Len(t, s.sent, tt.sent)
		})
	}
}

func TestWorker_FillsRecipientIntoTemplate(t *testing.T) {
	s := &fakeSender{}
	job := EmailJob{
		To:       "budi@example.com",
		Template: templates.ForgotPassword,
		Data:     map[string]any{"Name": "Budi", "ResetURL": "https://x/reset?token=abc"},
	}
	require.Equal(t, Ack, NewWorker(s, nil).Process(context.Background(), mustJSON(t, job)))
	require.Len(t, s.sent, 1)
	assert.Equal(t, "budi@example.com", s.sent[0].to)
	assert.Contains(t, s.sent[0].text, "https://x/reset?token=abc")
}
