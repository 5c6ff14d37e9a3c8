package mailer

import (
	"context"
	"encoding/json"
	"io"

	"github.com/sirupsen/logrus"
)

// Outcome tells the consumer how to settle a delivery.
type Outcome int

const (
	Ack Outcome = iota
	// Drop rejects a message that can never succeed.
	Drop
	// Retry puts the message back on the queue.
	Retry
)

// Worker turns queued EmailJob payloads into sent emails.
type Worker struct {
	Sender Sender
	Logger *logrus.Logger
}

func NewWorker(sender Sender, logger *logrus.Logger) *Worker {
	return &Worker{Sender: sender, Logger: logger}
}

// Process decodes, renders and sends one message body.
func (w *Worker) Process(ctx context.Context, body []byte) Outcome {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.log().WithError(err).Warn("bad email payload")
		return Drop
	}
	fields := logrus.Fields{"to": job.To, "template": job.Template}
	subject, text, html, err := job.Resolve()
	if err != nil {
		w.log().WithError(err).WithFields(fields).Warn("email job rejected")
		return Drop
	}
	if err := w.Sender.Send(ctx, job.To, subject, text, html); err != nil {
		w.log().WithError(err).WithFields(fields).Error("email send failed")
		return Retry
	}
	w.log().WithFields(fields).Info("email sent")
	return Ack
}

var discard = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

func (w *Worker) log() *logrus.Logger {
	if w.Logger == nil {
		return discard
	}
	return w.Logger
}
