// Package notification delivers messages about test-result lifecycle events
// to patients and clinicians. It renders built-in templates, dispatches
// through pluggable senders with retry, and keeps a queryable in-memory log
// of what was sent.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Channel is the delivery mechanism for a notification.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Event types emitted by the result workflow.
const (
	EventResultUploaded  = "result-uploaded"
	EventAbnormalValue   = "abnormal-value"
	EventResultConfirmed = "result-confirmed"
)

// Event describes something that happened to a test result.
type Event struct {
	Type         string
	PatientID    string
	TestResultID string
	Recipient    string
	Data         map[string]string
	OccurredAt   time.Time
}

// Notification is a single rendered outbound message.
type Notification struct {
	ID        string     `json:"id"`
	Event     string     `json:"event"`
	Channel   Channel    `json:"channel"`
	Recipient string     `json:"recipient"`
	Subject   string     `json:"subject,omitempty"`
	Body      string     `json:"body"`
	Status    string     `json:"status"` // pending, sent, failed
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Sender delivers a rendered notification over one channel.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

// LogSender writes notifications to the structured log instead of delivering
// them. Used in development and tests.
type LogSender struct {
	Logger zerolog.Logger
}

func (s LogSender) Send(_ context.Context, n *Notification) error {
	s.Logger.Info().
		Str("notification_id", n.ID).
		Str("event", n.Event).
		Str("channel", string(n.Channel)).
		Str("recipient", n.Recipient).
		Str("subject", n.Subject).
		Msg("notification sent")
	return nil
}

type template struct {
	subject string
	body    string
	channel Channel
}

var builtinTemplates = map[string]template{
	EventResultUploaded: {
		subject: "New test result received",
		body:    "A new test result ({{test_name}}) for patient {{patient_id}} has been uploaded and is awaiting review.",
		channel: ChannelEmail,
	},
	EventAbnormalValue: {
		subject: "Abnormal lab value flagged",
		body:    "Result {{test_result_id}} contains {{abnormal_count}} value(s) outside the reference range. Please review.",
		channel: ChannelEmail,
	},
	EventResultConfirmed: {
		subject: "Your test results are ready",
		body:    "Your {{test_name}} results have been reviewed and confirmed by {{clinician}}. Log in to view them.",
		channel: ChannelEmail,
	},
}

// render substitutes {{key}} placeholders with values from data.
func render(text string, data map[string]string) string {
	for k, v := range data {
		text = strings.ReplaceAll(text, "{{"+k+"}}", v)
	}
	return text
}

var ErrUnknownEvent = errors.New("no template registered for event")

const (
	maxAttempts  = 3
	retryBackoff = 200 * time.Millisecond
)

// Engine renders events into notifications and dispatches them.
type Engine struct {
	sender Sender
	logger zerolog.Logger

	mu   sync.RWMutex
	sent []*Notification
}

func NewEngine(sender Sender, logger zerolog.Logger) *Engine {
	return &Engine{sender: sender, logger: logger}
}

// Notify renders the template for the event and delivers it, retrying
// transient send failures. The returned notification records the final
// delivery status.
func (e *Engine) Notify(ctx context.Context, evt Event) (*Notification, error) {
	tmpl, ok := builtinTemplates[evt.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, evt.Type)
	}

	data := map[string]string{
		"patient_id":     evt.PatientID,
		"test_result_id": evt.TestResultID,
	}
	for k, v := range evt.Data {
		data[k] = v
	}

	n := &Notification{
		ID:        uuid.New().String(),
		Event:     evt.Type,
		Channel:   tmpl.channel,
		Recipient: evt.Recipient,
		Subject:   render(tmpl.subject, data),
		Body:      render(tmpl.body, data),
		Status:    "pending",
		CreatedAt: time.Now().UTC(),
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = e.sender.Send(ctx, n)
		if lastErr == nil {
			now := time.Now().UTC()
			n.Status = "sent"
			n.SentAt = &now
			break
		}
		e.logger.Warn().Err(lastErr).
			Str("notification_id", n.ID).
			Int("attempt", attempt).
			Msg("notification send failed")
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = maxAttempts
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}
	}
	if lastErr != nil {
		n.Status = "failed"
		n.Error = lastErr.Error()
	}

	e.mu.Lock()
	e.sent = append(e.sent, n)
	e.mu.Unlock()

	if lastErr != nil {
		return n, fmt.Errorf("delivering notification: %w", lastErr)
	}
	return n, nil
}

// History returns a copy of all notifications processed by this engine.
func (e *Engine) History() []*Notification {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Notification, len(e.sent))
	copy(out, e.sent)
	return out
}
