package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Request is one message handed to a channel adapter.
type Request struct {
	MessageID string         `json:"message_id"`
	ProjectID string         `json:"project_id"`
	Channel   models.Channel `json:"channel"`
	Recipient string         `json:"recipient"`
	Sender    string         `json:"sender,omitempty"`
	Subject   string         `json:"subject,omitempty"`
	Content   string         `json:"content"`
	IsTest    bool           `json:"is_test"`
}

// Adapter delivers messages for one channel. Send returns the provider's
// message id. Implementations must honor ctx.
type Adapter interface {
	Name() string
	Send(ctx context.Context, req Request) (string, error)
}

// SandboxAdapter accepts every message without contacting any provider.
// Test sends are always routed here.
type SandboxAdapter struct {
	sent atomic.Int64
}

// NewSandboxAdapter creates a sandbox adapter
func NewSandboxAdapter() *SandboxAdapter {
	return &SandboxAdapter{}
}

func (a *SandboxAdapter) Name() string { return "sandbox" }

func (a *SandboxAdapter) Send(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.sent.Add(1)
	logrus.WithFields(logrus.Fields{
		"channel":    req.Channel,
		"recipient":  req.Recipient,
		"message_id": req.MessageID,
	}).Debug("Sandbox send")
	return "sandbox-" + uuid.New().String(), nil
}

// Sent returns the number of messages the sandbox accepted.
func (a *SandboxAdapter) Sent() int64 {
	return a.sent.Load()
}

// LogAdapter writes messages to the log instead of sending them. It is used
// for local development when no gateway is configured.
type LogAdapter struct {
	channel models.Channel
}

// NewLogAdapter creates a log adapter for channel
func NewLogAdapter(channel models.Channel) *LogAdapter {
	return &LogAdapter{channel: channel}
}

func (a *LogAdapter) Name() string { return "log-" + string(a.channel) }

func (a *LogAdapter) Send(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{
		"channel":   req.Channel,
		"recipient": req.Recipient,
		"sender":    req.Sender,
		"subject":   req.Subject,
	}).Infof("Outbound message: %s", req.Content)
	return "log-" + uuid.New().String(), nil
}

// Publisher publishes a JSON document to a named queue.
type Publisher interface {
	PublishJSON(ctx context.Context, queue string, payload interface{}) error
}

// OutboundMessage is the document the SMS/email gateway consumes.
type OutboundMessage struct {
	Request
	ProviderMessageID string    `json:"provider_message_id"`
	QueuedAt          time.Time `json:"queued_at"`
}

// QueueAdapter hands messages to the external gateway through a message
// queue. A message counts as sent once the broker accepted it; the gateway
// later reports delivery on the delivery report queue.
type QueueAdapter struct {
	publisher Publisher
	queue     string
}

// NewQueueAdapter creates a queue adapter publishing to queue
func NewQueueAdapter(publisher Publisher, queue string) *QueueAdapter {
	return &QueueAdapter{publisher: publisher, queue: queue}
}

func (a *QueueAdapter) Name() string { return "queue:" + a.queue }

func (a *QueueAdapter) Send(ctx context.Context, req Request) (string, error) {
	msg := OutboundMessage{
		Request:           req,
		ProviderMessageID: uuid.New().String(),
		QueuedAt:          time.Now().UTC(),
	}
	if err := a.publisher.PublishJSON(ctx, a.queue, msg); err != nil {
		return "", fmt.Errorf("failed to enqueue message: %w", err)
	}
	return msg.ProviderMessageID, nil
}
