// Package notify turns the result of every mutating action into an Outcome
// and queues a matching user-visible notification.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/metrics"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	// StatusValidation means the action was refused before any backend call
	StatusValidation Status = "validation"
	// StatusSkipped means there was nothing to do, e.g. no community selected
	StatusSkipped Status = "skipped"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Outcome is the uniform result of a mutating action
type Outcome struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

func Success(message string) Outcome    { return Outcome{Status: StatusSuccess, Message: message} }
func Failure(message string) Outcome    { return Outcome{Status: StatusFailure, Message: message} }
func Validation(message string) Outcome { return Outcome{Status: StatusValidation, Message: message} }
func Skipped(message string) Outcome    { return Outcome{Status: StatusSkipped, Message: message} }

type Notification struct {
	ID        string    `json:"id"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// DefaultCapacity bounds the per-user queue; the oldest entries are dropped first
const DefaultCapacity = 50

// Notifier queues notifications per user until the dashboard drains them
type Notifier struct {
	mu       sync.Mutex
	queues   map[string][]Notification
	capacity int
	logger   ectologger.Logger
}

func NewNotifier(capacity int, logger ectologger.Logger) *Notifier {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Notifier{
		queues:   make(map[string][]Notification),
		capacity: capacity,
		logger:   logger,
	}
}

// Push queues a notification for a user
func (n *Notifier) Push(ctx context.Context, userID string, severity Severity, message string) Notification {
	notification := Notification{
		ID:        uuid.New().String(),
		Severity:  severity,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	n.mu.Lock()
	queue := append(n.queues[userID], notification)
	if len(queue) > n.capacity {
		queue = queue[len(queue)-n.capacity:]
	}
	n.queues[userID] = queue
	n.mu.Unlock()

	metrics.NotificationsTotal.WithLabelValues(string(severity)).Inc()
	n.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id":  userID,
		"severity": severity,
	}).Debugf("notification queued: %s", message)

	return notification
}

// Report queues the notification matching an outcome and returns the outcome unchanged
func (n *Notifier) Report(ctx context.Context, userID string, outcome Outcome) Outcome {
	n.Push(ctx, userID, severityFor(outcome.Status), outcome.Message)
	return outcome
}

// Drain returns and clears a user's queued notifications, oldest first
func (n *Notifier) Drain(userID string) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	queue := n.queues[userID]
	delete(n.queues, userID)
	if queue == nil {
		return []Notification{}
	}
	return queue
}

// Peek returns a copy of the queue without clearing it
func (n *Notifier) Peek(userID string) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Notification, len(n.queues[userID]))
	copy(out, n.queues[userID])
	return out
}

func severityFor(status Status) Severity {
	switch status {
	case StatusSuccess:
		return SeveritySuccess
	case StatusFailure:
		return SeverityError
	case StatusValidation:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
