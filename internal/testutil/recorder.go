package testutil

import (
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/debugmesh/core"
)

// NotificationRecorder captures session notifications for later assertions.
// Safe for concurrent use.
type NotificationRecorder struct {
	mu            sync.Mutex
	notifications []core.Notification
}

// Observer returns the core.Observer to register with a session.
func (r *NotificationRecorder) Observer() core.Observer {
	return func(n core.Notification) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.notifications = append(r.notifications, n)
	}
}

// All returns a copy of the captured notifications in delivery order.
func (r *NotificationRecorder) All() []core.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}

// OfKind returns the captured notifications of the given kind.
func (r *NotificationRecorder) OfKind(kind core.NotificationKind) []core.Notification {
	var out []core.Notification
	for _, n := range r.All() {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Count returns the number of captured notifications of the given kind.
func (r *NotificationRecorder) Count(kind core.NotificationKind) int {
	return len(r.OfKind(kind))
}

// RecordingLogger implements logging.Logger and keeps formatted messages per
// level. Safe for concurrent use.
type RecordingLogger struct {
	mu           sync.Mutex
	messages     map[string][]string
	backendCalls []string
}

func (l *RecordingLogger) record(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.messages == nil {
		l.messages = map[string][]string{}
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.messages[level] = append(l.messages[level], msg)
}

// Debug records a debug message.
func (l *RecordingLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }

// Info records an info message.
func (l *RecordingLogger) Info(msg string, args ...any) { l.record("info", msg, args...) }

// Warn records a warning message.
func (l *RecordingLogger) Warn(msg string, args ...any) { l.record("warn", msg, args...) }

// Error records an error message.
func (l *RecordingLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }

// LogBackendCall records the operation name of a backend protocol call.
func (l *RecordingLogger) LogBackendCall(op string, _ time.Duration, _ bool, _ error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backendCalls = append(l.backendCalls, op)
}

// BackendCalls returns the recorded backend call operation names in order.
func (l *RecordingLogger) BackendCalls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.backendCalls))
	copy(out, l.backendCalls)
	return out
}

// Errors returns the recorded error-level messages.
func (l *RecordingLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.messages["error"]))
	copy(out, l.messages["error"])
	return out
}
