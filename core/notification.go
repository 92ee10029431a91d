package core

// NotificationKind identifies the category of a session notification.
type NotificationKind string

const (
	// NotifySuspended reports that the session stopped; Detail carries the
	// reason code delivered by the backend.
	NotifySuspended NotificationKind = "suspended"

	// NotifyResumed reports that the session resumed on client request.
	NotifyResumed NotificationKind = "resumed"

	// NotifyTerminated reports that the session reached its terminal state.
	NotifyTerminated NotificationKind = "terminated"

	// NotifyError reports an operation failure; Err carries the typed error.
	NotifyError NotificationKind = "error"
)

// Notification is the record delivered to session observers on lifecycle
// transitions and operation failures. Session and Handle identify the
// originating session; Detail is set for suspend/resume notifications.
type Notification struct {
	Kind    NotificationKind
	Detail  SuspendDetail
	Session string
	Handle  SessionHandle
	Message string
	Err     error
}

// Observer is a callback receiving session notifications. Observers are
// registered under an explicit id and removed either manually or when the
// session terminates.
type Observer func(n Notification)
