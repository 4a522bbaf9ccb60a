package notify

import "context"

// Kind identifies the class of event being delivered to the operator.
type Kind string

const (
	KindLoginRequired      Kind = "LOGIN_REQUIRED"
	KindLoginSuccess       Kind = "LOGIN_SUCCESS"
	KindCheckinSuccess     Kind = "CHECKIN_SUCCESS"
	KindCheckinSoftFailure Kind = "CHECKIN_SOFT_FAILURE"
	KindSystemError        Kind = "SYSTEM_ERROR"
)

// Notifier delivers a terminal outcome to a human operator. Implementations
// are collaborators outside the core: callers log and swallow any error, a
// failed delivery must never alter control flow.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, payload map[string]string) error
}

// NoOp discards all notifications.
type NoOp struct{}

var _ Notifier = NoOp{}

func (NoOp) Notify(context.Context, Kind, map[string]string) error {
	return nil
}
