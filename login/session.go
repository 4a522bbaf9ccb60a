package login

// State is the lifecycle state of a polling session.
type State string

const (
	StateWaiting   State = "WAITING"
	StateScanned   State = "SCANNED"
	StateConfirmed State = "CONFIRMED"
	StateExpired   State = "EXPIRED"
	StateError     State = "ERROR"
)

// Terminal reports whether no further automatic transition occurs from s.
// Once a session reaches a terminal state, ticks become no-ops.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateExpired, StateError:
		return true
	}
	return false
}

// PollingSession represents one in-flight login attempt.
// The CorrelationID binds poll requests to one provider-side login attempt
// and is never exposed to clients; status queries only see State and Message.
type PollingSession struct {
	ID                string `json:"sessionId"`
	CorrelationID     string `json:"correlationId"`
	State             State  `json:"state"`
	Message           string `json:"message,omitempty"`
	AuthorizationCode string `json:"authorizationCode,omitempty"`
	CreatedAt         int64  `json:"createdAt"`     // epoch milliseconds
	LastUpdatedAt     int64  `json:"lastUpdatedAt"` // epoch milliseconds
}
