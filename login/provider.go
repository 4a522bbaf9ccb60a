package login

import "context"

// SignalKind is the normalized vocabulary of provider poll outcomes. The
// core depends on nothing about the provider's wire protocol beyond these
// five signals.
type SignalKind string

const (
	// SignalStillWaiting means the challenge has not been scanned yet.
	SignalStillWaiting SignalKind = "still_waiting"
	// SignalScannedPendingConfirm means the challenge was scanned and the
	// mobile client is awaiting the user's confirmation.
	SignalScannedPendingConfirm SignalKind = "scanned_pending_confirm"
	// SignalConfirmed means the login was confirmed; AuthorizationCode is set.
	SignalConfirmed SignalKind = "confirmed"
	// SignalChallengeExpired means the provider retired the challenge.
	SignalChallengeExpired SignalKind = "challenge_expired"
	// SignalUnrecognized is the escape hatch for anything outside the known
	// vocabulary; callers treat it as a protocol error. RawCode carries the
	// provider's literal status for diagnostics.
	SignalUnrecognized SignalKind = "unrecognized"
)

// Signal is one normalized poll outcome.
type Signal struct {
	Kind              SignalKind
	AuthorizationCode string
	RawCode           string
}

// Credential is the result of exchanging an authorization code. ExpiresAt is
// absolute epoch milliseconds; zero when the provider omitted an expiry.
type Credential struct {
	Token     string
	ExpiresAt int64
}

// Provider adapts the third-party QR login handshake. Implementations fail
// with errors wrapping internal/errors.ErrTransport when the endpoint is
// unreachable and ErrProtocol when a response doesn't match the expected
// shape.
type Provider interface {
	// RequestLogin starts a fresh login attempt and returns the provider's
	// correlation ID for it.
	RequestLogin(ctx context.Context) (string, error)

	// RenderChallenge returns the scannable artifact (e.g. a QR PNG) for the
	// login attempt.
	RenderChallenge(ctx context.Context, correlationID string) ([]byte, error)

	// PollOnce asks the provider for the current status of the attempt.
	PollOnce(ctx context.Context, correlationID string) (Signal, error)

	// ExchangeCode trades a confirmed authorization code for a credential.
	ExchangeCode(ctx context.Context, code string) (Credential, error)
}
