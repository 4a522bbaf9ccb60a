package login

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	interrors "github.com/halvax/qrcheckin/internal/errors"
	"github.com/halvax/qrcheckin/notify"
)

// CredentialSink receives the exchanged credential. Implemented by
// credential.Manager; the state machine itself never touches the credential
// record beyond this single hand-off.
type CredentialSink interface {
	Store(ctx context.Context, token string, expiresAt int64) error
}

// Timing groups the state machine's retention and inactivity policy.
type Timing struct {
	// SessionTTL is the retention while a session can still advance.
	SessionTTL time.Duration
	// TerminalSessionTTL is the retention once a terminal state is reached.
	TerminalSessionTTL time.Duration
	// InactivityBound forces EXPIRED on any session that goes this long
	// without a tick, regardless of what the provider reports next.
	InactivityBound time.Duration
}

func (t Timing) withDefaults() Timing {
	if t.SessionTTL <= 0 {
		t.SessionTTL = 5 * time.Minute
	}
	if t.TerminalSessionTTL <= 0 {
		t.TerminalSessionTTL = time.Hour
	}
	if t.InactivityBound <= 0 {
		t.InactivityBound = 5 * time.Minute
	}
	return t
}

// Service owns polling session state transitions. It is the only writer of
// PollingSession.State. Every trigger source (client status query, scheduler
// re-entry) drives the identical Tick path.
type Service struct {
	sessions    *Sessions
	provider    Provider
	credentials CredentialSink
	notifier    notify.Notifier
	timing      Timing
	logger      zerolog.Logger
	nowTime     func() time.Time
	onConfirmed func(ctx context.Context)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithTiming overrides the retention and inactivity policy.
func WithTiming(timing Timing) ServiceOption {
	return func(s *Service) {
		s.timing = timing.withDefaults()
	}
}

// WithNotifier sets the collaborator informed of terminal outcomes.
func WithNotifier(n notify.Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithLogger sets the structured event logger.
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithOnConfirmed registers a callback invoked after a session reaches
// CONFIRMED with the credential persisted. The orchestrator hooks its tick
// here so a confirmed login re-enters the check-in path directly instead of
// through an HTTP self-call.
func WithOnConfirmed(fn func(ctx context.Context)) ServiceOption {
	return func(s *Service) {
		s.onConfirmed = fn
	}
}

func NewService(sessions *Sessions, provider Provider, credentials CredentialSink, options ...ServiceOption) (*Service, error) {
	if sessions == nil {
		return nil, errors.New("[NewService] sessions repo is required")
	}
	if provider == nil {
		return nil, errors.New("[NewService] provider is required")
	}
	if credentials == nil {
		return nil, errors.New("[NewService] credential sink is required")
	}

	s := &Service{
		sessions:    sessions,
		provider:    provider,
		credentials: credentials,
		notifier:    notify.NoOp{},
		timing:      Timing{}.withDefaults(),
		logger:      zerolog.Nop(),
		nowTime:     time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Start begins a fresh login attempt: it asks the provider for a challenge
// and persists a WAITING session for it.
func (s *Service) Start(ctx context.Context) (string, error) {
	correlationID, err := s.provider.RequestLogin(ctx)
	if err != nil {
		return "", errors.Wrap(err, "[Start] request login")
	}

	now := s.nowTime().UnixMilli()
	sess := &PollingSession{
		ID:            uuid.NewString(),
		CorrelationID: correlationID,
		State:         StateWaiting,
		Message:       "waiting for scan",
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	if err := s.sessions.Save(ctx, sess, s.timing.SessionTTL); err != nil {
		return "", err
	}

	s.logger.Info().Str("session_id", sess.ID).Msg("login session started")
	return sess.ID, nil
}

// Challenge returns the scannable artifact for a session that can still
// complete.
func (s *Service) Challenge(ctx context.Context, sessionID string) ([]byte, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State.Terminal() {
		return nil, errors.Wrapf(interrors.ErrExpired, "session %s is %s", sessionID, sess.State)
	}
	return s.provider.RenderChallenge(ctx, sess.CorrelationID)
}

// Status drives one tick and reports the resulting state and last captured
// message verbatim. This is the pull-based advancement path: a client asking
// "are we there yet" is what moves the session forward.
func (s *Service) Status(ctx context.Context, sessionID string) (State, string, error) {
	sess, err := s.Tick(ctx, sessionID)
	if err != nil {
		return "", "", err
	}
	return sess.State, sess.Message, nil
}

// Tick evaluates one step of the session's state machine. Terminal sessions
// are returned unchanged. Transport and protocol failures while polling are
// captured into a terminal ERROR state rather than returned: whatever
// happens, the session is left in a well-defined, queryable state. Only
// store failures propagate as errors.
func (s *Service) Tick(ctx context.Context, sessionID string) (*PollingSession, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State.Terminal() {
		return sess, nil
	}

	if s.nowTime().UnixMilli()-sess.LastUpdatedAt > s.timing.InactivityBound.Milliseconds() {
		return s.finish(ctx, sess, StateExpired, "login not completed in time")
	}

	signal, err := s.provider.PollOnce(ctx, sess.CorrelationID)
	if err != nil {
		return s.finish(ctx, sess, StateError, fmt.Sprintf("provider poll failed: %v", err))
	}

	switch signal.Kind {
	case SignalStillWaiting:
		// No transition, but the tick counts as activity.
		return s.save(ctx, sess, sess.State, sess.Message)
	case SignalScannedPendingConfirm:
		return s.save(ctx, sess, StateScanned, "scanned, awaiting confirmation")
	case SignalConfirmed:
		return s.confirm(ctx, sess, signal.AuthorizationCode)
	case SignalChallengeExpired:
		return s.finish(ctx, sess, StateExpired, "challenge expired")
	default:
		return s.finish(ctx, sess, StateError, fmt.Sprintf("unrecognized provider status %q", signal.RawCode))
	}
}

// confirm exchanges the authorization code for a credential and drives the
// session to its terminal state. The session is re-read first: two ticks
// racing on the same session may both observe a CONFIRMED signal, and
// yielding to an already-terminal session narrows the window in which the
// exchange could run twice. The store offers no compare-and-swap, so this
// is a guard, not a guarantee.
func (s *Service) confirm(ctx context.Context, sess *PollingSession, code string) (*PollingSession, error) {
	if latest, err := s.sessions.Get(ctx, sess.ID); err == nil && latest.State.Terminal() {
		return latest, nil
	}

	cred, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return s.finish(ctx, sess, StateError, fmt.Sprintf("code exchange failed: %v", err))
	}
	if err := s.credentials.Store(ctx, cred.Token, cred.ExpiresAt); err != nil {
		return s.finish(ctx, sess, StateError, fmt.Sprintf("credential persist failed: %v", err))
	}

	sess.AuthorizationCode = code
	updated, err := s.finish(ctx, sess, StateConfirmed, "login confirmed")
	if err != nil {
		return updated, err
	}
	if s.onConfirmed != nil {
		s.onConfirmed(ctx)
	}
	return updated, nil
}

// save persists a non-terminal transition.
func (s *Service) save(ctx context.Context, sess *PollingSession, state State, message string) (*PollingSession, error) {
	sess.State = state
	sess.Message = message
	sess.LastUpdatedAt = s.nowTime().UnixMilli()

	if err := s.sessions.Save(ctx, sess, s.timing.SessionTTL); err != nil {
		return nil, err
	}
	s.logger.Debug().
		Str("session_id", sess.ID).
		Str("state", string(sess.State)).
		Msg("session advanced")
	return sess, nil
}

// finish persists a terminal transition with the longer retention and emits
// exactly one notification for it.
func (s *Service) finish(ctx context.Context, sess *PollingSession, state State, message string) (*PollingSession, error) {
	sess.State = state
	sess.Message = message
	sess.LastUpdatedAt = s.nowTime().UnixMilli()

	if err := s.sessions.Save(ctx, sess, s.timing.TerminalSessionTTL); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("session_id", sess.ID).
		Str("state", string(sess.State)).
		Str("message", sess.Message).
		Msg("session finished")

	kind := notify.KindSystemError
	if state == StateConfirmed {
		kind = notify.KindLoginSuccess
	}
	if err := s.notifier.Notify(ctx, kind, map[string]string{
		"sessionId": sess.ID,
		"state":     string(sess.State),
		"message":   sess.Message,
	}); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("notifier failed")
	}

	return sess, nil
}
