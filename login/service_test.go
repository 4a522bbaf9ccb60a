package login_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/halvax/qrcheckin/credential"
	interrors "github.com/halvax/qrcheckin/internal/errors"
	"github.com/halvax/qrcheckin/login"
	"github.com/halvax/qrcheckin/login/providerfakes"
	"github.com/halvax/qrcheckin/notify"
	"github.com/halvax/qrcheckin/notify/notifyfakes"
	"github.com/halvax/qrcheckin/store"
)

// testFixture holds the state machine and its collaborators, all sharing one
// movable clock.
type testFixture struct {
	now         time.Time
	provider    *providerfakes.FakeProvider
	notifier    *notifyfakes.FakeNotifier
	credentials *credential.Manager
	service     *login.Service
	confirmed   int
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		now:      time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		provider: providerfakes.NewFakeProvider(),
		notifier: notifyfakes.NewFakeNotifier(),
	}
	nowFunc := func() time.Time { return f.now }

	st := store.NewInMemory(store.WithNowTime(nowFunc))

	var err error
	f.credentials, err = credential.NewManager(st, credential.WithNowTime(nowFunc))
	require.NoError(t, err)

	f.service, err = login.NewService(
		login.NewSessions(st),
		f.provider,
		f.credentials,
		login.WithNowTime(nowFunc),
		login.WithNotifier(f.notifier),
		login.WithTiming(login.Timing{
			SessionTTL:         10 * time.Minute,
			TerminalSessionTTL: time.Hour,
			InactivityBound:    2 * time.Minute,
		}),
		login.WithOnConfirmed(func(context.Context) { f.confirmed++ }),
	)
	require.NoError(t, err)
	return f
}

func confirmedStep(code string) providerfakes.PollStep {
	return providerfakes.PollStep{Signal: login.Signal{Kind: login.SignalConfirmed, AuthorizationCode: code}}
}

func signalStep(kind login.SignalKind) providerfakes.PollStep {
	return providerfakes.PollStep{Signal: login.Signal{Kind: kind}}
}

func TestStartCreatesWaitingSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	sessionID, err := f.service.Start(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	state, message, err := f.service.Status(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, login.StateWaiting, state)
	require.Equal(t, "waiting for scan", message)
}

func TestStartPropagatesProviderFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.RequestLoginErr = interrors.ErrTransport

	_, err := f.service.Start(context.Background())
	require.ErrorIs(t, err, interrors.ErrTransport)
}

func TestSignalSequenceReachesConfirmed(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.provider.ExchangeResult = login.Credential{
		Token:     "tok",
		ExpiresAt: f.now.Add(time.Hour).UnixMilli(),
	}
	f.provider.Script(
		signalStep(login.SignalStillWaiting),
		signalStep(login.SignalStillWaiting),
		signalStep(login.SignalScannedPendingConfirm),
		confirmedStep("abc"),
	)

	sessionID, err := f.service.Start(ctx)
	require.NoError(t, err)

	var states []login.State
	for i := 0; i < 4; i++ {
		sess, err := f.service.Tick(ctx, sessionID)
		require.NoError(t, err)
		states = append(states, sess.State)
	}
	require.Equal(t, []login.State{
		login.StateWaiting,
		login.StateWaiting,
		login.StateScanned,
		login.StateConfirmed,
	}, states)

	require.Equal(t, []string{"abc"}, f.provider.ExchangeCalls)

	rec, err := f.credentials.Load(ctx)
	require.NoError(t, err)
	require.True(t, f.credentials.IsValid(rec))
	require.Equal(t, "tok", rec.Token)

	require.Len(t, f.notifier.ByKind(notify.KindLoginSuccess), 1)
	require.Equal(t, 1, f.confirmed)
}

func TestTerminalStateIsNeverOverwritten(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.provider.ExchangeResult = login.Credential{Token: "tok", ExpiresAt: f.now.Add(time.Hour).UnixMilli()}
	f.provider.Script(confirmedStep("abc"))

	sessionID, err := f.service.Start(ctx)
	require.NoError(t, err)

	sess, err := f.service.Tick(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, login.StateConfirmed, sess.State)

	// A later tick must not consult the provider or change the state, even
	// with a contradictory signal queued.
	f.provider.Script(signalStep(login.SignalChallengeExpired))
	pollsBefore := f.provider.PollCalls

	sess, err = f.service.Tick(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, login.StateConfirmed, sess.State)
	require.Equal(t, pollsBefore, f.provider.PollCalls)
	require.Len(t, f.provider.ExchangeCalls, 1)
}

func TestInactivityBoundForcesExpired(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	sessionID, err := f.service.Start(ctx)
	require.NoError(t, err)

	// The provider would report a confirmation, but the session has been
	// idle past the bound: the tick must expire it without polling.
	f.provider.Script(confirmedStep("late-code"))
	f.now = f.now.Add(2*time.Minute + time.Millisecond)

	sess, err := f.service.Tick(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, login.StateExpired, sess.State)
	require.Equal(t, "login not completed in time", sess.Message)
	require.Zero(t, f.provider.PollCalls)
	require.Empty(t, f.provider.ExchangeCalls)

	require.Len(t, f.notifier.ByKind(notify.KindSystemError), 1)
}

func TestPollFailureIsCapturedAsErrorState(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.provider.Script(providerfakes.PollStep{Err: interrors.ErrTransport})

	sessionID, err := f.service.Start(ctx)
	require.NoError(t, err)

	sess, err := f.service.Tick(ctx, sessionID)
	require.NoError(t, err, "transport failures must not propagate to the caller")
	require.Equal(t, login.StateError, sess.State)
	require.Contains(t, sess.Message, "provider poll failed")
}

func TestUnrecognizedSignalBecomesErrorState(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.provider.Script(providerfakes.PollStep{
		Signal: login.Signal{Kind: login.SignalUnrecognized, RawCode: "86091"},
	})

	sessionID, err := f.service.Start(ctx)
	require.NoError(t, err)

	sess, err := f.service.Tick(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, login.StateError, sess.State)
	require.Contains(t, sess.Message, "86091")
}

func TestExchangeFailureBecomesErrorState(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.provider.ExchangeErr = interrors.ErrProtocol
	f.provider.Script(confirmedStep("abc"))

	sessionID, err := f.service.Start(ctx)
	require.NoError(t, err)

	sess, err := f.service.Tick(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, login.StateError, sess.State)
	require.Contains(t, sess.Message, "code exchange failed")

	rec, err := f.credentials.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, rec)
	require.Zero(t, f.confirmed)
}

func TestNotifierFailureDoesNotPropagate(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.notifier.Err = interrors.ErrInternal
	f.provider.Script(signalStep(login.SignalChallengeExpired))

	sessionID, err := f.service.Start(ctx)
	require.NoError(t, err)

	sess, err := f.service.Tick(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, login.StateExpired, sess.State)
}

func TestStatusUnknownSession(t *testing.T) {
	f := setupTestFixture(t)

	_, _, err := f.service.Status(context.Background(), "b4a94a6e-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, interrors.ErrNotFound)
}

func TestChallengeOnTerminalSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.provider.Script(signalStep(login.SignalChallengeExpired))

	sessionID, err := f.service.Start(ctx)
	require.NoError(t, err)

	challenge, err := f.service.Challenge(ctx, sessionID)
	require.NoError(t, err)
	require.Equal(t, []byte("fake-png"), challenge)

	_, err = f.service.Tick(ctx, sessionID)
	require.NoError(t, err)

	_, err = f.service.Challenge(ctx, sessionID)
	require.ErrorIs(t, err, interrors.ErrExpired)
}
