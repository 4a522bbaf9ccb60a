package onetime_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	interrors "github.com/halvax/qrcheckin/internal/errors"
	"github.com/halvax/qrcheckin/onetime"
	"github.com/halvax/qrcheckin/store"
)

const testSecret = "test-signing-secret"

func newIssuer(t *testing.T, now *time.Time) *onetime.Issuer {
	t.Helper()

	nowFunc := func() time.Time { return *now }
	st := store.NewInMemory(store.WithNowTime(nowFunc))

	issuer, err := onetime.NewIssuer(st, testSecret, onetime.WithNowTime(nowFunc))
	require.NoError(t, err)
	return issuer
}

func TestMintAndValidate(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	issuer := newIssuer(t, &now)
	ctx := context.Background()

	token, err := issuer.Mint(ctx, onetime.PurposeLogin)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	purpose, err := issuer.Validate(ctx, token)
	require.NoError(t, err)
	require.Equal(t, onetime.PurposeLogin, purpose)
}

func TestValidateIsSingleUse(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	issuer := newIssuer(t, &now)
	ctx := context.Background()

	token, err := issuer.Mint(ctx, onetime.PurposeLogin)
	require.NoError(t, err)

	_, err = issuer.Validate(ctx, token)
	require.NoError(t, err)

	_, err = issuer.Validate(ctx, token)
	require.ErrorIs(t, err, interrors.ErrExpired)
}

func TestValidateExpiredReference(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	issuer := newIssuer(t, &now)
	ctx := context.Background()

	token, err := issuer.Mint(ctx, onetime.PurposeLogin)
	require.NoError(t, err)

	now = now.Add(24*time.Hour + time.Minute)

	_, err = issuer.Validate(ctx, token)
	require.ErrorIs(t, err, interrors.ErrExpired)
}

func TestValidateRejectsGarbage(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	issuer := newIssuer(t, &now)

	_, err := issuer.Validate(context.Background(), "not-a-token")
	require.ErrorIs(t, err, interrors.ErrValidation)
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	issuer := newIssuer(t, &now)
	ctx := context.Background()

	otherStore := store.NewInMemory()
	other, err := onetime.NewIssuer(otherStore, "different-secret")
	require.NoError(t, err)

	token, err := other.Mint(ctx, onetime.PurposeLogin)
	require.NoError(t, err)

	_, err = issuer.Validate(ctx, token)
	require.ErrorIs(t, err, interrors.ErrValidation)
}
