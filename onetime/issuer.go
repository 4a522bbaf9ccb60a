// Package onetime mints and validates single-use login-initiation
// references. A reference is an HS256-signed token whose jti is also
// recorded in the store; validation requires both the signature and the
// store record, and deletes the record on first success so a reference can
// never be redeemed twice.
package onetime

import (
	"context"
	"encoding/json"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	interrors "github.com/halvax/qrcheckin/internal/errors"
	"github.com/halvax/qrcheckin/store"
)

const keyPrefix = "onetime:"

// PurposeLogin marks references minted for re-authentication.
const PurposeLogin = "login"

type record struct {
	Purpose   string `json:"purpose"`
	CreatedAt int64  `json:"createdAt"` // epoch milliseconds
	ExpiresAt int64  `json:"expiresAt"` // epoch milliseconds
}

// Issuer mints and validates one-time references.
type Issuer struct {
	store   store.Store
	secret  []byte
	ttl     time.Duration
	nowTime func() time.Time
}

// IssuerOption defines a function type to modify the Issuer instance.
type IssuerOption func(*Issuer)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowTime = nowFunc
	}
}

// WithTTL overrides the reference lifetime.
func WithTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.ttl = ttl
	}
}

func NewIssuer(st store.Store, signingSecret string, options ...IssuerOption) (*Issuer, error) {
	if st == nil {
		return nil, errors.New("[NewIssuer] store is required")
	}
	if signingSecret == "" {
		return nil, errors.New("[NewIssuer] signing secret is required")
	}

	i := &Issuer{
		store:   st,
		secret:  []byte(signingSecret),
		ttl:     24 * time.Hour,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i, nil
}

// Mint creates a fresh reference for the given purpose.
func (i *Issuer) Mint(ctx context.Context, purpose string) (string, error) {
	if purpose == "" {
		return "", errors.Wrap(interrors.ErrValidation, "[Mint] empty purpose")
	}

	now := i.nowTime()
	jti := uuid.NewString()

	claims := jwtlib.MapClaims{
		"jti":     jti,
		"purpose": purpose,
		"iat":     now.Unix(),
		"exp":     now.Add(i.ttl).Unix(),
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", errors.Wrap(err, "[Mint] sign reference")
	}

	data, err := json.Marshal(record{
		Purpose:   purpose,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(i.ttl).UnixMilli(),
	})
	if err != nil {
		return "", errors.Wrap(err, "[Mint] marshal record")
	}
	if err := i.store.Set(ctx, keyPrefix+jti, data, i.ttl); err != nil {
		return "", errors.Wrap(err, "[Mint] persist record")
	}

	return token, nil
}

// Validate checks a reference and consumes it. The store record is deleted
// on the first successful validation, so a second Validate of the same
// reference fails even within the validity window.
func (i *Issuer) Validate(ctx context.Context, token string) (string, error) {
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwtlib.WithTimeFunc(i.nowTime))
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return "", errors.Wrap(interrors.ErrExpired, "[Validate] reference expired")
		}
		return "", errors.Wrapf(interrors.ErrValidation, "[Validate] %v", err)
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return "", errors.Wrap(interrors.ErrValidation, "[Validate] unexpected claims shape")
	}
	jti, _ := claims["jti"].(string)
	purpose, _ := claims["purpose"].(string)
	if jti == "" || purpose == "" {
		return "", errors.Wrap(interrors.ErrValidation, "[Validate] missing claims")
	}

	data, err := i.store.Get(ctx, keyPrefix+jti)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", errors.Wrap(interrors.ErrExpired, "[Validate] reference already used or lapsed")
		}
		return "", errors.Wrap(err, "[Validate] read record")
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", errors.Wrap(err, "[Validate] unmarshal record")
	}
	if rec.Purpose != purpose {
		return "", errors.Wrap(interrors.ErrValidation, "[Validate] purpose mismatch")
	}

	if err := i.store.Delete(ctx, keyPrefix+jti); err != nil {
		return "", errors.Wrap(err, "[Validate] consume record")
	}
	return purpose, nil
}
