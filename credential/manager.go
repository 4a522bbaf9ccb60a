package credential

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	interrors "github.com/halvax/qrcheckin/internal/errors"
	"github.com/halvax/qrcheckin/store"
)

const storeKey = "credential"

// Record is the exchanged access credential. ExpiresAt is absolute epoch
// milliseconds. Valid iff ExpiresAt is strictly in the future.
type Record struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Manager owns the credential record: it computes validity and storage
// retention and is the only component that writes the record.
type Manager struct {
	store          store.Store
	minTTL         time.Duration
	defaultHorizon time.Duration
	nowTime        func() time.Time
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithMinTTL sets the floor on storage retention. The floor guards against
// premature store eviction from clock skew or very short-lived credentials.
func WithMinTTL(minTTL time.Duration) ManagerOption {
	return func(m *Manager) {
		m.minTTL = minTTL
	}
}

// WithDefaultHorizon sets the assumed credential lifetime used when the
// provider omits an expiry.
func WithDefaultHorizon(horizon time.Duration) ManagerOption {
	return func(m *Manager) {
		m.defaultHorizon = horizon
	}
}

func NewManager(st store.Store, options ...ManagerOption) (*Manager, error) {
	if st == nil {
		return nil, errors.New("[NewManager] store is required")
	}

	m := &Manager{
		store:          st,
		minTTL:         5 * time.Minute,
		defaultHorizon: 12 * time.Hour,
		nowTime:        time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// IsValid reports whether rec holds a usable credential. A record expiring
// exactly now is already invalid.
func (m *Manager) IsValid(rec *Record) bool {
	return rec != nil && rec.ExpiresAt > m.nowTime().UnixMilli()
}

// StorageTTL computes the store retention for a credential expiring at the
// given epoch-millisecond instant. Never below the configured floor, even
// when expiresAt is in the past.
func (m *Manager) StorageTTL(expiresAt int64) time.Duration {
	ttl := time.Duration(expiresAt-m.nowTime().UnixMilli()) * time.Millisecond
	if ttl < m.minTTL {
		return m.minTTL
	}
	return ttl
}

// Store persists the exchanged credential, overwriting any previous record.
// A zero expiresAt means the provider omitted an expiry; the record is then
// assumed valid for the default horizon rather than treated as already
// invalid.
func (m *Manager) Store(ctx context.Context, token string, expiresAt int64) error {
	if token == "" {
		return errors.Wrap(interrors.ErrValidation, "[Store] empty credential token")
	}
	if expiresAt == 0 {
		expiresAt = m.nowTime().Add(m.defaultHorizon).UnixMilli()
	}

	data, err := json.Marshal(Record{Token: token, ExpiresAt: expiresAt})
	if err != nil {
		return errors.Wrap(err, "[Store] marshal credential record")
	}
	if err := m.store.Set(ctx, storeKey, data, m.StorageTTL(expiresAt)); err != nil {
		return errors.Wrap(err, "[Store] persist credential record")
	}
	return nil
}

// Load returns the stored credential record, or nil when none exists. The
// caller decides what absence means; only backend failures are errors.
func (m *Manager) Load(ctx context.Context) (*Record, error) {
	data, err := m.store.Get(ctx, storeKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "[Load] read credential record")
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, "[Load] unmarshal credential record")
	}
	return &rec, nil
}
