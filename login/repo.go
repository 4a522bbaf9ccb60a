package login

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	interrors "github.com/halvax/qrcheckin/internal/errors"
	"github.com/halvax/qrcheckin/store"
)

const sessionKeyPrefix = "session:"

// Sessions persists polling sessions in the key-value store. Retention is
// the caller's choice per write: short while a session can still advance,
// longer once terminal so status queries can observe the final outcome.
type Sessions struct {
	store store.Store
}

func NewSessions(st store.Store) *Sessions {
	return &Sessions{store: st}
}

func (r *Sessions) key(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// Save upserts the session with the given retention.
func (r *Sessions) Save(ctx context.Context, sess *PollingSession, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "[Save] marshal session")
	}
	if err := r.store.Set(ctx, r.key(sess.ID), data, ttl); err != nil {
		return errors.Wrap(err, "[Save] persist session")
	}
	return nil
}

// Get retrieves a session, or internal/errors.ErrNotFound when it never
// existed or its retention lapsed.
func (r *Sessions) Get(ctx context.Context, sessionID string) (*PollingSession, error) {
	data, err := r.store.Get(ctx, r.key(sessionID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Wrapf(interrors.ErrNotFound, "session %s", sessionID)
		}
		return nil, errors.Wrap(err, "[Get] read session")
	}

	var sess PollingSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, errors.Wrap(err, "[Get] unmarshal session")
	}
	return &sess, nil
}

func (r *Sessions) Delete(ctx context.Context, sessionID string) error {
	return r.store.Delete(ctx, r.key(sessionID))
}
