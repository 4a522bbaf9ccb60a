package notifyfakes

import (
	"context"
	"sync"

	"github.com/halvax/qrcheckin/notify"
)

var _ notify.Notifier = (*FakeNotifier)(nil)

// Sent is one recorded notification.
type Sent struct {
	Kind    notify.Kind
	Payload map[string]string
}

// FakeNotifier records every notification for assertion in tests. When Err
// is set it is returned from Notify, which lets tests verify that notifier
// failures never alter the caller's control flow.
type FakeNotifier struct {
	mu   sync.Mutex
	sent []Sent
	Err  error
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

func (f *FakeNotifier) Notify(_ context.Context, kind notify.Kind, payload map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := make(map[string]string, len(payload))
	for k, v := range payload {
		copied[k] = v
	}
	f.sent = append(f.sent, Sent{Kind: kind, Payload: copied})
	return f.Err
}

// Sent returns the notifications recorded so far.
func (f *FakeNotifier) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Sent, len(f.sent))
	copy(out, f.sent)
	return out
}

// ByKind returns recorded notifications of one kind.
func (f *FakeNotifier) ByKind(kind notify.Kind) []Sent {
	var out []Sent
	for _, s := range f.Sent() {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}
