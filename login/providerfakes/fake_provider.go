package providerfakes

import (
	"context"
	"sync"

	"github.com/halvax/qrcheckin/login"
)

var _ login.Provider = (*FakeProvider)(nil)

// PollStep is one scripted PollOnce outcome.
type PollStep struct {
	Signal login.Signal
	Err    error
}

// FakeProvider is a scripted login.Provider. PollOnce consumes the queued
// steps in order; once the queue is drained it keeps reporting
// SignalStillWaiting.
type FakeProvider struct {
	mu sync.Mutex

	CorrelationID   string
	RequestLoginErr error
	ChallengeBytes  []byte
	ChallengeErr    error
	ExchangeResult  login.Credential
	ExchangeErr     error

	steps         []PollStep
	PollCalls     int
	ExchangeCalls []string
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		CorrelationID:  "corr-1",
		ChallengeBytes: []byte("fake-png"),
	}
}

// Script appends poll outcomes to the queue.
func (f *FakeProvider) Script(steps ...PollStep) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, steps...)
}

func (f *FakeProvider) RequestLogin(context.Context) (string, error) {
	if f.RequestLoginErr != nil {
		return "", f.RequestLoginErr
	}
	return f.CorrelationID, nil
}

func (f *FakeProvider) RenderChallenge(context.Context, string) ([]byte, error) {
	if f.ChallengeErr != nil {
		return nil, f.ChallengeErr
	}
	return f.ChallengeBytes, nil
}

func (f *FakeProvider) PollOnce(context.Context, string) (login.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.PollCalls++
	if len(f.steps) == 0 {
		return login.Signal{Kind: login.SignalStillWaiting}, nil
	}
	step := f.steps[0]
	f.steps = f.steps[1:]
	return step.Signal, step.Err
}

func (f *FakeProvider) ExchangeCode(_ context.Context, code string) (login.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ExchangeCalls = append(f.ExchangeCalls, code)
	if f.ExchangeErr != nil {
		return login.Credential{}, f.ExchangeErr
	}
	return f.ExchangeResult, nil
}
