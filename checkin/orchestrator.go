package checkin

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/halvax/qrcheckin/credential"
	"github.com/halvax/qrcheckin/notify"
	"github.com/halvax/qrcheckin/onetime"
)

// Result is what one orchestrator tick decided. When LoginRequired is set,
// no (successful) check-in happened and a fresh one-time reference was
// minted and handed to the notifier.
type Result struct {
	Outcome       *Outcome // nil when no check-in was attempted
	LoginRequired bool
}

// Orchestrator is the top-level policy executed on every trigger: reuse the
// cached credential if it is still usable, otherwise request
// re-authentication. Manual and scheduled triggers run the identical
// procedure; overlapping invocations are not deduplicated.
type Orchestrator struct {
	credentials *credential.Manager
	submitter   Submitter
	references  *onetime.Issuer
	notifier    notify.Notifier
	logger      zerolog.Logger
}

// OrchestratorOption defines a function type to modify the Orchestrator instance.
type OrchestratorOption func(*Orchestrator)

// WithNotifier sets the collaborator informed of outcomes.
func WithNotifier(n notify.Notifier) OrchestratorOption {
	return func(o *Orchestrator) {
		o.notifier = n
	}
}

// WithLogger sets the structured event logger.
func WithLogger(logger zerolog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func NewOrchestrator(credentials *credential.Manager, submitter Submitter, references *onetime.Issuer, options ...OrchestratorOption) (*Orchestrator, error) {
	if credentials == nil {
		return nil, errors.New("[NewOrchestrator] credential manager is required")
	}
	if submitter == nil {
		return nil, errors.New("[NewOrchestrator] submitter is required")
	}
	if references == nil {
		return nil, errors.New("[NewOrchestrator] one-time issuer is required")
	}

	o := &Orchestrator{
		credentials: credentials,
		submitter:   submitter,
		references:  references,
		notifier:    notify.NoOp{},
		logger:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(o)
	}
	return o, nil
}

// RunTick executes one evaluation of the check-in policy. Errors are
// infrastructure failures only (store unreachable); every provider-side
// outcome, including hard failures, resolves into a Result.
func (o *Orchestrator) RunTick(ctx context.Context) (Result, error) {
	rec, err := o.credentials.Load(ctx)
	if err != nil {
		return Result{}, errors.Wrap(err, "[RunTick] load credential")
	}

	reason := "credential_missing"
	if rec != nil {
		reason = "credential_expired"
	}

	var outcome *Outcome
	if o.credentials.IsValid(rec) {
		attempted := o.attempt(ctx, rec.Token)
		outcome = &attempted

		o.logger.Info().
			Str("classification", string(attempted.Classification)).
			Str("detail", attempted.Detail).
			Msg("check-in attempted")

		switch attempted.Classification {
		case ClassificationSuccess:
			o.send(ctx, notify.KindCheckinSuccess, map[string]string{"detail": attempted.Detail})
			return Result{Outcome: outcome}, nil
		case ClassificationSoftFailure:
			o.send(ctx, notify.KindCheckinSoftFailure, map[string]string{"detail": attempted.Detail})
			return Result{Outcome: outcome}, nil
		}

		// Hard failure: the credential is presumed stale, fall through to
		// re-authentication.
		reason = "credential_rejected"
	} else {
		o.logger.Info().Str("reason", reason).Msg("no usable credential")
	}

	reference, err := o.references.Mint(ctx, onetime.PurposeLogin)
	if err != nil {
		return Result{Outcome: outcome}, errors.Wrap(err, "[RunTick] mint login reference")
	}

	payload := map[string]string{
		"reference": reference,
		"reason":    reason,
	}
	if outcome != nil {
		payload["detail"] = outcome.Detail
	}
	o.send(ctx, notify.KindLoginRequired, payload)

	return Result{Outcome: outcome, LoginRequired: true}, nil
}

func (o *Orchestrator) attempt(ctx context.Context, token string) Outcome {
	detail, err := o.submitter.Submit(ctx, token)
	if err != nil {
		return Outcome{Classification: ClassificationHardFailure, Detail: err.Error()}
	}
	return Classify(detail)
}

// send delivers a notification; failures are logged and swallowed so the
// notifier can never block or retry the primary classification.
func (o *Orchestrator) send(ctx context.Context, kind notify.Kind, payload map[string]string) {
	if err := o.notifier.Notify(ctx, kind, payload); err != nil {
		o.logger.Warn().Err(err).Str("kind", string(kind)).Msg("notifier failed")
	}
}
