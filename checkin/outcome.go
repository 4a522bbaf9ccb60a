package checkin

import "strings"

// Classification buckets one check-in attempt's result.
type Classification string

const (
	// ClassificationSuccess means the check-in was accepted.
	ClassificationSuccess Classification = "SUCCESS"
	// ClassificationSoftFailure is a known, non-auth rejection: nothing is
	// wrong with the credential and retrying with a fresh login won't help.
	ClassificationSoftFailure Classification = "SOFT_FAILURE"
	// ClassificationHardFailure is everything else, including network
	// failures; the credential is presumed stale.
	ClassificationHardFailure Classification = "HARD_FAILURE"
)

// Outcome is the result of one check-in attempt. Produced and consumed
// within a single orchestrator tick, never persisted.
type Outcome struct {
	Classification Classification
	Detail         string
}

var successMarkers = []string{
	"success",
	"checked in",
}

// Known semantic rejections from the check-in endpoint. These are
// actionable for the operator as-is and don't indicate a credential
// problem.
var softFailureMarkers = []string{
	"already completed",
	"already checked in",
	"not in allowed time window",
	"outside the allowed window",
}

// Classify maps the check-in endpoint's textual response onto the outcome
// taxonomy. Matching is substring-based and case-insensitive; anything not
// recognized is a hard failure. Soft-failure markers are checked first:
// "already checked in" contains the success marker "checked in" and must
// not be mistaken for a fresh success.
func Classify(detail string) Outcome {
	lowered := strings.ToLower(detail)

	for _, marker := range softFailureMarkers {
		if strings.Contains(lowered, marker) {
			return Outcome{Classification: ClassificationSoftFailure, Detail: detail}
		}
	}
	for _, marker := range successMarkers {
		if strings.Contains(lowered, marker) {
			return Outcome{Classification: ClassificationSuccess, Detail: detail}
		}
	}
	return Outcome{Classification: ClassificationHardFailure, Detail: detail}
}
