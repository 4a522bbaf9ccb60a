package config

import (
	"time"
)

type CheckinConfig interface {
	GetCheckinEndpoint() string
	GetScheduleInterval() time.Duration
	GetSessionTTL() time.Duration
	GetTerminalSessionTTL() time.Duration
	GetInactivityBound() time.Duration
	GetCredentialMinTTL() time.Duration
	GetCredentialDefaultHorizon() time.Duration
	GetOnetimeTTL() time.Duration
}

type Checkin struct{}

var _ CheckinConfig = Checkin{}

func (Checkin) GetCheckinEndpoint() string {
	return GetEnv("CHECKIN_ENDPOINT", "")
}

func (Checkin) GetScheduleInterval() time.Duration {
	if raw := GetEnv("SCHEDULE_INTERVAL", ""); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
	}
	return 24 * time.Hour
}

// GetSessionTTL is the retention for sessions still waiting on a scan, so
// abandoned attempts are reclaimed quickly.
func (Checkin) GetSessionTTL() time.Duration {
	return 5 * time.Minute
}

// GetTerminalSessionTTL is the retention once a session reaches a terminal
// state, long enough for a status query to observe the final outcome.
func (Checkin) GetTerminalSessionTTL() time.Duration {
	return 1 * time.Hour
}

func (Checkin) GetInactivityBound() time.Duration {
	return 5 * time.Minute
}

func (Checkin) GetCredentialMinTTL() time.Duration {
	return 5 * time.Minute
}

// GetCredentialDefaultHorizon is the assumed lifetime of an exchanged
// credential when the provider omits an expiry.
func (Checkin) GetCredentialDefaultHorizon() time.Duration {
	return 12 * time.Hour
}

func (Checkin) GetOnetimeTTL() time.Duration {
	return 24 * time.Hour
}
