package config

import "time"

// ProviderConfig describes the third-party QR login provider endpoint.
// Values come from the environment so deployments never carry endpoint
// constants in code.
type ProviderConfig interface {
	GetProviderBaseURL() string
	GetProviderClientID() string
	GetProviderUserAgent() string
	GetProviderTimeout() time.Duration
}

type Provider struct{}

var _ ProviderConfig = Provider{}

func (Provider) GetProviderBaseURL() string {
	return GetEnv("PROVIDER_BASE_URL", "https://passport.example.com")
}

func (Provider) GetProviderClientID() string {
	return GetEnv("PROVIDER_CLIENT_ID", "")
}

func (Provider) GetProviderUserAgent() string {
	return GetEnv("PROVIDER_USER_AGENT", "qrcheckin/1.0")
}

func (Provider) GetProviderTimeout() time.Duration {
	return 15 * time.Second
}
