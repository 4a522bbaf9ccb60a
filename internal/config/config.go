package config

type Config interface {
	EnvConfig
	ProviderConfig
	CheckinConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetOnetimeSigningSecret() string
	GetSmtpHost() string
	GetSmtpPort() string
	GetSmtpPassword() string
	GetSmtpAccount() string
	GetSmtpRecipient() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Provider
	Checkin
}

func New() Config {
	return mainConfig{}
}
