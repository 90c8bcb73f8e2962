package config

type Config interface {
	EnvConfig
	HTTPConfig
}

type EnvConfig interface {
	GetAppName() string
	GetBaseURL() string
	GetDataFolder() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	HTTP
}

func New() Config {
	return mainConfig{}
}
