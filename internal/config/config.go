package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const configFileEnvVar = "CONFIG_FILE"

type Config interface {
	EnvConfig
	CorsConfig
	RemoteConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetHostURL() string
	GetDatabasePath() string
	GetRedisAddr() string
	GetSecretKey() string
	GetHostTokenSecret() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Remote
}

// New builds the service configuration. Environment variables always win;
// when CONFIG_FILE points at a YAML file its keys (lower-cased env var names)
// are used as fallbacks.
func New() (Config, error) {
	file := viper.New()
	if path := os.Getenv(configFileEnvVar); path != "" {
		file.SetConfigFile(path)
		file.SetConfigType("yaml")
		if err := file.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
	}
	return mainConfig{
		EnvVars: EnvVars{file: file},
		Cors:    Cors{file: file},
		Remote:  Remote{file: file},
	}, nil
}

func lookup(file *viper.Viper, envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	if file != nil {
		if value := file.GetString(strings.ToLower(envVar)); value != "" {
			return value
		}
	}
	return defaultValue
}
