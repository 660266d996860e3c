package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	portEnvVar      = "PORT"
	appNameVar      = "APP_NAME"
	envVar          = "ENV"
	baseURLVar      = "BASE_URL"
	databasePathVar = "DATABASE_PATH"
	redisAddrVar    = "REDIS_ADDR"
	secretKeyVar    = "SECRET_KEY"
	hostSecretVar   = "HOST_TOKEN_SECRET"
	logLevelVar     = "LOG_LEVEL"
	hostURLVar      = "HOST_URL"
)

type EnvVars struct {
	file *viper.Viper
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.get(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.get(appNameVar, "Zimbra Connector")
}

func (e EnvVars) GetEnv() string {
	return e.get(envVar, "DEV")
}

// GetBaseURL returns the public URL of this connector (e.g., "https://cloud.example.com/zimbra").
// The OAuth redirect URI is derived from it.
func (e EnvVars) GetBaseURL() string {
	return strings.TrimRight(e.get(baseURLVar, "http://localhost:8080"), "/")
}

// GetHostURL returns the URL of the host application the OAuth redirect
// sends the browser back to.
func (e EnvVars) GetHostURL() string {
	return strings.TrimRight(e.get(hostURLVar, "http://localhost"), "/")
}

func (e EnvVars) GetDatabasePath() string {
	return e.get(databasePathVar, "./data/connector.db")
}

// GetRedisAddr returns the address of the distributed result cache. Empty
// means results are memoized in process.
func (e EnvVars) GetRedisAddr() string {
	return e.get(redisAddrVar, "")
}

// GetSecretKey returns the master key used to encrypt secrets at rest.
// Empty means the key is read from the OS keyring.
func (e EnvVars) GetSecretKey() string {
	return e.get(secretKeyVar, "")
}

func (e EnvVars) GetHostTokenSecret() string {
	return e.get(hostSecretVar, "")
}

func (e EnvVars) GetLogLevel() string {
	return e.get(logLevelVar, "info")
}

func (e EnvVars) get(name, defaultValue string) string {
	return lookup(e.file, name, defaultValue)
}

// GetEnv reads a single environment variable with a default.
func GetEnv(envVar, defaultValue string) string {
	return lookup(nil, envVar, defaultValue)
}
