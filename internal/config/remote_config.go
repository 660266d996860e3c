package config

import (
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// RemoteConfig holds the tunables of the remote groupware conversation.
type RemoteConfig interface {
	GetUserAgent() string
	GetUserAgentVersion() string
	GetTokenSafetyMargin() time.Duration
	GetTwoFactorWindow() time.Duration
	GetEventWindow() time.Duration
	GetDefaultContactsCacheTTL() time.Duration
	GetHTTPTimeout() time.Duration
}

type Remote struct {
	file *viper.Viper
}

var _ RemoteConfig = Remote{}

func (r Remote) GetUserAgent() string {
	return lookup(r.file, "USER_AGENT", "Nextcloud Zimbra integration")
}

func (Remote) GetUserAgentVersion() string {
	return "1.0.0"
}

// GetTokenSafetyMargin is how long before expiry a token is considered stale.
func (Remote) GetTokenSafetyMargin() time.Duration {
	return time.Minute
}

// GetTwoFactorWindow is how long after a successful second factor pre-auth may stand in for it.
func (Remote) GetTwoFactorWindow() time.Duration {
	return 30 * 24 * time.Hour
}

func (Remote) GetEventWindow() time.Duration {
	return 30 * 24 * time.Hour
}

func (Remote) GetDefaultContactsCacheTTL() time.Duration {
	return 600 * time.Second
}

func (r Remote) GetHTTPTimeout() time.Duration {
	seconds, err := strconv.Atoi(lookup(r.file, "HTTP_TIMEOUT_SECONDS", "30"))
	if err != nil || seconds <= 0 {
		seconds = 30
	}
	return time.Duration(seconds) * time.Second
}
