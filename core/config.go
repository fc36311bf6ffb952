package core

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	DefaultAPIEndpoint             = "https://api.tdameritrade.com"
	DefaultAPIVersion              = "v1"
	DefaultAuthEndpoint            = "https://auth.tdameritrade.com/auth"
	DefaultTokenEndpoint           = "oauth2/token"
	DefaultClientIDSuffix          = "@AMER.OAUTHAP"
	DefaultRefreshThresholdSeconds = 5
)

// Config holds the provider endpoints and session behaviour switches.
// Refresh and state caching are enabled unless explicitly disabled.
//
// A Config passed to NewSession is the runtime layer: zero values there mean
// "not set" and never mask loaded or default values. A runtime config cannot
// set RefreshThresholdSeconds to 0 or ClientIDSuffix to "". Set those through
// the ConfigProvider instead, whose explicit zero values are kept.
type Config struct {
	ServiceName             string `koanf:"service_name" mapstructure:"service_name"`
	APIEndpoint             string `koanf:"api_endpoint" mapstructure:"api_endpoint"`
	APIVersion              string `koanf:"api_version" mapstructure:"api_version"`
	AuthEndpoint            string `koanf:"auth_endpoint" mapstructure:"auth_endpoint"`
	TokenEndpoint           string `koanf:"token_endpoint" mapstructure:"token_endpoint"`
	ClientIDSuffix          string `koanf:"client_id_suffix" mapstructure:"client_id_suffix"`
	RefreshThresholdSeconds int64  `koanf:"refresh_threshold_seconds" mapstructure:"refresh_threshold_seconds"`
	DisableRefresh          bool   `koanf:"disable_refresh" mapstructure:"disable_refresh"`
	DisableStateCache       bool   `koanf:"disable_state_cache" mapstructure:"disable_state_cache"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:             "brokerage",
		APIEndpoint:             DefaultAPIEndpoint,
		APIVersion:              DefaultAPIVersion,
		AuthEndpoint:            DefaultAuthEndpoint,
		TokenEndpoint:           DefaultTokenEndpoint,
		ClientIDSuffix:          DefaultClientIDSuffix,
		RefreshThresholdSeconds: DefaultRefreshThresholdSeconds,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if err := validateAbsoluteURL("api_endpoint", c.APIEndpoint); err != nil {
		return err
	}
	if err := validateAbsoluteURL("auth_endpoint", c.AuthEndpoint); err != nil {
		return err
	}
	if strings.TrimSpace(c.APIVersion) == "" {
		return fmt.Errorf("core: api_version is required")
	}
	if strings.TrimSpace(c.TokenEndpoint) == "" {
		return fmt.Errorf("core: token_endpoint is required")
	}
	if c.RefreshThresholdSeconds < 0 {
		return fmt.Errorf("core: refresh_threshold_seconds must not be negative")
	}
	return nil
}

func (c Config) RefreshEnabled() bool {
	return !c.DisableRefresh
}

func (c Config) CacheState() bool {
	return !c.DisableStateCache
}

func validateAbsoluteURL(field string, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("core: %s is required", field)
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("core: %s must be an absolute url, got %q", field, value)
	}
	return nil
}
