package hook

import (
	"fmt"
	"time"

	"github.com/tr181-tools/tr181-go/pkg/faults"
)

// Configuration defaults.
const (
	// DefaultTimeout is the per-call timeout in seconds.
	DefaultTimeout = 30

	// DefaultRetryCount is the retry budget suggested to the resilience
	// layer.
	DefaultRetryCount = 3
)

// TLSSettings carries optional transport security material for hooks that
// dial TLS endpoints.
type TLSSettings struct {
	// CAFile is a PEM file with the CA bundle to trust.
	CAFile string `json:"ca_file,omitempty" yaml:"ca_file,omitempty"`

	// CertFile and KeyFile are an optional client certificate pair.
	CertFile string `json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty" yaml:"key_file,omitempty"`

	// InsecureSkipVerify disables server certificate verification. Lab use
	// only.
	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify,omitempty"`
}

// DeviceConfig describes how to reach one managed device.
type DeviceConfig struct {
	// Name labels the configuration in the named-config store.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Type selects the hook implementation ("cwmp", "rest", "snmp").
	Type string `json:"type" yaml:"type"`

	// Endpoint is the device management address (host:port or URL,
	// depending on the hook).
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Authentication holds hook-specific credentials (username, password,
	// token, community, ...).
	Authentication map[string]any `json:"authentication,omitempty" yaml:"authentication,omitempty"`

	// Timeout is the per-call timeout in seconds. Zero means
	// DefaultTimeout.
	Timeout int `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// RetryCount is the retry budget for the resilience layer. Zero means
	// DefaultRetryCount.
	RetryCount int `json:"retry_count,omitempty" yaml:"retry_count,omitempty"`

	// TLS is optional transport security material.
	TLS *TLSSettings `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// Normalized returns a copy with defaults applied.
func (c DeviceConfig) Normalized() DeviceConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RetryCount <= 0 {
		c.RetryCount = DefaultRetryCount
	}
	return c
}

// Validate checks the fields every hook needs.
func (c DeviceConfig) Validate() error {
	if c.Type == "" {
		return faults.Configuration("device type is empty", nil)
	}
	if c.Endpoint == "" {
		return faults.Configuration(fmt.Sprintf("device %q has no endpoint", c.Name), nil)
	}
	return nil
}

// TimeoutDuration returns the per-call timeout as a duration.
func (c DeviceConfig) TimeoutDuration() time.Duration {
	t := c.Timeout
	if t <= 0 {
		t = DefaultTimeout
	}
	return time.Duration(t) * time.Second
}

// AuthString returns a string credential by key, or "" when absent or not a
// string.
func (c DeviceConfig) AuthString(key string) string {
	if c.Authentication == nil {
		return ""
	}
	if s, ok := c.Authentication[key].(string); ok {
		return s
	}
	return ""
}

// AuthInt returns an integer credential by key, or fallback when absent.
func (c DeviceConfig) AuthInt(key string, fallback int) int {
	if c.Authentication == nil {
		return fallback
	}
	switch v := c.Authentication[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
