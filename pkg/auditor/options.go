package auditor

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// SettingsPrefix marks the keys of a settings mapping that configure the auditor.
const SettingsPrefix = "AUDIT_LOGGER_"

// Options controls which fields are extracted and how records are dispatched.
type Options struct {
	SourceName     string `mapstructure:"source_name"`
	DatetimeFormat string `mapstructure:"datetime_format"` // Go time layout
	NotAvailable   any    `mapstructure:"not_available"`

	// Skip disables auditing entirely; adapters pass requests through.
	Skip bool `mapstructure:"skip"`

	LogServer         bool `mapstructure:"log_server"`
	LogLatency        bool `mapstructure:"log_latency"`
	LogProtocol       bool `mapstructure:"log_protocol"`
	LogRemoteIP       bool `mapstructure:"log_remote_ip"`
	LogRemotePort     bool `mapstructure:"log_remote_port"`
	LogHost           bool `mapstructure:"log_host"`
	LogMethod         bool `mapstructure:"log_method"`
	LogURI            bool `mapstructure:"log_uri"`
	LogURIPath        bool `mapstructure:"log_uri_path"`
	LogRoutePath      bool `mapstructure:"log_route_path"`
	LogRequestID      bool `mapstructure:"log_request_id"`
	LogReferer        bool `mapstructure:"log_referer"`
	LogUserAgent      bool `mapstructure:"log_user_agent"`
	LogStatusCode     bool `mapstructure:"log_status_code"`
	LogStatus         bool `mapstructure:"log_status"`
	LogError          bool `mapstructure:"log_error"`
	LogContentLength  bool `mapstructure:"log_content_length"`
	LogResponseSize   bool `mapstructure:"log_response_size"`
	LogRequestHeaders bool `mapstructure:"log_request_headers"`
	LogQueryParams    bool `mapstructure:"log_query_params"`
	LogRequestBody    bool `mapstructure:"log_request_body"`

	// LogSensitiveData keeps DefaultSensitiveParameters in bodies and query strings.
	LogSensitiveData bool `mapstructure:"log_sensitive_data"`

	DefaultRequestHeaders      []string `mapstructure:"default_request_headers"`
	DefaultSensitiveParameters []string `mapstructure:"default_sensitive_parameters"`

	// MaxBodySize bounds the number of request body bytes kept for the record.
	MaxBodySize int `mapstructure:"max_body_size"`

	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

var optionDefaults = map[string]any{
	"source_name":         "auditLogger",
	"datetime_format":     "2006-01-02 15:04:05",
	"not_available":       "N/A",
	"skip":                false,
	"log_server":          true,
	"log_latency":         true,
	"log_protocol":        true,
	"log_remote_ip":       true,
	"log_remote_port":     true,
	"log_host":            true,
	"log_method":          true,
	"log_uri":             true,
	"log_uri_path":        true,
	"log_route_path":      true,
	"log_request_id":      true,
	"log_referer":         true,
	"log_user_agent":      true,
	"log_status_code":     true,
	"log_status":          true,
	"log_error":           true,
	"log_content_length":  true,
	"log_response_size":   true,
	"log_request_headers": true,
	"log_query_params":    true,
	"log_request_body":    true,
	"log_sensitive_data":  false,
	"default_request_headers": []string{
		"X-Forwarded-For",
		"Accept-Encoding",
		"Content-Type",
	},
	"default_sensitive_parameters": []string{
		"password",
		"pwd",
		"secret_key",
		"secretKey",
		"private_key",
		"privateKey",
	},
	"max_body_size": 64 << 10,
	"workers":       4,
	"queue_size":    1024,
}

// Keys returns the recognised option names.
func Keys() []string {
	keys := make([]string, 0, len(optionDefaults))
	for k := range optionDefaults {
		keys = append(keys, k)
	}
	return keys
}

func isOption(key string) bool {
	_, ok := optionDefaults[key]
	return ok
}

// SetDefaults registers every option default on v under prefix, e.g. "audit_logger.".
func SetDefaults(v *viper.Viper, prefix string) {
	for k, val := range optionDefaults {
		if list, ok := val.([]string); ok {
			val = append([]string(nil), list...)
		}
		v.SetDefault(prefix+k, val)
	}
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	v := viper.New()
	SetDefaults(v, "")
	var opts Options
	// defaults always decode
	_ = v.Unmarshal(&opts)
	return opts
}

// OptionsFromSettings builds Options from a flat settings mapping such as a
// framework's config. Only keys starting with SettingsPrefix are considered;
// the prefix is stripped and the rest lowercased. Unknown options and nil
// values are ignored.
func OptionsFromSettings(settings map[string]any) (Options, error) {
	v := viper.New()
	SetDefaults(v, "")
	for key, value := range settings {
		if !strings.HasPrefix(key, SettingsPrefix) || value == nil {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, SettingsPrefix))
		if !isOption(name) {
			continue
		}
		v.Set(name, value)
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return Options{}, &ConfigError{Field: "settings", Message: err.Error()}
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate checks that the options are usable.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.DatetimeFormat) == "" {
		return &ConfigError{Field: "datetime_format", Message: "must not be empty"}
	}
	if o.MaxBodySize < 0 {
		return &ConfigError{Field: "max_body_size", Message: fmt.Sprintf("must be >= 0, got %d", o.MaxBodySize)}
	}
	if o.Workers < 0 {
		return &ConfigError{Field: "workers", Message: fmt.Sprintf("must be >= 0, got %d", o.Workers)}
	}
	if o.QueueSize < 0 {
		return &ConfigError{Field: "queue_size", Message: fmt.Sprintf("must be >= 0, got %d", o.QueueSize)}
	}
	return nil
}

func (o *Options) workers() int {
	if o.Workers <= 0 {
		return 1
	}
	return o.Workers
}

func (o *Options) queueSize() int {
	if o.QueueSize <= 0 {
		return 1
	}
	return o.QueueSize
}

// bodyLimit is zero when request bodies are not recorded.
func (o *Options) bodyLimit() int {
	if !o.LogRequestBody {
		return 0
	}
	return o.MaxBodySize
}
