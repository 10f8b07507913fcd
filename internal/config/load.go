package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides,
// e.g. PROMPTTICK_OPENAI_MODEL overrides openai.model.
const EnvPrefix = "PROMPTTICK"

// ErrInvalidConfig is returned when configuration cannot be read or fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// setDefaults registers every key viper should know about. Keys need a
// default (even an empty one) for environment overrides to reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("input_dir", "")
	v.SetDefault("output_dir", "")
	v.SetDefault("log_dir", "")
	v.SetDefault("state_path", "")
	v.SetDefault("file_extensions", []string{})
	v.SetDefault("ordering", "name")
	v.SetDefault("log_level", "info")
	v.SetDefault("batch_size", 1)
	v.SetDefault("interval_seconds", 5.0)
	v.SetDefault("adapter", "echo")

	v.SetDefault("generic_http.url", "")
	v.SetDefault("generic_http.method", "POST")
	v.SetDefault("generic_http.body_template", "")
	v.SetDefault("generic_http.timeout", 60.0)
	v.SetDefault("generic_http.response_json_pointer", "")
	v.SetDefault("generic_http.retries.max_attempts", 1)
	v.SetDefault("generic_http.retries.backoff_seconds", 1.0)
	v.SetDefault("generic_http.retries.retry_on_status", []int{})

	v.SetDefault("openai.model", "gpt-4.1-mini")
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("openai.max_output_tokens", 800)
	v.SetDefault("openai.system_prompt", "")
	v.SetDefault("openai.max_attempts", 3)
	v.SetDefault("openai.base_backoff", 1.0)
	v.SetDefault("openai.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.timeout", 120.0)

	v.SetDefault("local.engine", "cmd")
	v.SetDefault("local.model", "")
	v.SetDefault("local.timeout_seconds", 120.0)
	v.SetDefault("local.workdir", "")
	v.SetDefault("local.command_template", "")
	v.SetDefault("local.args", []string{})
	v.SetDefault("local.output_mode", "stdout")
	v.SetDefault("local.out_suffix", ".out.txt")

	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("gemini.max_output_tokens", 800)
	v.SetDefault("gemini.system_prompt", "")
	v.SetDefault("gemini.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("gemini.max_attempts", 3)
	v.SetDefault("gemini.base_backoff", 1.0)
	v.SetDefault("gemini.base_url", "")

	v.SetDefault("state.backend", "file")
	v.SetDefault("state.database_url", "")
	v.SetDefault("state.table_name", "prompttick_db_version")

	v.SetDefault("output_mirror.enabled", false)
	v.SetDefault("output_mirror.endpoint", "")
	v.SetDefault("output_mirror.bucket", "")
	v.SetDefault("output_mirror.prefix", "outputs")
	v.SetDefault("output_mirror.region", "us-east-1")
	v.SetDefault("output_mirror.access_key", "")
	v.SetDefault("output_mirror.secret_key", "")
	v.SetDefault("output_mirror.use_ssl", false)

	v.SetDefault("failure_policy.max_consecutive_failures", 0)
	v.SetDefault("failure_policy.tracked_paths", 1024)
}

// Load reads the YAML file at path, applies PROMPTTICK_* environment
// overrides on top of it and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: failed to read config file %s: %v", ErrInvalidConfig, path, err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to decode config: %v", ErrInvalidConfig, err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// normalize canonicalises values that are accepted in several spellings.
func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "warning":
		c.LogLevel = "warn"
	case "critical", "fatal":
		c.LogLevel = "error"
	}

	c.Ordering = strings.ToLower(strings.TrimSpace(c.Ordering))
	c.Adapter = strings.ToLower(strings.TrimSpace(c.Adapter))
	c.State.Backend = strings.ToLower(strings.TrimSpace(c.State.Backend))
	c.Local.OutputMode = strings.ToLower(strings.TrimSpace(c.Local.OutputMode))

	for i, ext := range c.FileExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.FileExtensions[i] = ext
	}
}

// Validate checks the struct tags on c.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// EffectiveBatchSize returns BatchSize clamped to at least 1.
func (c *Config) EffectiveBatchSize() int {
	if c.BatchSize < 1 {
		return 1
	}
	return c.BatchSize
}
