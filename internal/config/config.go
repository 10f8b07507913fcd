package config

// Config holds all application configuration.
// Top-level keys describe the pipeline itself; adapter and backend settings
// live in their own sections.
type Config struct {
	InputDir       string   `mapstructure:"input_dir" validate:"required"`
	OutputDir      string   `mapstructure:"output_dir" validate:"required"`
	LogDir         string   `mapstructure:"log_dir" validate:"required"`
	StatePath      string   `mapstructure:"state_path" validate:"required"`
	FileExtensions []string `mapstructure:"file_extensions" validate:"required,min=1,dive,required"`
	Ordering       string   `mapstructure:"ordering" validate:"required"`
	LogLevel       string   `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// BatchSize caps the files handled per round. Values below 1 mean 1.
	BatchSize int `mapstructure:"batch_size"`
	// IntervalSeconds is the pause between rounds in loop mode (minimum 1).
	IntervalSeconds float64 `mapstructure:"interval_seconds" validate:"gte=0"`
	// Adapter names the generation backend, see adapter.New.
	Adapter string `mapstructure:"adapter" validate:"required"`

	GenericHTTP   GenericHTTPConfig   `mapstructure:"generic_http"`
	OpenAI        OpenAIConfig        `mapstructure:"openai"`
	Local         LocalConfig         `mapstructure:"local"`
	Gemini        GeminiConfig        `mapstructure:"gemini"`
	State         StateConfig         `mapstructure:"state"`
	OutputMirror  OutputMirrorConfig  `mapstructure:"output_mirror"`
	FailurePolicy FailurePolicyConfig `mapstructure:"failure_policy"`
}

// RetriesConfig is the retry block of the generic HTTP adapter.
type RetriesConfig struct {
	MaxAttempts    int     `mapstructure:"max_attempts" validate:"gte=0"`
	BackoffSeconds float64 `mapstructure:"backoff_seconds"`
	RetryOnStatus  []int   `mapstructure:"retry_on_status" validate:"dive,gte=100,lt=600"`
}

// GenericHTTPConfig configures the templated REST adapter.
type GenericHTTPConfig struct {
	URL                 string            `mapstructure:"url" validate:"omitempty,url"`
	Method              string            `mapstructure:"method"`
	Headers             map[string]string `mapstructure:"headers"`
	BodyTemplate        string            `mapstructure:"body_template"`
	Timeout             float64           `mapstructure:"timeout" validate:"gte=0"`
	ResponseJSONPointer string            `mapstructure:"response_json_pointer"`
	Retries             RetriesConfig     `mapstructure:"retries"`
}

// OpenAIConfig configures the OpenAI Responses API adapter.
type OpenAIConfig struct {
	Model           string            `mapstructure:"model"`
	Temperature     float64           `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxOutputTokens int64             `mapstructure:"max_output_tokens" validate:"gte=0"`
	SystemPrompt    string            `mapstructure:"system_prompt"`
	ExtraHeaders    map[string]string `mapstructure:"extra_headers"`
	MaxAttempts     int               `mapstructure:"max_attempts" validate:"gte=0"`
	BaseBackoff     float64           `mapstructure:"base_backoff"`
	APIKeyEnv       string            `mapstructure:"api_key_env"`
	BaseURL         string            `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout         float64           `mapstructure:"timeout" validate:"gte=0"`
}

// LocalConfig configures the local subprocess adapter.
type LocalConfig struct {
	Engine          string            `mapstructure:"engine"`
	Model           string            `mapstructure:"model"`
	TimeoutSeconds  float64           `mapstructure:"timeout_seconds" validate:"gte=0"`
	Workdir         string            `mapstructure:"workdir"`
	Env             map[string]string `mapstructure:"env"`
	CommandTemplate string            `mapstructure:"command_template"`
	Args            []string          `mapstructure:"args"`
	OutputMode      string            `mapstructure:"output_mode" validate:"omitempty,oneof=stdout file"`
	OutSuffix       string            `mapstructure:"out_suffix"`
}

// GeminiConfig configures the Gemini adapter.
type GeminiConfig struct {
	Model           string  `mapstructure:"model"`
	Temperature     float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxOutputTokens int32   `mapstructure:"max_output_tokens" validate:"gte=0"`
	SystemPrompt    string  `mapstructure:"system_prompt"`
	APIKeyEnv       string  `mapstructure:"api_key_env"`
	MaxAttempts     int     `mapstructure:"max_attempts" validate:"gte=0"`
	BaseBackoff     float64 `mapstructure:"base_backoff"`
	BaseURL         string  `mapstructure:"base_url" validate:"omitempty,url"`
}

// StateConfig selects where the processed set is persisted.
type StateConfig struct {
	Backend     string `mapstructure:"backend" validate:"oneof=file postgres"`
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Backend postgres"`
	TableName   string `mapstructure:"table_name"`
}

// OutputMirrorConfig configures uploading outputs to S3-compatible storage.
type OutputMirrorConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Bucket    string `mapstructure:"bucket" validate:"required_if=Enabled true"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// FailurePolicyConfig controls quarantine of files that keep failing.
type FailurePolicyConfig struct {
	// MaxConsecutiveFailures quarantines a file after this many failed rounds.
	// Zero disables quarantine.
	MaxConsecutiveFailures int `mapstructure:"max_consecutive_failures" validate:"gte=0"`
	TrackedPaths           int `mapstructure:"tracked_paths" validate:"gte=0"`
}
