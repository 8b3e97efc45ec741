// Package config provides configuration loading and validation for the
// agent runner. It handles YAML config files, environment variables,
// and the encrypted secrets file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"agentrunner/pkg/middleware/resilience/circuit"
	"agentrunner/pkg/middleware/resilience/retry"
)

// Provider names accepted in model configuration.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// Environment variables holding provider API keys.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvGoogleAPIKey    = "GEMINI_API_KEY"
)

// Duration wraps time.Duration so YAML configs can use values like
// "30s" or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// AgentConfig bounds the execution loop.
type AgentConfig struct {
	MaxSteps    int      `yaml:"max_steps"`
	StepTimeout Duration `yaml:"step_timeout"`
	// MaxContextTokens caps the rendered transcript in each prompt;
	// older steps are compacted away beyond it.
	MaxContextTokens int `yaml:"max_context_tokens"`
}

// ModelCfg selects one provider-backed model endpoint.
type ModelCfg struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	// Host applies to the ollama provider only.
	Host string `yaml:"host,omitempty"`
}

// ModelsConfig names the primary model and an optional fallback used
// when the primary is unavailable.
type ModelsConfig struct {
	Primary     ModelCfg  `yaml:"primary"`
	Fallback    *ModelCfg `yaml:"fallback,omitempty"`
	MaxTokens   int       `yaml:"max_tokens"`
	Temperature float32   `yaml:"temperature"`
}

// RetryConfig mirrors retry.Config with YAML-friendly durations.
type RetryConfig struct {
	MaxAttempts   int      `yaml:"max_attempts"`
	InitialDelay  Duration `yaml:"initial_delay"`
	MaxDelay      Duration `yaml:"max_delay"`
	BackoffFactor float64  `yaml:"backoff_factor"`
	Jitter        bool     `yaml:"jitter"`
}

// BreakerConfig mirrors circuit.Config with YAML-friendly durations.
type BreakerConfig struct {
	FailureThreshold int      `yaml:"failure_threshold"`
	SuccessThreshold int      `yaml:"success_threshold"`
	Cooldown         Duration `yaml:"cooldown"`
}

// ResilienceConfig groups retry, circuit breaker, and timeout settings
// applied to model calls and tool invocations.
type ResilienceConfig struct {
	Retry          RetryConfig   `yaml:"retry"`
	CircuitBreaker BreakerConfig `yaml:"circuit_breaker"`
	RequestTimeout Duration      `yaml:"request_timeout"`
	ToolTimeout    Duration      `yaml:"tool_timeout"`
}

// TelemetryConfig controls step event logging and metrics exposure.
type TelemetryConfig struct {
	LogDir        string `yaml:"log_dir"`
	MetricsAddr   string `yaml:"metrics_addr,omitempty"`
	PrometheusURL string `yaml:"prometheus_url,omitempty"`
}

// StorageConfig controls transcript persistence.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// Config is the root configuration for the agent runner.
type Config struct {
	Agent      AgentConfig      `yaml:"agent"`
	Models     ModelsConfig     `yaml:"models"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Storage    StorageConfig    `yaml:"storage"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			MaxSteps:         10,
			StepTimeout:      Duration(2 * time.Minute),
			MaxContextTokens: 65536,
		},
		Models: ModelsConfig{
			Primary: ModelCfg{
				Provider: ProviderAnthropic,
			},
			MaxTokens:   4096,
			Temperature: 0.2,
		},
		Resilience: ResilienceConfig{
			Retry: RetryConfig{
				MaxAttempts:   3,
				InitialDelay:  Duration(100 * time.Millisecond),
				MaxDelay:      Duration(10 * time.Second),
				BackoffFactor: 2.0,
				Jitter:        true,
			},
			CircuitBreaker: BreakerConfig{
				FailureThreshold: 5,
				SuccessThreshold: 1,
				Cooldown:         Duration(30 * time.Second),
			},
			RequestTimeout: Duration(60 * time.Second),
			ToolTimeout:    Duration(30 * time.Second),
		},
		Telemetry: TelemetryConfig{
			LogDir: "logs",
		},
		Storage: StorageConfig{
			DBPath: "agentrunner.db",
		},
	}
}

// Load reads and validates a YAML config file. Missing sections fall
// back to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Agent.MaxSteps < 1 {
		return fmt.Errorf("agent.max_steps must be at least 1, got %d", c.Agent.MaxSteps)
	}
	if c.Agent.StepTimeout.Std() <= 0 {
		return fmt.Errorf("agent.step_timeout must be positive")
	}
	if c.Agent.MaxContextTokens < 0 {
		return fmt.Errorf("agent.max_context_tokens must not be negative, got %d", c.Agent.MaxContextTokens)
	}
	if err := validateProvider(c.Models.Primary.Provider); err != nil {
		return fmt.Errorf("models.primary: %w", err)
	}
	if c.Models.Fallback != nil {
		if err := validateProvider(c.Models.Fallback.Provider); err != nil {
			return fmt.Errorf("models.fallback: %w", err)
		}
	}
	if c.Models.MaxTokens < 1 {
		return fmt.Errorf("models.max_tokens must be at least 1, got %d", c.Models.MaxTokens)
	}
	if c.Models.Temperature < 0 || c.Models.Temperature > 1 {
		return fmt.Errorf("models.temperature must be between 0 and 1, got %f", c.Models.Temperature)
	}
	if c.Resilience.Retry.MaxAttempts < 1 {
		return fmt.Errorf("resilience.retry.max_attempts must be at least 1, got %d", c.Resilience.Retry.MaxAttempts)
	}
	if c.Resilience.CircuitBreaker.FailureThreshold < 1 {
		return fmt.Errorf("resilience.circuit_breaker.failure_threshold must be at least 1")
	}
	if c.Resilience.RequestTimeout.Std() <= 0 {
		return fmt.Errorf("resilience.request_timeout must be positive")
	}
	return nil
}

func validateProvider(provider string) error {
	switch provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGoogle, ProviderOllama:
		return nil
	case "":
		return fmt.Errorf("provider is required")
	default:
		return fmt.Errorf("unknown provider %q", provider)
	}
}

// RetryPolicy converts the retry section to the resilience package's
// config type.
func (c *Config) RetryPolicy() retry.Config {
	return retry.Config{
		MaxAttempts:   c.Resilience.Retry.MaxAttempts,
		InitialDelay:  c.Resilience.Retry.InitialDelay.Std(),
		MaxDelay:      c.Resilience.Retry.MaxDelay.Std(),
		BackoffFactor: c.Resilience.Retry.BackoffFactor,
		Jitter:        c.Resilience.Retry.Jitter,
	}
}

// BreakerPolicy converts the circuit breaker section to the resilience
// package's config type.
func (c *Config) BreakerPolicy() circuit.Config {
	return circuit.Config{
		FailureThreshold: c.Resilience.CircuitBreaker.FailureThreshold,
		SuccessThreshold: c.Resilience.CircuitBreaker.SuccessThreshold,
		Cooldown:         c.Resilience.CircuitBreaker.Cooldown.Std(),
	}
}

// APIKeyFor resolves the API key for a provider using secrets file then
// environment precedence. Ollama needs no key.
func APIKeyFor(provider string) (string, error) {
	var envName string
	switch provider {
	case ProviderAnthropic:
		envName = EnvAnthropicAPIKey
	case ProviderOpenAI:
		envName = EnvOpenAIAPIKey
	case ProviderGoogle:
		envName = EnvGoogleAPIKey
	case ProviderOllama:
		return "", nil
	default:
		return "", fmt.Errorf("unknown provider %q", provider)
	}

	key, err := GetSecret(envName)
	if err != nil {
		return "", fmt.Errorf("API key for provider %s: %w", provider, err)
	}
	return key, nil
}
