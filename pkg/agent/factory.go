package agent

import (
	"fmt"

	"agentrunner/pkg/config"
	"agentrunner/pkg/llm"
	"agentrunner/pkg/llmimpl/anthropic"
	"agentrunner/pkg/llmimpl/google"
	"agentrunner/pkg/llmimpl/ollama"
	"agentrunner/pkg/llmimpl/openai"
	"agentrunner/pkg/logx"
	"agentrunner/pkg/middleware/metrics"
	"agentrunner/pkg/middleware/resilience/circuit"
	"agentrunner/pkg/middleware/resilience/fallback"
	"agentrunner/pkg/middleware/resilience/retry"
	"agentrunner/pkg/middleware/resilience/timeout"
)

// ClientFactory creates model clients with their full middleware chain.
type ClientFactory struct {
	cfg      *config.Config
	recorder metrics.Recorder
	breakers map[string]circuit.Breaker
	logger   *logx.Logger
}

// NewClientFactory creates a factory. Breakers are shared per provider
// so all clients for one provider see the same failure state.
func NewClientFactory(cfg *config.Config, recorder metrics.Recorder) *ClientFactory {
	if recorder == nil {
		recorder = &metrics.NopRecorder{}
	}

	breakerCfg := cfg.BreakerPolicy()
	breakers := make(map[string]circuit.Breaker)
	for _, provider := range []string{
		config.ProviderAnthropic,
		config.ProviderOpenAI,
		config.ProviderGoogle,
		config.ProviderOllama,
	} {
		breakers[provider] = circuit.New(breakerCfg)
	}

	return &ClientFactory{
		cfg:      cfg,
		recorder: recorder,
		breakers: breakers,
		logger:   logx.NewLogger("factory"),
	}
}

// CreateClient builds the primary model client wrapped in the
// middleware chain, with the configured fallback model behind it.
func (f *ClientFactory) CreateClient() (llm.Client, error) {
	raw, err := f.buildRaw(f.cfg.Models.Primary)
	if err != nil {
		return nil, fmt.Errorf("primary model: %w", err)
	}

	fallbackClient, err := f.buildFallback()
	if err != nil {
		return nil, err
	}

	breaker := f.breakers[f.cfg.Models.Primary.Provider]
	return f.assemble(raw, fallbackClient, breaker), nil
}

// assemble wraps a raw client in the full middleware chain.
//
// Outermost to innermost: metrics observes everything including
// fast-fails, the fallback sits above the breaker so an open primary
// circuit redirects to the fallback, the breaker counts whole retried
// calls, the configured generation parameters are stamped on each
// attempt, and the timeout bounds each raw request.
func (f *ClientFactory) assemble(raw, fallbackClient llm.Client, breaker circuit.Breaker) llm.Client {
	policy := retry.NewPolicy(f.cfg.RetryPolicy(), nil)
	target := "model:" + raw.ModelName()

	return llm.Chain(raw,
		metrics.Middleware(f.recorder, nil, f.logger),
		fallback.Middleware(fallbackClient, f.logger),
		circuit.Middleware(breaker, target),
		retry.Middleware(policy, func(attempts int) {
			f.recorder.ObserveAttempts(target, attempts)
		}),
		llm.ParamsMiddleware(f.cfg.Models.MaxTokens, f.cfg.Models.Temperature),
		timeout.Middleware(f.cfg.Resilience.RequestTimeout.Std()),
	)
}

// buildFallback returns the configured fallback client with its own
// retry and timeout, or nil when no fallback is configured.
func (f *ClientFactory) buildFallback() (llm.Client, error) {
	if f.cfg.Models.Fallback == nil {
		return nil, nil
	}

	raw, err := f.buildRaw(*f.cfg.Models.Fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback model: %w", err)
	}

	policy := retry.NewPolicy(f.cfg.RetryPolicy(), nil)
	target := "model:" + raw.ModelName()
	client := llm.Chain(raw,
		retry.Middleware(policy, func(attempts int) {
			f.recorder.ObserveAttempts(target, attempts)
		}),
		llm.ParamsMiddleware(f.cfg.Models.MaxTokens, f.cfg.Models.Temperature),
		timeout.Middleware(f.cfg.Resilience.RequestTimeout.Std()),
	)
	return client, nil
}

func (f *ClientFactory) buildRaw(mc config.ModelCfg) (llm.Client, error) {
	apiKey, err := config.APIKeyFor(mc.Provider)
	if err != nil {
		return nil, err
	}

	mcfg := llm.Config{
		APIKey:      apiKey,
		ModelName:   mc.Model,
		MaxTokens:   f.cfg.Models.MaxTokens,
		Temperature: f.cfg.Models.Temperature,
	}
	if err := mcfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s model config: %w", mc.Provider, err)
	}

	switch mc.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewClient(mcfg.APIKey, mcfg.ModelName), nil
	case config.ProviderOpenAI:
		return openai.NewClient(mcfg.APIKey, mcfg.ModelName), nil
	case config.ProviderGoogle:
		return google.NewClient(mcfg.APIKey, mcfg.ModelName), nil
	case config.ProviderOllama:
		return ollama.NewClient(mc.Host, mcfg.ModelName), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", mc.Provider)
	}
}
