// Command agentrunner executes one task through the agent loop and
// prints the final answer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agentrunner/pkg/agent"
	"agentrunner/pkg/config"
	"agentrunner/pkg/eventlog"
	"agentrunner/pkg/logx"
	metricsquery "agentrunner/pkg/metrics"
	"agentrunner/pkg/middleware/metrics"
	"agentrunner/pkg/persistence"
	"agentrunner/pkg/templates"
	"agentrunner/pkg/tools"
	"agentrunner/pkg/transcript"
)

// Version information, set by the release build via ldflags.
var version = "dev"

func main() {
	var (
		configPath     = flag.String("config", "", "Path to YAML config file (defaults apply when empty)")
		query          = flag.String("query", "", "Task for the agent to execute")
		maxSteps       = flag.Int("max-steps", 0, "Override the configured step limit")
		showTranscript = flag.Bool("transcript", false, "Print the full step transcript after the answer")
		projectDir     = flag.String("projectdir", ".", "Project directory holding the secrets file")
		debug          = flag.Bool("debug", false, "Enable debug logging")
		showVersion    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *debug {
		logx.SetDebug(true)
	}

	if *showVersion {
		fmt.Printf("agentrunner %s\n", version)
		os.Exit(0)
	}

	if *query == "" {
		fmt.Fprintln(os.Stderr, "Usage: agentrunner -query \"...\" [-config config.yaml]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	os.Exit(run(*configPath, *query, *projectDir, *maxSteps, *showTranscript))
}

// run contains the main application logic and returns an exit code so
// defers execute before the process exits.
func run(configPath, query, projectDir string, maxSteps int, showTranscript bool) int {
	logger := logx.NewLogger("main")

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			return 1
		}
		cfg = loaded
	}

	if config.SecretsFileExists(projectDir) {
		password, err := config.PromptPassword("Secrets password: ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read password: %v\n", err)
			return 1
		}
		if err := config.LoadSecrets(projectDir, password); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load secrets: %v\n", err)
			return 1
		}
	}

	recorder := metrics.NewPrometheusRecorder()
	if cfg.Telemetry.MetricsAddr != "" {
		go serveMetrics(cfg.Telemetry.MetricsAddr, logger)
	}

	registry := tools.NewRegistry()
	registry.MustRegister(tools.NewCalculatorTool())
	registry.MustRegister(tools.NewWebFetchTool())
	registry.MustRegister(tools.NewReadFileTool(projectDir, 0))

	dispatcher := tools.NewDispatcher(registry, tools.DispatcherConfig{
		Retry:   cfg.RetryPolicy(),
		Breaker: cfg.BreakerPolicy(),
		Timeout: cfg.Resilience.ToolTimeout.Std(),
	}, recorder)

	renderer, err := templates.NewRenderer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load prompt templates: %v\n", err)
		return 1
	}

	client, err := agent.NewClientFactory(cfg, recorder).CreateClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create model client: %v\n", err)
		return 1
	}

	sinks := []agent.TelemetrySink{agent.NewMetricsSink(recorder)}
	if cfg.Telemetry.LogDir != "" {
		writer, err := eventlog.NewWriter(cfg.Telemetry.LogDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open event log: %v\n", err)
			return 1
		}
		defer func() { _ = writer.Close() }()
		sinks = append(sinks, writer)
	}

	var store *persistence.Store
	if cfg.Storage.DBPath != "" {
		store, err = persistence.Open(cfg.Storage.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open transcript store: %v\n", err)
			return 1
		}
		defer func() { _ = store.Close() }()
	}

	task := agent.NewTask(query)
	task.MaxSteps = cfg.Agent.MaxSteps
	task.StepTimeout = cfg.Agent.StepTimeout.Std()
	task.MaxContextTokens = cfg.Agent.MaxContextTokens
	if maxSteps > 0 {
		task.MaxSteps = maxSteps
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := agent.NewLoop(client, registry, dispatcher, renderer, sinks...)

	startedAt := time.Now().UTC()
	result, err := loop.Run(ctx, task)

	status, answer, tr := outcomeOf(result, err)
	if store != nil && tr != nil {
		if saveErr := store.SaveRun(task.ID, task.Query, status, answer, startedAt, tr); saveErr != nil {
			logger.Warn("Failed to persist run %s: %v", task.ID, saveErr)
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Task %s %s: %v\n", task.ID, status, err)
		if showTranscript && tr != nil {
			fmt.Fprintln(os.Stderr, tr.Render())
		}
		return 1
	}

	fmt.Println(result.Answer)
	if showTranscript {
		fmt.Fprintln(os.Stderr, result.Transcript.Render())
	}
	if cfg.Telemetry.PrometheusURL != "" {
		reportTaskMetrics(ctx, cfg.Telemetry.PrometheusURL, task.ID, logger)
	}
	return 0
}

// reportTaskMetrics logs aggregate usage for the finished task when a
// Prometheus endpoint is configured. Failures are informational only.
func reportTaskMetrics(ctx context.Context, prometheusURL, taskID string, logger *logx.Logger) {
	service, err := metricsquery.NewQueryService(prometheusURL)
	if err != nil {
		logger.Warn("Metrics query unavailable: %v", err)
		return
	}

	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	usage, err := service.GetTaskMetrics(queryCtx, taskID)
	if err != nil {
		logger.Warn("Failed to query task metrics: %v", err)
		return
	}
	logger.Info("Task %s usage: steps=%d model_requests=%d tokens=%d (%d prompt + %d completion)",
		taskID, usage.Steps, usage.ModelRequests, usage.TotalTokens, usage.PromptTokens, usage.CompletionTokens)

	outcomes, err := service.GetStepOutcomes(queryCtx, taskID)
	if err != nil {
		logger.Warn("Failed to query step outcomes: %v", err)
	} else {
		for outcome, count := range outcomes {
			logger.Info("Task %s steps with outcome %s: %d", taskID, outcome, count)
		}
	}

	attempts, err := service.GetAttemptsByTarget(queryCtx)
	if err != nil {
		logger.Warn("Failed to query call attempts: %v", err)
		return
	}
	for target, count := range attempts {
		logger.Info("Resilient call attempts for %s: %d", target, count)
	}
}

// outcomeOf maps a loop result to a persistence status, answer, and
// transcript. Terminal errors carry the transcript they produced.
func outcomeOf(result *agent.Result, err error) (status, answer string, tr *transcript.Transcript) {
	if err == nil {
		return persistence.StatusCompleted, result.Answer, result.Transcript
	}

	var stepLimitErr *agent.StepLimitError
	var cancelledErr *agent.CancelledError
	var fatalErr *agent.FatalError
	switch {
	case errors.As(err, &stepLimitErr):
		return persistence.StatusStepLimit, "", stepLimitErr.Transcript
	case errors.As(err, &cancelledErr):
		return persistence.StatusCancelled, "", cancelledErr.Transcript
	case errors.As(err, &fatalErr):
		return persistence.StatusFailed, "", fatalErr.Transcript
	default:
		return persistence.StatusFailed, "", nil
	}
}

func serveMetrics(addr string, logger *logx.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("Serving metrics on %s/metrics", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server failed: %v", err)
	}
}
