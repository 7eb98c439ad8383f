package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/google/uuid"

	"github.com/quietloop/aecore/internal/contextmgr"
	"github.com/quietloop/aecore/internal/controller"
	"github.com/quietloop/aecore/internal/eventbus"
	"github.com/quietloop/aecore/internal/llm"
	"github.com/quietloop/aecore/internal/observability"
	"github.com/quietloop/aecore/internal/policyagent"
	"github.com/quietloop/aecore/internal/reviewer"
	"github.com/quietloop/aecore/internal/tokens"
	"github.com/quietloop/aecore/internal/toolmanager"
	"github.com/quietloop/aecore/pkg/events"
)

// runConfig collects the CLI surface spec §6.4 defines.
type runConfig struct {
	Workspace       string
	Prompt          string
	ModelName       string
	LLMClient       string
	MemoryTool      string
	MaxTurns        int
	MaxOutputTokens int
	DatabaseURL     string
	RemoteAddr      string
	Review          bool
}

// exit codes, spec §6.4.
const (
	exitCompleted    = 0
	exitAgentError   = 1
	exitInvalidArgs  = 2
	exitUserInterupt = 130
)

// errInvalidArgs marks a validation failure that must map to exit code 2
// rather than 1.
var errInvalidArgs = errors.New("invalid arguments")

func runMain(ctx context.Context, cfg runConfig, stdin io.Reader, stdout, stderr io.Writer) int {
	logger := observability.NewLogger(observability.LogConfig{
		Level:  strings.ToLower(envOr("LOG_LEVEL", "info")),
		Output: stderr,
	})
	metrics := observability.NewMetrics()
	tracer, shutdownTracer := observability.NewTracer(observability.TraceConfig{
		ServiceName: "aecore",
		Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	})
	defer shutdownTracer(context.Background())

	if cfg.Workspace == "" {
		fmt.Fprintln(stderr, "--workspace is required")
		return exitInvalidArgs
	}

	budget, err := tokenBudget()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInvalidArgs
	}

	provider, err := buildProvider(ctx, cfg.LLMClient, cfg.ModelName)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInvalidArgs
	}

	client := llm.NewClient(provider, 3).WithMetrics(metrics).WithTracer(tracer)

	counter, err := tokens.New(cfg.ModelName)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitAgentError
	}

	strategy, err := buildStrategy(cfg.MemoryTool, counter, client, cfg.ModelName)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitInvalidArgs
	}
	if cfg.MemoryTool == "none" {
		budget = math.MaxInt32
	}
	ctxMgr := contextmgr.New(counter, strategy, 10)

	registry := toolmanager.NewRegistry()
	toolmanager.RegisterControlTools(registry)
	sessionID := uuid.NewString()
	ctx = observability.AddSessionID(ctx, sessionID)
	tm := toolmanager.New(registry).WithRunContext(toolmanager.RunContext{
		SessionID:     sessionID,
		WorkspaceRoot: cfg.Workspace,
	}).WithTracer(tracer).WithMetrics(metrics)

	seq := events.NewSequencer()
	sink := eventbus.NewSink()

	store, closeStore, err := buildStore(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitAgentError
	}
	defer closeStore()

	if err := store.Create(ctx, sessionID); err != nil {
		fmt.Fprintln(stderr, err)
		return exitAgentError
	}
	sink.AddConsumer(ctx, &eventbus.DurableConsumer{
		Store:     store,
		SessionID: sessionID,
		OnError: func(err error) {
			logger.Error(ctx, "failed to persist event", "error", err)
		},
	})

	if cfg.RemoteAddr != "" {
		hub := eventbus.NewRemoteHub()
		sink.AddConsumer(ctx, hub)
		server := &http.Server{Addr: cfg.RemoteAddr, Handler: hub}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error(ctx, "remote observer server stopped", "error", err)
			}
		}()
		defer server.Close()
	}

	agentCfg := policyagent.Config{
		SystemPrompt:       buildSystemPrompt(registry),
		Tools:              toLLMDescriptors(tm.Tools()),
		Model:              cfg.ModelName,
		MaxTokens:          cfg.MaxOutputTokens,
		Budget:             budget,
		CompletionSentinel: "",
	}
	policy := policyagent.New(client, ctxMgr, agentCfg, seq)

	ctrl := controller.New(sessionID, seq, policy, tm, sink, controller.Config{
		MaxTurns: cfg.MaxTurns,
		Logger:   logger,
	})

	runTurn := func(turnCtx context.Context, text string) (string, error) {
		answer, runErr := ctrl.Run(turnCtx, text)
		if runErr != nil {
			return "", runErr
		}
		if cfg.Review {
			reviewAnswer, reviewErr := reviewer.Run(turnCtx, sessionID, seq, policy, tm, sink, reviewer.Config{
				Task:          text,
				Result:        answer,
				WorkspaceRoot: cfg.Workspace,
				MaxTurns:      cfg.MaxTurns,
			})
			if reviewErr != nil {
				logger.Error(turnCtx, "review pass failed", "error", reviewErr)
				return answer, nil
			}
			return reviewAnswer, nil
		}
		return answer, nil
	}

	if cfg.Prompt != "" {
		answer, err := runTurn(ctx, cfg.Prompt)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return exitUserInterupt
			}
			fmt.Fprintln(stderr, err)
			return exitAgentError
		}
		fmt.Fprintln(stdout, answer)
		return exitCompleted
	}

	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		answer, err := runTurn(ctx, line)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return exitUserInterupt
			}
			fmt.Fprintln(stderr, err)
			continue
		}
		fmt.Fprintln(stdout, answer)
	}
	return exitCompleted
}

func tokenBudget() (int, error) {
	v := os.Getenv("TOKEN_BUDGET")
	if v == "" {
		return 100000, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: TOKEN_BUDGET must be a positive integer, got %q", errInvalidArgs, v)
	}
	return n, nil
}

func buildStrategy(memoryTool string, counter *tokens.Counter, client *llm.Client, model string) (contextmgr.Strategy, error) {
	switch memoryTool {
	case "", "simple", "none":
		return contextmgr.TruncationStrategy{Counter: counter}, nil
	case "compactify-memory":
		return contextmgr.SummarizingStrategy{
			Summarizer: llmSummarizer{client: client, model: model},
			Config:     contextmgr.DefaultSummarizingConfig(),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown --memory-tool %q (want compactify-memory, none, or simple)", errInvalidArgs, memoryTool)
	}
}

func buildStore(ctx context.Context, databaseURL string) (eventbus.SessionStore, func(), error) {
	if databaseURL == "" {
		return eventbus.NewMemoryStore(), func() {}, nil
	}

	driver := "postgres"
	if strings.HasPrefix(databaseURL, "file:") || strings.HasSuffix(databaseURL, ".db") {
		driver = "sqlite"
	}

	db, err := sql.Open(driver, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	store := eventbus.NewSQLStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, func() { db.Close() }, nil
}

func buildSystemPrompt(registry *toolmanager.Registry) string {
	var sb strings.Builder
	sb.WriteString("You are an autonomous coding and task-execution agent. ")
	sb.WriteString("Use the available tools to accomplish the user's request, then call the ")
	sb.WriteString("'complete' tool with your final answer. Call 'return_control_to_user' instead ")
	sb.WriteString("if you need clarification.\n\nAvailable tools:\n")
	for _, d := range registry.Descriptors() {
		fmt.Fprintf(&sb, "- %s: %s\n", d.Name, d.Description)
	}
	return sb.String()
}

func toLLMDescriptors(descs []toolmanager.Descriptor) []llm.ToolDescriptor {
	out := make([]llm.ToolDescriptor, 0, len(descs))
	for _, d := range descs {
		out = append(out, llm.ToolDescriptor{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
			Strict:      true,
		})
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
