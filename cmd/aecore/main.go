// Command aecore runs the agent execution core as a standalone CLI: one
// LLM-driven session per invocation, either a single --prompt or an
// interactive loop reading stdin, per spec §6.4.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var cfg runConfig

	// Pre-scan for --config so its values can seed flag defaults below;
	// a flag actually passed in args still overrides whatever this sets.
	configPath := preScanConfigFlag(args)
	fc, err := loadFileConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitInvalidArgs
	}

	rootCmd := &cobra.Command{
		Use:          "aecore",
		Short:        "Agent execution core: event-sourced LLM agent runtime",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			code := runMain(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			if code != exitCompleted {
				return &exitError{code: code}
			}
			return nil
		},
	}

	var configPathFlag string
	rootCmd.Flags().StringVar(&configPathFlag, "config", "", "YAML file of flag defaults (see fileConfig); CLI flags still override it")
	rootCmd.Flags().StringVar(&cfg.Workspace, "workspace", "", "root for tool file I/O (required)")
	rootCmd.Flags().StringVar(&cfg.Prompt, "prompt", "", "one-shot prompt; if absent, read an interactive loop from stdin")
	rootCmd.Flags().StringVar(&cfg.ModelName, "model-name", strOr(fc.ModelName, "claude-sonnet-4-20250514"), "model name passed to the vendor")
	rootCmd.Flags().StringVar(&cfg.LLMClient, "llm-client", strOr(fc.LLMClient, "anthropic"), "vendor: anthropic, openai, or bedrock")
	rootCmd.Flags().StringVar(&cfg.MemoryTool, "memory-tool", strOr(fc.MemoryTool, "simple"), "context strategy: compactify-memory, none, or simple")
	rootCmd.Flags().IntVar(&cfg.MaxTurns, "max-turns", intOr(fc.MaxTurns, 200), "maximum THINKING/ACTING turns before the loop errors out")
	rootCmd.Flags().IntVar(&cfg.MaxOutputTokens, "max-output-tokens", intOr(fc.MaxOutputTokens, 32768), "maximum tokens requested per generate call")
	rootCmd.Flags().StringVar(&cfg.DatabaseURL, "database-url", fc.DatabaseURL, "session store DSN (postgres:// or a sqlite file path); empty uses an in-memory store")
	rootCmd.Flags().StringVar(&cfg.RemoteAddr, "remote-addr", fc.RemoteAddr, "if set, serve a websocket event observer on this address")
	rootCmd.Flags().BoolVar(&cfg.Review, "review", fc.Review, "run the reviewer sub-loop after each completion")

	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if ok := asExitError(err, &exitErr); ok {
			return exitErr.code
		}
		fmt.Fprintln(os.Stderr, err)
		return exitInvalidArgs
	}
	return exitCompleted
}

// preScanConfigFlag extracts --config's value from args without touching
// the real flag set, so its contents can seed that set's defaults before
// it parses args for real. Unknown flags and parse errors are ignored
// here; the real parse reports them properly.
func preScanConfigFlag(args []string) string {
	fs := flag.NewFlagSet("aecore-prescan", flag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	var path string
	fs.StringVar(&path, "config", "", "")
	_ = fs.Parse(args)
	return path
}

// exitError carries a pre-decided process exit code out of RunE without
// cobra printing it as a generic "Error: ..." line (SilenceUsage only
// silences usage, not the error itself, so runMain prints its own
// diagnostics and this type stays silent).
type exitError struct{ code int }

func (e *exitError) Error() string { return "" }

func asExitError(err error, target **exitError) bool {
	ee, ok := err.(*exitError)
	if ok {
		*target = ee
	}
	return ok
}
