package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/guardrail/guardrail/internal/version"
	"github.com/spf13/cobra"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

var rootCmd = &cobra.Command{
	Use:   "guardrail",
	Short: "Policy guardrail checker for research artifacts",
	Long: `guardrail: evidentiary guardrails for research pipelines.
Validates JSON research artifacts and tracked reports against
versioned policy documents and reports every violation in one pass.`,
	Version: version.BuildVersion(),
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ExecuteContext runs the root command with a caller-supplied context,
// so the logger, receipt writer, and tracer travel with every command.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(GetCheckCmd())
	rootCmd.AddCommand(GetPolicyCmd())
	rootCmd.AddCommand(GetKeygenCmd())
	rootCmd.AddCommand(GetSignCmd())
	rootCmd.AddCommand(GetVerifyCmd())
}
