package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/guardrail/guardrail/internal/models"
	"github.com/guardrail/guardrail/internal/observability"
	"github.com/guardrail/guardrail/internal/observability/logging"
	otelobs "github.com/guardrail/guardrail/internal/observability/otel"
	"github.com/guardrail/guardrail/internal/observability/receipt"
	"github.com/guardrail/guardrail/internal/policy"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// checkCmd evaluates a policy document against the artifact tree
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check tracked files and artifacts against a policy",
	Long: `Evaluates a policy document against a tree of JSON research artifacts
and tracked text files, reporting every violation in one pass.

The checker never stops at the first problem: the output is always the
full list of everything wrong.

Examples:
  # CI gate with the default policy path
  guardrail check --policy-path guardrail-policy.json

  # Release gate against another tree
  guardrail check --policy-path policy.json --root ./out --mode release

  # JSON report for downstream tooling
  guardrail check --policy-path policy.json --format=json --out report.json

  # Built-in preset
  guardrail check --policy-path strict`,
	RunE:         runCheck,
	SilenceUsage: true,
}

const defaultPolicyPath = "guardrail-policy.json"

var (
	checkPolicyFlag string
	checkRootFlag   string
	checkModeFlag   string
	checkFormatFlag string
	checkOutFlag    string
)

func init() {
	checkCmd.Flags().StringVar(&checkPolicyFlag, "policy-path", defaultPolicyPath, "Path to policy document (JSON or YAML), or a preset name")
	checkCmd.Flags().StringVar(&checkRootFlag, "root", ".", "Root directory artifacts and tracked files are resolved against")
	checkCmd.Flags().StringVar(&checkModeFlag, "mode", "ci", "Check mode: ci or release")
	checkCmd.Flags().StringVar(&checkFormatFlag, "format", "text", "Output format: text or json")
	checkCmd.Flags().StringVar(&checkOutFlag, "out", "", "Also write the JSON report to this path (signable with 'guardrail sign')")
}

// GetCheckCmd export
func GetCheckCmd() *cobra.Command {
	return checkCmd
}

func runCheck(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "guardrail check", os.Args[1:])
	var receiptOpts []receipt.Option

	defer func() {
		receiptOpts = append(receiptOpts, receipt.WithPolicy("", checkPolicyFlag))
		_ = sess.Finish(err, receiptOpts...)
	}()

	log := logging.From(ctx)
	start := time.Now()

	mode, parseErr := models.ParseMode(checkModeFlag)
	if parseErr != nil {
		return parseErr
	}

	if checkFormatFlag != "text" && checkFormatFlag != "json" {
		return fmt.Errorf("invalid format: %s (use text or json)", checkFormatFlag)
	}

	// Start OTel span if enabled
	if h := otelobs.From(ctx); h != nil {
		var span trace.Span
		ctx, span = h.Tracer.Start(ctx, "guardrail.check",
			trace.WithAttributes(
				attribute.String("guardrail.op_id", observability.OpID(ctx)),
				attribute.String("guardrail.command", "check"),
				attribute.String("guardrail.policy", checkPolicyFlag),
				attribute.String("guardrail.mode", string(mode)),
			))
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed")
			} else {
				span.SetStatus(codes.Ok, "success")
			}
			span.End()
		}()
	}

	log.Event(ctx, "check.start", map[string]any{"policy": checkPolicyFlag, "mode": string(mode)})

	var resultStatus string
	defer func() {
		log.Event(ctx, "check.complete", map[string]any{
			"duration_ms": time.Since(start).Milliseconds(),
			"result":      resultStatus,
		})
	}()

	doc, loadErr := policy.Resolve(checkPolicyFlag)
	if loadErr != nil {
		resultStatus = "fail"
		fmt.Printf("[FAIL] could not read policy: %v\n", loadErr)
		return fmt.Errorf("could not read policy: %w", loadErr)
	}

	violations := policy.RunChecks(ctx, doc, checkRootFlag, mode)
	report := models.BuildCheckReport(doc.Name, checkPolicyFlag, checkRootFlag, mode, violations)

	receiptOpts = append(receiptOpts, receipt.WithCheck(string(mode), report.Outcome, report.Categories))

	if checkOutFlag != "" {
		if writeErr := writeReportFile(checkOutFlag, report); writeErr != nil {
			resultStatus = "fail"
			return fmt.Errorf("failed to write report: %w", writeErr)
		}
	}

	if checkFormatFlag == "json" {
		jsonOutput, jsonErr := FormatJSONOutput(report)
		if jsonErr != nil {
			resultStatus = "fail"
			return fmt.Errorf("failed to format JSON output: %w", jsonErr)
		}
		fmt.Println(string(jsonOutput))
	} else {
		fmt.Print(FormatTextOutput(report))
	}

	if report.Outcome == "FAIL" {
		resultStatus = "fail"
		// For JSON format, exit without returning error to avoid
		// "Error: ..." corrupting stdout consumers
		if checkFormatFlag == "json" {
			receiptOpts = append(receiptOpts, receipt.WithPolicy(doc.Name, checkPolicyFlag))
			_ = sess.Finish(fmt.Errorf("%d violations", report.Summary.Total), receiptOpts...)
			os.Exit(1)
		}
		return fmt.Errorf("%d violation(s) found (mode=%s)", report.Summary.Total, mode)
	}

	resultStatus = "success"
	return nil
}
