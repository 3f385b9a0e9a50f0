package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/guardrail/guardrail/internal/netutil"
	"github.com/guardrail/guardrail/internal/observability/logging"
	"github.com/guardrail/guardrail/internal/observability/receipt"
	"github.com/guardrail/guardrail/internal/policy"
	"github.com/guardrail/guardrail/internal/registry"
	"github.com/spf13/cobra"
)

// policyCmd group
var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Policy management commands",
	Long:  `Validate, list, and fetch guardrail policy documents.`,
}

// policyValidateCmd loads a policy and reports authoring problems
// without touching any artifacts.
var policyValidateCmd = &cobra.Command{
	Use:   "validate <policy>",
	Short: "Validate a policy document",
	Long: `Loads a policy document and reports authoring problems: parse errors,
rules without patterns or scopes, and expression rules that do not compile.

Example:
  guardrail policy validate guardrail-policy.json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runPolicyValidate,
}

// policyPresetsCmd
var policyPresetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List built-in policy presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := policy.ListPresetNames()
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

// policyPullCmd fetches a published policy document.
var policyPullCmd = &cobra.Command{
	Use:   "pull <ref>",
	Short: "Fetch a policy document from an OCI registry or HTTPS URL",
	Long: `Fetches a policy document published as a single-layer OCI artifact
(e.g. ghcr.io/org/policies/voynich:v4) or served over HTTPS, and writes
it to a local file.

HTTPS fetches refuse private hosts and cap the document size.

Examples:
  guardrail policy pull ghcr.io/org/policies/voynich:v4 -o guardrail-policy.json
  guardrail policy pull https://example.org/policies/latest.json -o guardrail-policy.json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runPolicyPull,
}

var (
	pullOutputFlag  string
	pullTimeoutFlag time.Duration
)

func init() {
	policyPullCmd.Flags().StringVarP(&pullOutputFlag, "output", "o", defaultPolicyPath, "Path to write the fetched policy document")
	policyPullCmd.Flags().DurationVarP(&pullTimeoutFlag, "timeout", "t", 60*time.Second, "Timeout for registry operations")

	policyCmd.AddCommand(policyValidateCmd)
	policyCmd.AddCommand(policyPresetsCmd)
	policyCmd.AddCommand(policyPullCmd)
}

// GetPolicyCmd export
func GetPolicyCmd() *cobra.Command {
	return policyCmd
}

func runPolicyValidate(cmd *cobra.Command, args []string) error {
	doc, err := policy.LoadDocument(args[0])
	if err != nil {
		return fmt.Errorf("could not read policy: %w", err)
	}

	problems := policy.ValidateDocument(doc)
	if len(problems) == 0 {
		fmt.Printf("%s[OK]%s policy %q is well-formed.\n", colorGreen, colorReset, args[0])
		return nil
	}

	fmt.Printf("%s[FAIL]%s %d policy problem(s):\n", colorRed, colorReset, len(problems))
	for _, p := range problems {
		fmt.Println("  " + p.String())
	}
	return fmt.Errorf("%d policy problem(s) found", len(problems))
}

func runPolicyPull(cmd *cobra.Command, args []string) (err error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), pullTimeoutFlag)
	defer cancel()

	sess := receipt.Start(ctx, "guardrail policy pull", os.Args[1:])
	defer func() {
		_ = sess.Finish(err, receipt.WithPolicy("", pullOutputFlag))
	}()

	log := logging.From(ctx)
	ref := args[0]

	var data []byte
	var origin string

	if strings.HasPrefix(ref, "https://") {
		data, origin, err = netutil.DownloadPolicy(ctx, ref, netutil.DefaultConfig())
	} else {
		data, origin, err = registry.PullPolicy(ctx, ref, registry.DefaultMaxPolicySize)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch policy: %w", err)
	}

	if err := os.WriteFile(pullOutputFlag, data, 0644); err != nil {
		return fmt.Errorf("failed to write policy: %w", err)
	}

	log.Event(ctx, "policy_pull.complete", map[string]any{"ref": ref, "origin": origin, "bytes": len(data)})
	fmt.Printf("Fetched policy from %s (%d bytes) -> %s\n", ref, len(data), pullOutputFlag)
	return nil
}
