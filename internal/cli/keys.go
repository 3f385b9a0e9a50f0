package cli

import (
	"fmt"
	"os"

	"github.com/guardrail/guardrail/internal/crypto"
	"github.com/guardrail/guardrail/internal/observability/receipt"
	"github.com/spf13/cobra"
)

const (
	defaultPrivateKeyPath = "private.key"
	defaultPublicKeyPath  = "public.key"
	defaultReportPath     = "guardrail-report.json"
	defaultSignaturePath  = "guardrail-report.json.sig"
)

// keygenCmd represents the keygen command
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate Ed25519 keypair for signing check reports",
	Long: `Generate a new Ed25519 keypair for signing check reports.

This creates two files:
  - private.key: Keep this secret! Used to sign reports.
  - public.key:  Share this with reviewers to verify signatures.

Example:
  guardrail keygen
  guardrail keygen --private my-private.key --public my-public.key`,
	RunE: runKeygen,
}

var (
	keygenPrivateFlag string
	keygenPublicFlag  string
)

func init() {
	keygenCmd.Flags().StringVar(&keygenPrivateFlag, "private", defaultPrivateKeyPath, "Path for the private key file")
	keygenCmd.Flags().StringVar(&keygenPublicFlag, "public", defaultPublicKeyPath, "Path for the public key file")
}

// GetKeygenCmd returns the keygen command
func GetKeygenCmd() *cobra.Command {
	return keygenCmd
}

func runKeygen(cmd *cobra.Command, args []string) error {
	// check existing keys
	if _, err := os.Stat(keygenPrivateFlag); err == nil {
		return fmt.Errorf("private key already exists at %s (use different path or delete existing)", keygenPrivateFlag)
	}
	if _, err := os.Stat(keygenPublicFlag); err == nil {
		return fmt.Errorf("public key already exists at %s (use different path or delete existing)", keygenPublicFlag)
	}

	fmt.Println("Generating Ed25519 keypair...")
	if err := crypto.GenerateKeys(keygenPrivateFlag, keygenPublicFlag); err != nil {
		return fmt.Errorf("key generation failed: %w", err)
	}

	fmt.Printf("%s✓ Private key saved: %s%s\n", colorGreen, keygenPrivateFlag, colorReset)
	fmt.Printf("%s✓ Public key saved:  %s%s\n", colorGreen, keygenPublicFlag, colorReset)
	fmt.Printf("\n%s⚠ Keep your private key secret!%s\n", colorRed, colorReset)

	return nil
}

// signCmd signs check reports
var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a check report with your private key",
	Long: `Sign a JSON check report using your Ed25519 private key.

This creates a signature file that proves the report has not been
altered since the check run that produced it. The signature is computed
over the canonical (key-sorted) JSON representation of the report.

Example:
  guardrail sign
  guardrail sign --report out/report.json --key my-private.key`,
	RunE: runSign,
}

var (
	signReportFlag     string
	signPrivateKeyFlag string
	signOutputFlag     string
)

func init() {
	signCmd.Flags().StringVarP(&signReportFlag, "report", "r", defaultReportPath, "Path to the report to sign")
	signCmd.Flags().StringVarP(&signPrivateKeyFlag, "key", "k", defaultPrivateKeyPath, "Path to the private key")
	signCmd.Flags().StringVarP(&signOutputFlag, "output", "o", "", "Path for the signature file (default <report>.sig)")
}

func GetSignCmd() *cobra.Command {
	return signCmd
}

func runSign(cmd *cobra.Command, args []string) (err error) {
	sess := receipt.Start(cmd.Context(), "guardrail sign", os.Args[1:])
	defer func() {
		_ = sess.Finish(err, receipt.WithSignature(signReportFlag, signPrivateKeyFlag, nil))
	}()

	output := signOutputFlag
	if output == "" {
		output = signReportFlag + ".sig"
	}

	reportData, err := os.ReadFile(signReportFlag)
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}

	sigData, err := crypto.SignReport(reportData, signPrivateKeyFlag)
	if err != nil {
		return fmt.Errorf("signing failed: %w", err)
	}

	if err := os.WriteFile(output, sigData, 0644); err != nil {
		return fmt.Errorf("failed to write signature: %w", err)
	}

	fmt.Printf("%s✓ Report signed successfully%s\n", colorGreen, colorReset)
	fmt.Printf("  Signature saved to: %s\n", output)

	return nil
}

// verifyCmd verifies report signatures
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a check report signature",
	Long: `Verify that a check report matches its signature.

Returns exit code 0 if valid, 1 if verification fails.

Example:
  guardrail verify
  guardrail verify --report out/report.json --signature out/report.json.sig --key my-public.key`,
	SilenceUsage: true,
	RunE:         runVerify,
}

var (
	verifyReportFlag    string
	verifySignatureFlag string
	verifyPublicKeyFlag string
)

func init() {
	verifyCmd.Flags().StringVarP(&verifyReportFlag, "report", "r", defaultReportPath, "Path to the report to verify")
	verifyCmd.Flags().StringVarP(&verifySignatureFlag, "signature", "s", defaultSignaturePath, "Path to the signature file")
	verifyCmd.Flags().StringVarP(&verifyPublicKeyFlag, "key", "k", defaultPublicKeyPath, "Path to the public key")
}

func GetVerifyCmd() *cobra.Command {
	return verifyCmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	reportData, err := os.ReadFile(verifyReportFlag)
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}

	sigData, err := os.ReadFile(verifySignatureFlag)
	if err != nil {
		return fmt.Errorf("failed to read signature: %w", err)
	}

	valid, err := crypto.VerifyReport(reportData, sigData, verifyPublicKeyFlag)
	if err != nil {
		return fmt.Errorf("verification error: %w", err)
	}

	if valid {
		fmt.Printf("%s✓ Signature verified%s\n", colorGreen, colorReset)
		return nil
	}

	fmt.Printf("%s✗ TAMPER DETECTED%s\n", colorRed, colorReset)
	os.Exit(1)
	return nil
}
