package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/accord/internal/client"
	"github.com/ppiankov/accord/internal/model"
	"github.com/ppiankov/accord/internal/policy"
	"github.com/ppiankov/accord/internal/svt"
)

var (
	didValue  string
	didIntent string
	didServer string
	didFormat string
)

func init() {
	rootCmd.AddCommand(didCmd)
	didCmd.AddCommand(didResolveCmd)
	didResolveCmd.Flags().StringVar(&didValue, "did", "", "DID to resolve (required)")
	didResolveCmd.Flags().StringVar(&didIntent, "intent", "", "Intent to evaluate, e.g. ReadLedger (required)")
	didResolveCmd.Flags().StringVar(&didServer, "server", "", "Evaluate on a remote accord server (host:port)")
	didResolveCmd.Flags().StringVarP(&didFormat, "format", "f", "text", "Output format (text|json)")
	didResolveCmd.MarkFlagRequired("did")
	didResolveCmd.MarkFlagRequired("intent")
}

var didCmd = &cobra.Command{
	Use:   "did",
	Short: "Identity operations",
}

var didResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a DID and evaluate an intent",
	Long:  "Looks up the DID's tier in the trust registry and evaluates the intent\nagainst the tier policy. Exits 0 if allowed, 1 if denied.",
	RunE:  runDIDResolve,
}

func runDIDResolve(cmd *cobra.Command, args []string) error {
	d, err := resolveDecision(didValue, model.Intent(didIntent), didServer)
	if err != nil {
		return err
	}

	switch didFormat {
	case "json":
		if err := printJSON(d); err != nil {
			return err
		}
	default:
		fmt.Print(formatDecision(d))
	}

	if !d.Allowed {
		os.Exit(1)
	}
	return nil
}

// resolveDecision evaluates locally, or remotely when server is set.
func resolveDecision(did string, intent model.Intent, server string) (model.AccessDecision, error) {
	if server != "" {
		c, err := client.New(server)
		if err != nil {
			return model.AccessDecision{}, err
		}
		defer c.Close()
		return c.Evaluate(did, intent), nil
	}

	cfg, hash, err := loadConfig()
	if err != nil {
		return model.AccessDecision{}, err
	}
	proc, err := svt.Build(cfg, hash, featureSource(cfg), svt.Sinks{}, logger, nil)
	if err != nil {
		return model.AccessDecision{}, err
	}
	return proc.Resolve(did, intent), nil
}

func formatDecision(d model.AccessDecision) string {
	s := fmt.Sprintf("%s %s (%s, %s) intent %s: %s\n",
		verdictLabel(d), d.Identity.DID, d.Identity.Tier, policy.TierLabel(d.Identity.Tier), d.Intent, d.Reason)
	if d.PolicyID != "" {
		s += fmt.Sprintf("  policy: %s\n", d.PolicyID)
	}
	if d.Detail != "" {
		s += fmt.Sprintf("  detail: %s\n", d.Detail)
	}
	if d.Identity.Fingerprint != "" {
		s += fmt.Sprintf("  fingerprint: %s\n", d.Identity.Fingerprint)
	}
	return s
}

func verdictLabel(d model.AccessDecision) string {
	if d.Allowed {
		return "ALLOW"
	}
	return "DENY "
}
