package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/accord/internal/client"
	"github.com/ppiankov/accord/internal/ledger"
	"github.com/ppiankov/accord/internal/metrics"
	"github.com/ppiankov/accord/internal/model"
	"github.com/ppiankov/accord/internal/policy"
	"github.com/ppiankov/accord/internal/svt"
)

const defaultSubmitter = "did:t0:protocol-overseer"

var (
	svtDID          string
	svtMessage      string
	svtIntent       string
	svtFeatureIndex int
	svtEnergy       int
	svtTimestamp    int64
	svtDryRun       bool
	svtServer       string
	svtFormat       string
	svtListLimit    int
)

func init() {
	rootCmd.AddCommand(svtCmd)
	svtCmd.AddCommand(svtCreateCmd, svtShowCmd, svtListCmd)

	f := svtCreateCmd.Flags()
	f.StringVar(&svtDID, "did", defaultSubmitter, "Submitting DID")
	f.StringVar(&svtMessage, "message", "", "Transaction payload (required)")
	f.StringVar(&svtIntent, "financial-unit", "", "Intent or financial unit, e.g. OVERRIDE (required)")
	f.IntVar(&svtFeatureIndex, "feature-index", 0, "Index into the feature source")
	f.IntVar(&svtEnergy, "energy", 0, fmt.Sprintf("Energy signature (0..%d)", model.MaxEnergySignature))
	f.Int64Var(&svtTimestamp, "timestamp", 0, "Epoch seconds (default now)")
	f.BoolVar(&svtDryRun, "dry-run", false, "Compute the weight without auditing, storing or publishing")
	f.StringVar(&svtServer, "server", "", "Submit to a remote accord server (host:port)")
	f.StringVarP(&svtFormat, "format", "f", "text", "Output format (text|json)")
	svtCreateCmd.MarkFlagRequired("message")
	svtCreateCmd.MarkFlagRequired("financial-unit")

	svtShowCmd.Flags().StringVarP(&svtFormat, "format", "f", "text", "Output format (text|json)")
	svtListCmd.Flags().IntVarP(&svtListLimit, "lines", "n", 20, "Number of recent records to show (0 for all)")
	svtListCmd.Flags().StringVarP(&svtFormat, "format", "f", "text", "Output format (text|json)")
}

var svtCmd = &cobra.Command{
	Use:   "svt",
	Short: "Sovereign transaction operations",
}

var svtCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Submit an SVT",
	Long: "Evaluates the submitter's access, computes the consensus weight, records\n" +
		"the decision in the audit log, appends the SVT to the ledger and publishes\n" +
		"it to the event stream when brokers are configured.\n\n" +
		"--did defaults to the protocol overseer (" + defaultSubmitter + ").\n" +
		"Exits 1 if access is denied.",
	RunE: runSVTCreate,
}

var svtShowCmd = &cobra.Command{
	Use:   "show <svt-id>",
	Short: "Show a ledger record",
	Args:  cobra.ExactArgs(1),
	RunE:  runSVTShow,
}

var svtListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent ledger records",
	RunE:  runSVTList,
}

func svtRequest() svt.Request {
	return svt.Request{
		DID:             svtDID,
		Intent:          model.Intent(svtIntent),
		Message:         svtMessage,
		Timestamp:       svtTimestamp,
		FeatureIndex:    svtFeatureIndex,
		EnergySignature: svtEnergy,
	}
}

func runSVTCreate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := submitSVT(ctx, svtRequest())
	var denied *policy.DeniedError
	if errors.As(err, &denied) {
		fmt.Fprint(os.Stderr, formatDecision(denied.Decision))
		os.Exit(1)
	}
	if err != nil {
		return err
	}

	switch svtFormat {
	case "json":
		if err := printJSON(res); err != nil {
			return err
		}
	default:
		fmt.Print(formatResult(res, svtDryRun))
	}
	return nil
}

// submitSVT routes the request to the remote server or the local pipeline.
func submitSVT(ctx context.Context, req svt.Request) (svt.Result, error) {
	if svtServer != "" {
		c, err := client.New(svtServer)
		if err != nil {
			return svt.Result{}, err
		}
		defer c.Close()
		if svtDryRun {
			return c.Weigh(ctx, req)
		}
		return c.Submit(ctx, req)
	}

	cfg, hash, err := loadConfig()
	if err != nil {
		return svt.Result{}, err
	}
	if svtDryRun {
		proc, err := svt.Build(cfg, hash, featureSource(cfg), svt.Sinks{}, logger, nil)
		if err != nil {
			return svt.Result{}, err
		}
		return proc.Weigh(req)
	}

	m := metrics.New()
	sinks, closeSinks, err := openSinks(cfg, m)
	if err != nil {
		return svt.Result{}, err
	}
	defer closeSinks()
	proc, err := svt.Build(cfg, hash, featureSource(cfg), sinks, logger, m)
	if err != nil {
		return svt.Result{}, err
	}
	return proc.Submit(ctx, req)
}

func runSVTShow(cmd *cobra.Command, args []string) error {
	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	switch svtFormat {
	case "json":
		if err := printJSON(rec); err != nil {
			return err
		}
	default:
		fmt.Print(formatRecord(rec))
	}
	return nil
}

func runSVTList(cmd *cobra.Command, args []string) error {
	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.List(context.Background(), svtListLimit)
	if err != nil {
		return err
	}

	switch svtFormat {
	case "json":
		if err := printJSON(recs); err != nil {
			return err
		}
	default:
		if len(recs) == 0 {
			fmt.Println("No records.")
			return nil
		}
		for _, r := range recs {
			fmt.Printf("%s  %-28s %-3s %-18s %20d\n",
				r.ID, truncate(r.DID, 28), r.Tier, truncate(string(r.Intent), 18), r.Breakdown.Total)
		}
	}
	return nil
}

func openLedger() (*ledger.Store, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return ledger.Open(cfg.Ledger.Path)
}

func formatResult(res svt.Result, dryRun bool) string {
	var b strings.Builder
	label := "ACCEPTED"
	if dryRun {
		label = "DRY RUN"
	}
	fmt.Fprintf(&b, "%s %s\n", label, res.ID)
	fmt.Fprintf(&b, "  did:      %s (%s)\n", res.Decision.Identity.DID, res.Decision.Identity.Tier)
	fmt.Fprintf(&b, "  intent:   %s\n", res.Submission.Intent)
	fmt.Fprintf(&b, "  decision: %s (%s)\n", res.Decision.Reason, res.Decision.PolicyID)
	if res.Breakdown != nil {
		writeBreakdown(&b, *res.Breakdown)
	}
	if !dryRun {
		fmt.Fprintf(&b, "  ledger:   %s\n", yesNo(res.Inserted, "inserted", "already present"))
		fmt.Fprintf(&b, "  stream:   %s\n", yesNo(res.Published, "published", "not published"))
	}
	return b.String()
}

func formatRecord(r ledger.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.ID)
	fmt.Fprintf(&b, "  did:       %s (%s)\n", r.DID, r.Tier)
	fmt.Fprintf(&b, "  intent:    %s\n", r.Intent)
	if r.Message != "" {
		fmt.Fprintf(&b, "  message:   %s\n", r.Message)
	}
	fmt.Fprintf(&b, "  timestamp: %s\n", time.Unix(r.Timestamp, 0).UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "  decision:  %s (%s)\n", r.Reason, r.PolicyID)
	writeBreakdown(&b, r.Breakdown)
	fmt.Fprintf(&b, "  flag:      %s\n", r.VerificationFlag)
	return b.String()
}

func writeBreakdown(b *strings.Builder, w model.WeightBreakdown) {
	fmt.Fprintf(b, "  weight:   %d\n", w.Total)
	fmt.Fprintf(b, "    hash     %d\n", w.HashComponent)
	fmt.Fprintf(b, "    energy   %d\n", w.AVXComponent)
	fmt.Fprintf(b, "    feature  %d (value %g)\n", w.FeatureComponent, w.FeatureValue)
	fmt.Fprintf(b, "    bonus    %d\n", w.IntentBonus)
	if w.FeatureDegraded {
		fmt.Fprintf(b, "    feature degraded: %s\n", w.DegradedReason)
	}
	if w.FeatureInvalid {
		b.WriteString("    feature value invalid, floor applied\n")
	}
}

func yesNo(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
