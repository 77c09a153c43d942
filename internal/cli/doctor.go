package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/accord/internal/audit"
	"github.com/ppiankov/accord/internal/config"
	"github.com/ppiankov/accord/internal/feature"
	"github.com/ppiankov/accord/internal/ledger"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, ledger, audit log and feature source",
	RunE:  runDoctor,
}

type checkResult struct {
	label  string
	ok     bool
	detail string
	fix    string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	var checks []checkResult

	execPath, _ := os.Executable()
	if execPath != "" {
		checks = append(checks, checkResult{
			label:  "accord binary",
			ok:     true,
			detail: fmt.Sprintf("%s (%s)", execPath, version),
		})
	} else {
		checks = append(checks, checkResult{
			label:  "accord binary",
			ok:     false,
			detail: "cannot determine executable path",
		})
	}

	path := resolvedConfigPath()
	if _, err := os.Stat(path); err != nil {
		checks = append(checks, checkResult{
			label:  "config file",
			ok:     false,
			detail: path + " missing (using defaults)",
			fix:    "accord init",
		})
	} else {
		checks = append(checks, checkResult{label: "config file", ok: true, detail: path})
	}

	cfg, hash, err := config.LoadWithHash(configPath)
	if err != nil {
		checks = append(checks, checkResult{
			label:  "config valid",
			ok:     false,
			detail: err.Error(),
			fix:    "edit " + path,
		})
		printChecks(checks)
		return fmt.Errorf("doctor found issues")
	}
	checks = append(checks, checkResult{
		label:  "config valid",
		ok:     true,
		detail: fmt.Sprintf("%d rules, %d identities, %s", len(cfg.Policy.Rules), len(cfg.Identities), hash),
	})

	checks = append(checks, checkLedger(cfg.Ledger.Path))
	checks = append(checks, checkAudit(cfg.Audit.Path))
	checks = append(checks, checkFeature(cfg.Feature.Path))

	if cfg.Stream.Enabled() {
		if err := cfg.Stream.Validate(); err != nil {
			checks = append(checks, checkResult{label: "stream", ok: false, detail: err.Error()})
		} else {
			checks = append(checks, checkResult{
				label:  "stream",
				ok:     true,
				detail: fmt.Sprintf("%s on %s", cfg.Stream.Topic, strings.Join(cfg.Stream.Brokers, ",")),
			})
		}
	} else {
		checks = append(checks, checkResult{label: "stream", ok: true, detail: "disabled (no brokers)"})
	}

	if printChecks(checks) {
		fmt.Println()
		fmt.Println("Some checks failed. Run the suggested commands to fix.")
		return fmt.Errorf("doctor found issues")
	}

	fmt.Println()
	fmt.Println("All checks passed.")
	return nil
}

// checkLedger never creates the database.
func checkLedger(path string) checkResult {
	if _, err := os.Stat(path); err != nil {
		return checkResult{label: "ledger", ok: true, detail: path + " (created on first submission)"}
	}
	store, err := ledger.Open(path)
	if err != nil {
		return checkResult{label: "ledger", ok: false, detail: err.Error()}
	}
	defer store.Close()
	n, err := store.Count(context.Background())
	if err != nil {
		return checkResult{label: "ledger", ok: false, detail: err.Error()}
	}
	return checkResult{label: "ledger", ok: true, detail: fmt.Sprintf("%s (%d records)", path, n)}
}

func checkAudit(path string) checkResult {
	if path == "" {
		return checkResult{label: "audit log", ok: true, detail: "disabled"}
	}
	if _, err := os.Stat(path); err != nil {
		return checkResult{label: "audit log", ok: true, detail: path + " (created on first submission)"}
	}
	result := audit.Verify(path)
	if !result.Valid {
		return checkResult{
			label:  "audit log",
			ok:     false,
			detail: fmt.Sprintf("chain broken at line %d: %s", result.ErrorLine, result.Error),
			fix:    "accord audit replay " + path,
		}
	}
	return checkResult{label: "audit log", ok: true, detail: fmt.Sprintf("%s (%d entries verified)", path, result.Lines)}
}

func checkFeature(path string) checkResult {
	values, err := feature.Read(path)
	switch {
	case errors.Is(err, feature.ErrUnavailable):
		return checkResult{
			label:  "feature source",
			ok:     false,
			detail: path + " unavailable (feature components will degrade to 0)",
			fix:    "accord potential write --out " + path + " <values>",
		}
	case err != nil:
		return checkResult{label: "feature source", ok: false, detail: err.Error()}
	}
	return checkResult{label: "feature source", ok: true, detail: fmt.Sprintf("%s (%d values)", path, len(values))}
}

// printChecks prints the results and reports whether any failed.
func printChecks(checks []checkResult) bool {
	hasFailures := false
	for _, c := range checks {
		mark := "✓"
		if !c.ok {
			mark = "✗"
			hasFailures = true
		}
		line := fmt.Sprintf("%s %-16s %s", mark, c.label+":", c.detail)
		if !c.ok && c.fix != "" {
			line += fmt.Sprintf("  ->  %s", c.fix)
		}
		fmt.Println(line)
	}
	return hasFailures
}
