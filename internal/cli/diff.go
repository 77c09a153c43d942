package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/accord/internal/config"
	"github.com/ppiankov/accord/internal/policydiff"
)

var diffFormat string

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "text", "Output format (text|json)")
}

var diffCmd = &cobra.Command{
	Use:   "diff <old.yaml> <new.yaml>",
	Short: "Compare two config files and show changes",
	Long:  "Loads two accord config files and shows what changed in human-readable terms:\nfail-open, intent classes, rules, identities and weighting constants.",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	oldCfg, err := loadConfigFile(args[0])
	if err != nil {
		return fmt.Errorf("load old config: %w", err)
	}

	newCfg, err := loadConfigFile(args[1])
	if err != nil {
		return fmt.Errorf("load new config: %w", err)
	}

	result := policydiff.Diff(oldCfg, newCfg)
	result.OldPath = args[0]
	result.NewPath = args[1]

	switch diffFormat {
	case "json":
		out, err := policydiff.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(policydiff.FormatText(result))
	}

	return nil
}

// loadConfigFile loads path, which must exist.
func loadConfigFile(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return config.Load(path)
}
