package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ppiankov/accord/internal/feature"
)

var (
	potentialOut    string
	potentialIn     string
	potentialIndex  int
	potentialFormat string
)

func init() {
	rootCmd.AddCommand(potentialCmd)
	potentialCmd.AddCommand(potentialWriteCmd, potentialReadCmd)

	potentialWriteCmd.Flags().StringVar(&potentialOut, "out", "", "Output file (default: feature.path from config)")

	potentialReadCmd.Flags().StringVar(&potentialIn, "in", "", "Input file (default: feature.path from config)")
	potentialReadCmd.Flags().IntVar(&potentialIndex, "index", -1, "Print a single element")
	potentialReadCmd.Flags().StringVarP(&potentialFormat, "format", "f", "text", "Output format (text|json)")
}

var potentialCmd = &cobra.Command{
	Use:   "potential",
	Short: "Feature source tooling",
	Long:  "Reads and writes the feature source: a flat sequence of little-endian\nIEEE-754 float32 values, element i at byte offset 4*i.",
}

var potentialWriteCmd = &cobra.Command{
	Use:   "write <value>...",
	Short: "Write values to a feature file",
	Long:  "Encodes the values and replaces the file atomically, so running\nservers with a feature watcher pick up the new vector.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPotentialWrite,
}

var potentialReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Print the values of a feature file",
	RunE:  runPotentialRead,
}

func runPotentialWrite(cmd *cobra.Command, args []string) error {
	values, err := parseValues(args)
	if err != nil {
		return err
	}
	path, err := potentialPath(potentialOut)
	if err != nil {
		return err
	}
	if err := feature.Write(path, values); err != nil {
		return err
	}
	fmt.Printf("wrote %d values (%d bytes) to %s\n", len(values), len(values)*feature.RecordSize, path)
	return nil
}

func runPotentialRead(cmd *cobra.Command, args []string) error {
	path, err := potentialPath(potentialIn)
	if err != nil {
		return err
	}

	if potentialIndex >= 0 {
		v, err := feature.File{Path: path}.At(potentialIndex)
		if err != nil {
			return err
		}
		fmt.Println(strconv.FormatFloat(float64(v), 'g', -1, 32))
		return nil
	}

	values, err := feature.Read(path)
	if err != nil {
		return err
	}
	switch potentialFormat {
	case "json":
		// JSON has no NaN or Inf.
		out := make([]string, len(values))
		for i, v := range values {
			out[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
	default:
		for i, v := range values {
			fmt.Printf("%6d  %s\n", i, strconv.FormatFloat(float64(v), 'g', -1, 32))
		}
	}
	return nil
}

// parseValues accepts decimal, exponent and NaN/Inf spellings.
func parseValues(args []string) ([]float32, error) {
	values := make([]float32, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", a, err)
		}
		values[i] = float32(v)
	}
	return values, nil
}

func potentialPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, _, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.Feature.Path, nil
}
