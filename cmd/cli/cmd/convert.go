package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Convert command flags
	convertInput         string
	convertOutput        string
	convertDuplicateKeys string
	convertNarrowing     string
	convertCompact       bool
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert key/value tape text to JSON",
	Long: `Convert key/value tape text (key=value pairs, nested {} blocks, quoted
strings and comparison operators) into a JSON document.

Duplicate keys are handled by one of three modes:
  - preserve        : emit every occurrence in order (default)
  - group           : collect repeated keys into an array
  - key-value-pairs : emit the document as an array of [key, value] pairs

Type narrowing turns scalars into numbers and booleans:
  - all      : narrow quoted and unquoted scalars (default)
  - unquoted : only narrow unquoted scalars
  - none     : keep every scalar a string`,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	binName := BinName()
	convertCmd.Example = `  # Convert a file and print the JSON
  ` + binName + ` convert -i save.txt

  # Read stdin, group duplicate keys and keep quoted values as strings
  cat save.txt | ` + binName + ` convert --duplicate-keys group --narrowing unquoted`

	f := convertCmd.Flags()
	f.StringVarP(&convertInput, "input", "i", "-", "Input file, - for stdin")
	f.StringVarP(&convertOutput, "output", "o", "-", "Output file, - for stdout")
	f.StringVar(&convertDuplicateKeys, "duplicate-keys", "", "Duplicate key mode: preserve, group, key-value-pairs")
	f.StringVar(&convertNarrowing, "narrowing", "", "Type narrowing: all, unquoted, none")
	f.BoolVar(&convertCompact, "compact", false, "Do not indent the output")
}

func runConvert(cmd *cobra.Command, args []string) error {
	var (
		text []byte
		err  error
	)
	if convertInput == "-" {
		text, err = io.ReadAll(cmd.InOrStdin())
	} else {
		text, err = os.ReadFile(convertInput)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	svc, err := newService(cmd.Context(), false)
	if err != nil {
		return err
	}

	opts := svc.TapeOptions()
	if convertDuplicateKeys != "" {
		opts.DuplicateKeys = convertDuplicateKeys
	}
	if convertNarrowing != "" {
		opts.TypeNarrowing = convertNarrowing
	}
	if cmd.Flags().Changed("compact") {
		pretty := !convertCompact
		opts.Pretty = &pretty
	}

	out, err := svc.Convert(cmd.Context(), text, opts)
	if err != nil {
		return err
	}

	if convertOutput == "-" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	}
	return os.WriteFile(convertOutput, []byte(out+"\n"), 0644)
}
