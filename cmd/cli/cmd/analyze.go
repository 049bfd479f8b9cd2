package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/size-analysis/internal/analyzer"
	"github.com/size-analysis/internal/service"
	"github.com/size-analysis/pkg/compression"
	"github.com/size-analysis/pkg/parallel"
)

var (
	// Analyze command flags
	analyzeInputs    []string
	analyzeOutputDir string
	analyzeFormat    string
	analyzeMaxItems  uint32
	analyzeShowData  bool
	analyzePretty    bool
	analyzeSummary   bool
	analyzeStore     bool
	analyzeGzip      bool
	analyzeJobs      int
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [files...]",
	Short: "Analyze module sizes",
	Long: `Analyze one or more modules and write their size reports.

Each report lists the dominator tree entries sorted by retained size and the
garbage items no root can reach. Inputs may be wasm binaries or JSON/YAML
item graph documents, optionally gzip or zstd compressed.

With a single input and no --output the report is written to stdout.
Options not given on the command line come from the configuration file.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	binName := BinName()
	analyzeCmd.Example = `  # Print the report of one module
  ` + binName + ` analyze app.wasm --pretty

  # Report at most 20 garbage items, data segments included
  ` + binName + ` analyze app.wasm --max-items 20

  # Batch analyze into a directory and keep the reports in storage
  ` + binName + ` analyze -o ./reports --store a.wasm b.wasm`

	f := analyzeCmd.Flags()
	f.StringSliceVarP(&analyzeInputs, "input", "i", nil, "Input files (may also be given as arguments)")
	f.StringVarP(&analyzeOutputDir, "output", "o", "", "Output directory for reports")
	f.StringVarP(&analyzeFormat, "format", "f", "auto", "Input format: auto, wasm, json, yaml")
	f.Uint32VarP(&analyzeMaxItems, "max-items", "n", 0, "Maximum garbage items to report (0 for unlimited)")
	f.BoolVar(&analyzeShowData, "show-data-segments", true, "Always report garbage data segments")
	f.BoolVar(&analyzePretty, "pretty", false, "Indent the output")
	f.BoolVar(&analyzeSummary, "summary", false, "Include the summary member")
	f.BoolVar(&analyzeStore, "store", false, "Save reports to the configured storage")
	f.BoolVar(&analyzeGzip, "gzip", false, "Gzip report files written to --output")
	f.IntVarP(&analyzeJobs, "jobs", "j", 0, "Concurrent analyses (defaults to analysis.concurrency)")
}

// analysisOptions applies the flags that were set on top of the configured
// defaults.
func analysisOptions(cmd *cobra.Command, base *analyzer.AnalysisOptions) *analyzer.AnalysisOptions {
	opts := *base
	flags := cmd.Flags()
	if flags.Changed("format") {
		opts.Format = analyzeFormat
	}
	if flags.Changed("max-items") {
		opts.MaxItems = analyzeMaxItems
		if opts.MaxItems == 0 {
			opts.MaxItems = analyzer.DefaultAnalysisOptions().MaxItems
		}
	}
	if flags.Changed("show-data-segments") {
		opts.ShowDataSegments = analyzeShowData
	}
	if flags.Changed("pretty") {
		opts.Pretty = analyzePretty
	}
	if flags.Changed("summary") {
		opts.IncludeSummary = analyzeSummary
	}
	return &opts
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	inputs := append(append([]string{}, analyzeInputs...), args...)
	if len(inputs) == 0 {
		return fmt.Errorf("no input files given")
	}
	if analyzeOutputDir == "" && len(inputs) > 1 {
		return fmt.Errorf("--output is required when analyzing %d inputs", len(inputs))
	}
	if analyzeOutputDir != "" {
		if err := os.MkdirAll(analyzeOutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	ctx := cmd.Context()
	svc, err := newService(ctx, analyzeStore || cfg.Database.Enabled)
	if err != nil {
		return err
	}
	defer svc.Close()

	opts := analysisOptions(cmd, svc.AnalysisOptions())
	jobs := analyzeJobs
	if jobs <= 0 {
		jobs = cfg.Analysis.Concurrency
	}

	results := parallel.Map(ctx, jobs, inputs, func(ctx context.Context, path string) (*service.RunResult, error) {
		return analyzeFile(ctx, svc, path, opts)
	})

	for _, r := range results {
		if r.Err != nil {
			log.Error("%s: %v", r.Input, r.Err)
			continue
		}
		s := r.Value.Result.Summary
		log.Info("%s: %d items, %d garbage (%d bytes), run %s in %v",
			r.Input, s.ItemCount, s.GarbageCount, s.GarbageSize, r.Value.Run.RunID, r.Duration)
		if analyzeOutputDir == "" {
			if _, err := cmd.OutOrStdout().Write(r.Value.Result.JSON); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
		}
	}

	if failed := parallel.Failed(results); failed > 0 {
		return fmt.Errorf("%d of %d analyses failed", failed, len(results))
	}
	return nil
}

func analyzeFile(ctx context.Context, svc *service.Service, path string, opts *analyzer.AnalysisOptions) (*service.RunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	res, err := svc.Analyze(ctx, service.AnalyzeRequest{
		Source:      path,
		Data:        data,
		Options:     opts,
		StoreReport: analyzeStore,
	})
	if err != nil {
		return nil, err
	}

	if analyzeOutputDir != "" {
		if err := writeReport(reportPath(path), res.Result.JSON); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func reportPath(input string) string {
	base := filepath.Base(input)
	for _, ext := range []string{".gz", ".zst", ".wasm", ".json", ".yaml", ".yml"} {
		base = strings.TrimSuffix(base, ext)
	}
	name := base + ".sizes.json"
	if analyzeGzip {
		name += compression.TypeGzip.Extension()
	}
	return filepath.Join(analyzeOutputDir, name)
}

func writeReport(path string, report []byte) error {
	if analyzeGzip {
		packed, err := compression.NewGzipCompressor(compression.LevelDefault).Compress(report)
		if err != nil {
			return err
		}
		report = packed
	}
	return os.WriteFile(path, report, 0644)
}
