package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/size-analysis/internal/decoder/graphdoc"
	"github.com/size-analysis/pkg/writer"
)

var (
	// Graph command flags
	graphFormat   string
	graphEncoding string
	graphOutput   string
	graphGzip     bool
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Export the item graph of a module",
	Long: `Decode a module and write its item graph as a JSON or YAML document.

The document can be edited and fed back to analyze, which makes it easy to
experiment with roots and edges without rebuilding the module.`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)

	f := graphCmd.Flags()
	f.StringVarP(&graphFormat, "format", "f", "auto", "Input format: auto, wasm, json, yaml")
	f.StringVarP(&graphEncoding, "encoding", "e", "json", "Output encoding: json or yaml")
	f.StringVarP(&graphOutput, "output", "o", "-", "Output file, - for stdout")
	f.BoolVar(&graphGzip, "gzip", false, "Gzip the JSON output (requires --output)")
}

func runGraph(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	svc, err := newService(cmd.Context(), false)
	if err != nil {
		return err
	}
	g, format, err := svc.Facade().DecodeGraph(cmd.Context(), data, graphFormat)
	if err != nil {
		return err
	}
	GetLogger().Debug("Decoded %s as %s: %d items, %d edges", args[0], format, g.Len(), g.EdgeCount())
	doc := graphdoc.FromGraph(g)

	switch graphEncoding {
	case "json":
		if graphGzip {
			if graphOutput == "-" {
				return fmt.Errorf("--gzip requires --output")
			}
			res, err := writer.NewGzipWriter[*graphdoc.Document]().WriteToFileWithStats(doc, graphOutput)
			if err != nil {
				return err
			}
			GetLogger().Info("Wrote %s (%d bytes, %d uncompressed)", graphOutput, res.CompressedSize, res.JSONSize)
			return nil
		}
		w := writer.NewPrettyJSONWriter[*graphdoc.Document]()
		if graphOutput == "-" {
			return w.Write(doc, cmd.OutOrStdout())
		}
		return w.WriteToFile(doc, graphOutput)
	case "yaml", "yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), graphOutput, buf.Bytes())
	default:
		return fmt.Errorf("unsupported output encoding %q", graphEncoding)
	}
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}
