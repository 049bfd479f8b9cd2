package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/size-analysis/internal/decoder/graphdoc"
	"github.com/size-analysis/internal/testutil"
	"github.com/size-analysis/pkg/model"
)

// resetFlags restores every flag to its default so that commands executed
// by earlier tests do not leak state.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SIZE_ANALYSIS_STORAGE_LOCAL_PATH", filepath.Join(t.TempDir(), "storage"))
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	input := testutil.WriteTemp(t, "app.json", []byte(testutil.SampleGraphJSON))

	out, err := execute(t, "", "analyze", input)
	require.NoError(t, err)

	var doc model.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Garbage, 1)
	assert.Equal(t, "unused", doc.Garbage[0].Name)
}

func TestAnalyzeCommand_BatchToDirectory(t *testing.T) {
	a := testutil.WriteTemp(t, "a.json", []byte(testutil.SampleGraphJSON))
	b := testutil.WriteTemp(t, "b.json", []byte(testutil.SampleGraphJSON))
	outDir := t.TempDir()

	_, err := execute(t, "", "analyze", "--output", outDir, "--jobs", "2", a, b)
	require.NoError(t, err)

	for _, name := range []string{"a.sizes.json", "b.sizes.json"} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"dominators"`)
	}
}

func TestConvertCommand(t *testing.T) {
	out, err := execute(t, "a=1\nb=yes\n", "convert", "--compact")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":true}`, strings.TrimSpace(out))
}

func TestGraphCommand_YAML(t *testing.T) {
	input := testutil.WriteTemp(t, "app.json", []byte(testutil.SampleGraphJSON))

	out, err := execute(t, "", "graph", "--encoding", "yaml", input)
	require.NoError(t, err)

	var doc graphdoc.Document
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc.Items, 3)
	assert.Len(t, doc.Edges, 1)
	assert.Equal(t, []uint32{0}, doc.Roots)
}

func TestHistoryCommand_Disabled(t *testing.T) {
	_, err := execute(t, "", "history", "list")
	assert.Error(t, err)
}
