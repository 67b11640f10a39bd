package commands

import (
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParser(t *testing.T, cli *CLI) *kong.Kong {
	t.Helper()
	parser, err := kong.New(cli,
		kong.Name("llvmbuilder"),
		kong.Vars{"version": "test"},
	)
	require.NoError(t, err)
	return parser
}

func TestParseBuildFlags(t *testing.T) {
	var cli CLI
	parser := newParser(t, &cli)

	ctx, err := parser.Parse([]string{
		"build", "-j", "8", "--lld",
		"--feature", "enable-cir=true",
		"--only", "build,test",
		"--report-json", "out.json",
	})
	require.NoError(t, err)
	assert.Equal(t, "build", ctx.Command())

	require.NotNil(t, cli.Build.Jobs)
	assert.Equal(t, 8, *cli.Build.Jobs)
	require.NotNil(t, cli.Build.LLD)
	assert.True(t, *cli.Build.LLD)
	assert.Nil(t, cli.Build.CC, "unset pointer flags stay nil")
	assert.Equal(t, map[string]bool{"enable-cir": true}, cli.Build.Feature)
	assert.Equal(t, []string{"build", "test"}, cli.Build.Only)
	assert.Equal(t, "out.json", cli.Build.ReportJSON)
	assert.Equal(t, "llvmbuilder.yaml", cli.Config, "config path default")
}

func TestParseBuildEnvVars(t *testing.T) {
	t.Setenv("LLVMBUILDER_JOBS", "4")
	t.Setenv("LLVMBUILDER_CC", "/opt/cc")

	var cli CLI
	parser := newParser(t, &cli)
	_, err := parser.Parse([]string{"build"})
	require.NoError(t, err)

	require.NotNil(t, cli.Build.Jobs)
	assert.Equal(t, 4, *cli.Build.Jobs)
	require.NotNil(t, cli.Build.CC)
	assert.Equal(t, "/opt/cc", *cli.Build.CC)
}

func TestParseHistoryDefaultsToList(t *testing.T) {
	var cli CLI
	parser := newParser(t, &cli)

	ctx, err := parser.Parse([]string{"history"})
	require.NoError(t, err)
	assert.Equal(t, "history list", ctx.Command())
	assert.Equal(t, 20, cli.History.List.Limit)
}

func TestParseHistoryShow(t *testing.T) {
	var cli CLI
	parser := newParser(t, &cli)

	_, err := parser.Parse([]string{"history", "show", "0123abcd", "--format", "markdown"})
	require.NoError(t, err)
	assert.Equal(t, "0123abcd", cli.History.Show.RunID)
	assert.Equal(t, "markdown", cli.History.Show.Format)

	_, err = parser.Parse([]string{"history", "show", "0123abcd", "--format", "pdf"})
	assert.Error(t, err, "format enum rejects unknown values")

	_, err = parser.Parse([]string{"history", "show"})
	assert.Error(t, err, "run id argument is required")
}

func TestParseSyncFlags(t *testing.T) {
	var cli CLI
	parser := newParser(t, &cli)

	_, err := parser.Parse([]string{"sync", "--step", "MAX", "--dry-run"})
	require.NoError(t, err)
	assert.Equal(t, "MAX", cli.Sync.Step)
	assert.True(t, cli.Sync.DryRun)
}

func TestParseNegatableBools(t *testing.T) {
	var cli CLI
	parser := newParser(t, &cli)

	_, err := parser.Parse([]string{"build", "--no-assertions", "--split-dwarf"})
	require.NoError(t, err)
	require.NotNil(t, cli.Build.Assertions)
	assert.False(t, *cli.Build.Assertions)
	require.NotNil(t, cli.Build.SplitDwarf)
	assert.True(t, *cli.Build.SplitDwarf)
}

func TestParseWatchFlags(t *testing.T) {
	var cli CLI
	parser := newParser(t, &cli)

	_, err := parser.Parse([]string{"watch", "--listen", ":9444", "--every", "24h", "--stages", "build,test"})
	require.NoError(t, err)
	assert.Equal(t, ":9444", cli.Watch.Listen)
	require.NotNil(t, cli.Watch.Every)
	assert.Equal(t, 24*time.Hour, *cli.Watch.Every)
	assert.Equal(t, []string{"build", "test"}, cli.Watch.Stages)
}
