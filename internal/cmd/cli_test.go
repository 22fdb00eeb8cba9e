package cmd

import (
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T, cli *CLI) *kong.Kong {
	t.Helper()
	parser, err := kong.New(cli, kong.Name("bb"), kong.Exit(func(int) {}))
	require.NoError(t, err)
	return parser
}

func TestCLIParsesCommands(t *testing.T) {
	t.Run("read flags", func(t *testing.T) {
		var cli CLI
		ctx, err := newTestParser(t, &cli).Parse(
			[]string{"read", "--bytes", "32", "--fold", "2", "--hex", "--serial", "BB000123"})
		require.NoError(t, err)
		assert.Equal(t, "read", ctx.Command())
		assert.Equal(t, 32, cli.Read.Bytes)
		assert.Equal(t, 2, cli.Read.Fold)
		assert.True(t, cli.Read.Hex)
		assert.Equal(t, "BB000123", cli.Read.Serial)
	})

	t.Run("read requires bytes", func(t *testing.T) {
		var cli CLI
		_, err := newTestParser(t, &cli).Parse([]string{"read"})
		assert.Error(t, err)
	})

	t.Run("bits defaults", func(t *testing.T) {
		var cli CLI
		ctx, err := newTestParser(t, &cli).Parse([]string{"bits"})
		require.NoError(t, err)
		assert.Equal(t, "bits", ctx.Command())
		assert.Equal(t, 2048, cli.Bits.Bits)
		assert.Equal(t, uint(2500000), cli.Bits.Bitrate)
	})

	t.Run("collect defaults", func(t *testing.T) {
		var cli CLI
		_, err := newTestParser(t, &cli).Parse([]string{"collect"})
		require.NoError(t, err)
		assert.Equal(t, 2048, cli.Collect.Bits)
		assert.Equal(t, 1, cli.Collect.Interval)
		assert.Equal(t, "data", cli.Collect.OutDir)
	})

	t.Run("stat sources are exclusive", func(t *testing.T) {
		var cli CLI
		_, err := newTestParser(t, &cli).Parse([]string{"stat", "--bytes", "64", "--file", "x.bin"})
		assert.Error(t, err)
	})

	t.Run("config init", func(t *testing.T) {
		var cli CLI
		ctx, err := newTestParser(t, &cli).Parse([]string{"config", "init", "--format", "toml"})
		require.NoError(t, err)
		assert.Equal(t, "config init", ctx.Command())
		assert.Equal(t, "toml", cli.Cfg.Init.Format)
	})

	t.Run("log level from flag", func(t *testing.T) {
		var cli CLI
		_, err := newTestParser(t, &cli).Parse([]string{"--log.level", "debug", "list"})
		require.NoError(t, err)
		assert.Equal(t, "debug", cli.Log.Level)
	})
}
