// Command bb reads, collects and analyzes entropy from BitBabbler USB
// hardware random number generators.
package main

import (
	"os"
	"strings"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/Thiagojm/go-bitbabbler/internal/cmd"
	"github.com/Thiagojm/go-bitbabbler/internal/configpaths"
	"github.com/Thiagojm/go-bitbabbler/internal/log"
)

func main() {
	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(userCfg)

	var cli cmd.CLI
	ctx := kong.Parse(&cli,
		kong.Name("bb"),
		kong.Description("BitBabbler hardware random number generator tool"),
		kong.UsageOnError(),
		// Flags and BB_* environment variables override config file values.
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	logger, closers, err := log.SetupLogger(cli.Log.Level, cli.Log.File)
	if err != nil {
		os.Stderr.WriteString("failed to set up logging: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	ctx.Bind(logger)
	ctx.FatalIfErrorf(ctx.Run())
}

// findUserConfig pre-scans argv for --config so candidate paths are known
// before kong parses anything.
func findUserConfig(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "--config=") {
			return a[len("--config="):]
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("BB_CONFIG")
}
