// Package cmd holds the kong command tree for the bb binary.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// CLI is the root of the command tree. Field values resolve from flags,
// then BB_* environment variables, then any loaded configuration file.
type CLI struct {
	Config string    `help:"Path to a configuration file" env:"BB_CONFIG"`
	Log    LogConfig `embed:"" prefix:"log."`

	Read    ReadCmd       `cmd:"" help:"Read entropy bytes from a BitBabbler"`
	Bits    BitsCmd       `cmd:"" help:"Read a bit string and print hex, integer and binary renderings"`
	List    ListCmd       `cmd:"" help:"List attached BitBabbler devices"`
	Collect CollectCmd    `cmd:"" help:"Periodically sample entropy into .bin and .csv files"`
	Stat    StatCmd       `cmd:"" help:"Run statistical sanity checks over a sample"`
	Xlsx    XlsxCmd       `cmd:"" help:"Export a collected sample to an Excel z-score workbook"`
	Cfg     ConfigCommand `cmd:"" name:"config" help:"Configuration file helpers"`
}

// LogConfig selects log verbosity and destination.
type LogConfig struct {
	Level string `help:"Log level (trace, debug, info, warn, error)" default:"info" env:"BB_LOG_LEVEL"`
	File  string `help:"Also append logs to this file" env:"BB_LOG_FILE"`
}

// interruptContext returns a context cancelled by SIGINT or SIGTERM.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
