package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	logMaxSizeMB  = 5
	logMaxAgeDays = 14
	logMaxBackups = 5
)

var (
	// release variables
	Version   string
	Timestamp string
	GitCommit string

	// CLI
	cli struct {
		globals

		// flags
		Log       string `type:"path" default:"${log_file}" env:"SHARDSTATS_LOG" help:"Log file path"`
		Verbosity int    `type:"counter" default:"0" short:"v" env:"SHARDSTATS_VERBOSITY" help:"Log level verbosity"`
		LogLevel  string `default:"" env:"SHARDSTATS_LOG_LEVEL" help:"Log level (trace,debug,info,warn,error,fatal)"`

		// commands
		Serve    serveCmd    `cmd:"" default:"withargs" help:"Run the shardstats daemon"`
		Simulate simulateCmd `cmd:"" help:"Drive an in-process shard with simulated searches and print its stats"`
		Get      getCmd      `cmd:"" help:"Fetch stats from a running daemon"`
	}
)

type globals struct {
	Version versionFlag `name:"version" help:"Print version information and quit"`
}

type versionFlag string

func (versionFlag) Decode(_ *kong.DecodeContext) error { return nil }
func (versionFlag) IsBool() bool                       { return true }
func (versionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error { //nolint:unparam // satisfies kong.Hook interface
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

func main() {
	// parse cli
	ctx := kong.Parse(&cli,
		kong.Name("shardstats"),
		kong.Description("Per-shard search phase metrics"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Summary: true,
			Compact: true,
		}),
		kong.Vars{
			"version":     fmt.Sprintf("%s (%s@%s)", Version, GitCommit, Timestamp),
			"config_file": filepath.Join(defaultConfigDirectory("shardstats", "config.yml"), "config.yml"),
			"log_file":    filepath.Join(defaultConfigDirectory("shardstats", "config.yml"), "activity.log"),
		},
	)

	if err := ctx.Validate(); err != nil {
		fmt.Println("Failed parsing cli:", err)
		os.Exit(1)
	}

	// logger
	setupLogger()

	if err := ctx.Run(); err != nil {
		log.Fatal().
			Err(err).
			Str("command", ctx.Command()).
			Msg("Command Failed")
	}
}

// setupLogger points the global zerolog logger at stderr and the rotated log file.
func setupLogger() {
	out := io.MultiWriter(
		zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp},
		&lumberjack.Logger{
			Filename:   cli.Log,
			MaxSize:    logMaxSizeMB,
			MaxAge:     logMaxAgeDays,
			MaxBackups: logMaxBackups,
		},
	)

	level, err := logLevel(cli.LogLevel, cli.Verbosity)
	log.Logger = log.Output(out).Level(level)
	if err != nil {
		log.Fatal().Err(err).Str("level", cli.LogLevel).Msg("Invalid Log Level")
	}
}

// logLevel resolves --log-level, falling back to the -v count when it is unset.
// Info is returned alongside an error.
func logLevel(name string, verbosity int) (zerolog.Level, error) {
	if name != "" {
		level, err := zerolog.ParseLevel(name)
		if err != nil {
			return zerolog.InfoLevel, err
		}

		return level, nil
	}

	switch {
	case verbosity == 1:
		return zerolog.DebugLevel, nil
	case verbosity > 1:
		return zerolog.TraceLevel, nil
	default:
		return zerolog.InfoLevel, nil
	}
}
