package main

import (
	"context"
	"os"

	"github.com/ZanzyTHEbar/aurameter/internal/app"
	"github.com/ZanzyTHEbar/aurameter/internal/cli/output"
	"github.com/ZanzyTHEbar/aurameter/internal/config"
	"github.com/spf13/cobra"
)

// Set by the linker at release time.
var version = "dev"

var (
	configPath   string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "aurameter",
	Short: "Rank GitHub developers by impact index",
	Long: `aurameter maintains a leaderboard of GitHub users scored by an impact index
(stars, forks, followers and repositories), resolves where any stored user
ranks, and samples the GitHub population to keep the distribution current.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("aurameter version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default: $AURA_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table or json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
}

// loadConfig applies --config and --log-level on top of the usual layering.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("AURA_CONFIG")
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// withApp builds the services for one command. Logs go to stderr so stdout
// carries only the command's result.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, app.Options{LogOutput: os.Stderr, AutoMigrate: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return fn(ctx, a)
}

func newWriter() (*output.Writer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return output.Stdout(format), nil
}
