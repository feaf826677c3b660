package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quarry/internal/common"
)

var (
	configFiles []string

	// Global state
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:           "quarry",
	Short:         "Extract structured records from a work item detail view",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd {
			return nil
		}
		return initialize(writesToStdout(cmd))
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil,
		"Configuration file path (repeatable, later files override earlier ones)")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(versionCmd)
}

// initialize loads config (defaults -> files -> env), then sets up logging and prints the banner
func initialize(quiet bool) error {
	if len(configFiles) == 0 {
		if _, err := os.Stat("quarry.toml"); err == nil {
			configFiles = append(configFiles, "quarry.toml")
		} else if _, err := os.Stat("deployments/local/quarry.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/quarry.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration %v: %w", configFiles, err)
	}

	logger = common.SetupLogger(config)
	common.InstallCrashHandler(config.Logging.Dir)
	common.PrintBanner(common.GetVersion(), quiet)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Str("log_level", config.Logging.Level).
		Bool("headless", config.Browser.Headless).
		Bool("retrieval", config.Retrieval.Enabled).
		Str("ledger", config.Storage.Badger.Path).
		Msg("Configuration loaded")

	return nil
}

// writesToStdout reports whether the command prints its JSON result to stdout
func writesToStdout(cmd *cobra.Command) bool {
	output := cmd.Flags().Lookup("output")
	return output != nil && output.Value.String() == ""
}

func main() {
	defer common.RecoverWithCrashFile()

	if err := rootCmd.Execute(); err != nil {
		log := logger
		if log == nil {
			log = common.GetLogger()
		}
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
