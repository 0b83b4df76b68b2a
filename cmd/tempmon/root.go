package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/NathanielJS1541/TemperatureMonitor/pkg/config"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "tempmon",
		Short: "Temperature/humidity monitor reporting to a Graphite server",
		Long: "tempmon samples a temperature/humidity sensor, smooths the readings " +
			"with a moving average, and reports them to a Graphite server, queueing " +
			"readings in memory while the network or server is unavailable.",
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "tempmon.yaml", "path to the configuration file")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(initConfigCmd)
}

// loadConfig loads .env overrides (when present) and the YAML config.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded environment overrides from .env")
	}
	return config.Load(configPath)
}

// initConfigCmd writes a default configuration file to edit by hand.
var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Default().Save(configPath); err != nil {
			return err
		}
		log.Printf("wrote default configuration to %s", configPath)
		return nil
	},
}
