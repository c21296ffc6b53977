package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wayfinder/internal/config"
	"wayfinder/internal/logging"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "0.3.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "wayfinder",
	Short: "Travel route recommendations from a learned preference profile",
	Long: `wayfinder recommends one best route for a trip, combining a free-text
note, the declared trip intent, and a preference profile learned from past
behavior. Run "wayfinder recommend" for a one-shot recommendation or
"wayfinder serve" for the HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file named by --config (or the default search
// path) and applies logging settings.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	logging.SetLevel(logging.ParseLevel(cfg.Log.Level))
	if cfg.Log.MirrorStderr {
		logging.MirrorToStderr()
	}
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the wayfinder version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "wayfinder %s\n", version)
	},
}
