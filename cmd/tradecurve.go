package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"Tradecurve/pkg/app"
	"Tradecurve/utilities"
)

const banner = `
  ______                 __
 /_  __/________ _____  / /__  _______  ________   _____
  / / / ___/ __ ` + "`" + `/ __ \/ / _ \/ ___/ / / / ___/ | / / _ \
 / / / /  / /_/ / /_/ / /  __/ /__/ /_/ / /   | |/ /  __/
/_/ /_/   \__,_/\__,_/_/\___/\___/\__,_/_/    |___/\___/

	Trading performance, reconciled.
[]=========================================================================[]
`

var (
	cfgFile string
	cfg     utilities.AppConfig
	logger  *utilities.Logger
)

// rootCmd represents the base command for the Tradecurve CLI.
var rootCmd = &cobra.Command{
	Use:   "tradecurve",
	Short: "Tradecurve trading-performance dashboard service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config
		viper.SetConfigFile(cfgFile)
		viper.SetConfigType("json")
		viper.AutomaticEnv()
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}

		// Secrets come from the environment (.env in development) so they
		// never have to live in config.json.
		if v := os.Getenv("TRADECURVE_PLATFORM_API_KEY"); v != "" {
			cfg.Platform.APIKey = v
		}
		if v := os.Getenv("TRADECURVE_DISCORD_WEBHOOK_URL"); v != "" {
			cfg.Discord.WebhookURL = v
		}

		// Initialize logger
		level, err := utilities.ParseLogLevel(cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		logger = utilities.NewLogger(level)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(utilities.ColorCyan + banner + utilities.ColorReset)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			logger.LogWarn("Received signal: %v, initiating graceful shutdown.", sig)
			cancel()
		}()

		if err := app.Run(ctx, &cfg, logger); err != nil {
			return err
		}

		logger.LogInfo("Tradecurve shutdown complete at %s", time.Now().Format(time.RFC1123))
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config/config.json", "config file (default is config/config.json)")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
