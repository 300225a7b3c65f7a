package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/keepmind9/slashkit/internal/core"
	"github.com/keepmind9/slashkit/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the slashkit bot",
		Long:  "Connect to Discord, register the command modules and serve interactions until interrupted",
		Run: func(cmd *cobra.Command, args []string) {
			// Load configuration
			config, err := core.LoadConfig(configFile)
			if err != nil {
				log.Fatalf("Failed to load config: %v", err)
			}

			// Initialize logger
			if err := logger.InitLogger(config.LoggerConfig()); err != nil {
				log.Fatalf("Failed to initialize logger: %v", err)
			}

			logger.WithFields(logrus.Fields{
				"config_file": configFile,
				"log_level":   config.Logging.Level,
				"log_file":    config.Logging.File,
				"guilds":      len(config.Discord.GuildIDs),
			}).Info("logger-initialized")

			// Create engine
			engine, err := core.NewEngine(config, demoModules()...)
			if err != nil {
				log.Fatalf("Failed to create engine: %v", err)
			}

			// Setup signal handling for graceful shutdown
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			// Start engine in a goroutine
			engineErrChan := make(chan error, 1)
			go func() {
				fmt.Println("slashkit engine starting...")
				fmt.Println("Press Ctrl+C to stop")
				engineErrChan <- engine.Run(context.Background())
			}()

			// Wait for signal or engine error
			select {
			case sig := <-sigChan:
				logger.WithField("signal", sig.String()).Info("shutdown-signal-received")
			case err := <-engineErrChan:
				if err != nil {
					logger.WithError(err).Error("engine-failed")
				}
			}

			if err := engine.Stop(); err != nil {
				logger.WithError(err).Error("engine-shutdown-failed")
				os.Exit(1)
			}
			fmt.Println("slashkit stopped")
		},
	}
)

func init() {
	startCmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml", "Configuration file path")
}
