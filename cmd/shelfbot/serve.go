package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/keepmind9/shelfbot/internal/bot"
	"github.com/keepmind9/shelfbot/internal/core"
	"github.com/keepmind9/shelfbot/internal/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the shelfbot process",
		Long:  "Connect to Discord and serve message, reaction and slash command events until interrupted",
		Run: func(cmd *cobra.Command, args []string) {
			if err := godotenv.Load(); err != nil {
				log.Println("No .env file found, using environment variables")
			}

			config, err := core.LoadConfig(configFile)
			if err != nil {
				log.Fatalf("Failed to load config: %v", err)
			}

			if err := logger.InitLogger(config.Logging.LoggerConfig()); err != nil {
				log.Fatalf("Failed to initialize logger: %v", err)
			}
			logger.WithFields(logrus.Fields{
				"config_file": configFile,
				"log_level":   config.Logging.Level,
				"log_file":    config.Logging.File,
				"token":       config.MaskedToken(),
			}).Info("logger-initialized")

			conn := bot.NewDiscordConnection(config.Discord.Token)
			engine, err := core.NewEngine(config, conn, Version)
			if err != nil {
				log.Fatalf("Failed to create engine: %v", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("shelfbot %s starting with config: %s\n", Version, configFile)
			fmt.Println("Press Ctrl+C to stop")
			if err := engine.Run(ctx); err != nil {
				log.Fatalf("Engine error: %v", err)
			}
			log.Println("shelfbot stopped")
		},
	}
)

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml", "Configuration file path")
}
