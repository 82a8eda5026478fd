package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/keepmind9/shelfbot/internal/core"
	"github.com/spf13/cobra"
)

var (
	validateConfigFile string
	validateJSON       bool
)

// ValidationResult represents the validation result
type ValidationResult struct {
	Valid     bool     `json:"valid"`
	Config    string   `json:"config"`
	Token     string   `json:"token,omitempty"`
	RateLimit string   `json:"rate_limit,omitempty"`
	Storage   string   `json:"storage,omitempty"`
	Health    string   `json:"health,omitempty"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate shelfbot configuration file",
	Long: `Validate the shelfbot configuration file without connecting to Discord.

This command checks:
  - YAML syntax
  - Environment variable references
  - Required fields
  - Durations and limits
  - Storage and rate-limit backend settings

Exit codes:
  0 - Configuration is valid
  1 - Configuration has errors`,
	Run: func(cmd *cobra.Command, args []string) {
		configFile := validateConfigFile
		if configFile == "" {
			configFile = findConfig()
		}
		if configFile == "" {
			fmt.Println("❌ No configuration file found")
			fmt.Println("\nSpecify a config file with --config or ensure one exists at:")
			for _, loc := range defaultConfigLocations() {
				fmt.Printf("  - %s\n", loc)
			}
			os.Exit(1)
		}

		result := validateFile(configFile)
		outputValidationResult(cmd.OutOrStdout(), result, validateJSON)
		if !result.Valid {
			os.Exit(1)
		}
	},
}

func defaultConfigLocations() []string {
	return []string{
		"config.yaml",
		filepath.Join(os.Getenv("HOME"), ".config/shelfbot/config.yaml"),
		"/etc/shelfbot/config.yaml",
	}
}

func findConfig() string {
	for _, loc := range defaultConfigLocations() {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

func validateFile(configFile string) ValidationResult {
	cfg, err := core.LoadConfig(configFile)
	if err != nil {
		return ValidationResult{
			Valid:  false,
			Config: configFile,
			Errors: []string{err.Error()},
		}
	}

	result := ValidationResult{
		Valid:     true,
		Config:    configFile,
		Token:     cfg.MaskedToken(),
		RateLimit: fmt.Sprintf("%s (user %d, server %d per %s)", cfg.RateLimit.Backend, cfg.RateLimit.UserLimit, cfg.RateLimit.GroupLimit, cfg.RateLimit.Window),
		Storage:   cfg.Storage.Driver,
		Health:    "disabled",
		Warnings:  validateConfigDetails(cfg),
	}
	if cfg.Health.Enabled {
		result.Health = cfg.Health.Addr
	}
	return result
}

func outputValidationResult(w io.Writer, result ValidationResult, jsonFormat bool) {
	if jsonFormat {
		output, err := json.Marshal(result)
		if err != nil {
			fmt.Fprintf(w, "{\"error\": \"failed to marshal json: %v\"}\n", err)
			return
		}
		fmt.Fprintln(w, string(output))
		return
	}

	if result.Valid {
		fmt.Fprintln(w, "✓ Configuration is valid")
		fmt.Fprintf(w, "  - Config: %s\n", result.Config)
		fmt.Fprintf(w, "  - Token: %s\n", result.Token)
		fmt.Fprintf(w, "  - Rate limit: %s\n", result.RateLimit)
		fmt.Fprintf(w, "  - Storage: %s\n", result.Storage)
		fmt.Fprintf(w, "  - Health: %s\n", result.Health)
	} else {
		fmt.Fprintln(w, "❌ Configuration validation failed:")
		if len(result.Errors) > 0 {
			fmt.Fprintln(w, "\nErrors:")
			for _, errMsg := range result.Errors {
				fmt.Fprintf(w, "  - %s\n", errMsg)
			}
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(w, "\n⚠️  Warnings:")
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
	}
}

func validateConfigDetails(cfg *core.Config) []string {
	var warnings []string

	if cfg.Discord.ErrorChannelID == "" {
		warnings = append(warnings, "discord.error_channel_id is not set - handler faults are only logged")
	}
	if cfg.RateLimit.UserLimit < 0 && cfg.RateLimit.GroupLimit < 0 {
		warnings = append(warnings, "Both command budgets are disabled - commands are never rate limited")
	}
	if !cfg.Health.Enabled {
		warnings = append(warnings, "Health server is disabled - 'shelfbot status' will not work")
	}

	return warnings
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfigFile, "config", "c", "", "Configuration file path")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output in JSON format")
}
