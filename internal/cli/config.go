package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/smsguard/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage smsguard configuration",
	Long: `Manage smsguard configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (SMSGUARD_*, e.g. SMSGUARD_SCORING_STRONG_WEIGHT)
3. .env file in the working directory
4. Config file (~/.smsguard/config.yaml)
5. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(yamlData))

		// API keys are never printed
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "Reputation API key: %s\n", keyStatus(cfg.Reputation.APIKey))
		fmt.Fprintf(os.Stderr, "LLM API key:        %s\n", keyStatus(cfg.LLM.APIKey))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Long:  `Create ~/.smsguard/config.yaml (or the --config path) containing every option with its default.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := cfgFile
		if configPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("find home directory: %w", err)
			}
			configPath = filepath.Join(home, ".smsguard", "config.yaml")
		}

		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nAPI keys belong in the environment or a .env file:\n")
		fmt.Printf("  GOOGLE_SAFE_BROWSING_API_KEY=...\n")
		fmt.Printf("  OPENAI_API_KEY=...  (only for --explain with llm.provider: openai)\n")
		return nil
	},
}

// writeDefaultConfig refuses to overwrite an existing file
func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s (delete it first to recreate)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	header := "# smsguard configuration\n" +
		"# Environment variables override any key: SMSGUARD_<SECTION>_<KEY>\n" +
		"# API keys are read from the environment only.\n\n"

	if err := os.WriteFile(path, append([]byte(header), yamlData...), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func keyStatus(key string) string {
	switch key {
	case "":
		return "not set"
	case model.PlaceholderAPIKey:
		return "placeholder (lookups disabled)"
	default:
		return "set"
	}
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
