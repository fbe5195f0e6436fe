package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/faultline/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Faultline configuration",
	Long: `Manage Faultline configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Provider environment variables (GEMINI_API_KEY, OPENAI_API_KEY, ...)
3. Environment variables (FAULTLINE_*)
4. Config file (~/.faultline/config.yaml)
5. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after applying the config file, environment variables and defaults. API keys are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		applyProviderEnv(cfg, os.Getenv)

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(redacted(cfg))
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, string(yamlData))

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.faultline/config.yaml with all available options.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := cfgFile
		if configPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("error finding home directory: %w", err)
			}
			configPath = filepath.Join(home, ".faultline", "config.yaml")
		}

		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created default configuration: %s\n", configPath)
		fmt.Fprintf(cmd.OutOrStdout(), "\nTo view the configuration:\n")
		fmt.Fprintf(cmd.OutOrStdout(), "  faultline config show\n")
		return nil
	},
}

const configHeader = `# Faultline Configuration File
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Provider environment variables
#   3. Environment variables (FAULTLINE_*, e.g. FAULTLINE_LLM_PROVIDER)
#   4. This config file
#   5. Built-in defaults

`

const configFooter = `
# API Keys (recommended to use environment variables instead):
#   export GEMINI_API_KEY=...
#   export OPENAI_API_KEY=sk-...
#   export ANTHROPIC_API_KEY=sk-ant-...
#   export OLLAMA_BASE_URL=http://localhost:11434
#   export CUSTOM_SEARCH_API_KEY=... GOOGLE_CSE_ID=...
#   export PROXY_BASE_URL=http://localhost:8788/api
`

// writeDefaultConfig writes the documented default config to path,
// refusing to overwrite an existing file
func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s\nUse 'faultline config show' to view it, or delete it first to recreate", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	content := configHeader + string(yamlData) + configFooter
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
