package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igfetch/pkg/config"
	"igfetch/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igfetch configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IGFETCH_*)
  - Configuration file
  - Default values (lowest priority)`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created in the current directory as '.igfetch.yaml' unless a
different path is given with the --config flag.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration the next run would use, merged from all
sources: flags, environment variables, the configuration file, and
defaults.`,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

Checks YAML syntax, value ranges, and that the output directory can be
created.`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# igfetch configuration file
#
# Every option can also be set through environment variables prefixed
# with IGFETCH_, for example IGFETCH_DELAY_MIN or IGFETCH_OUTPUT_DIR.

# Default account to download when none is given on the command line.
target_account: ""

# Randomized pause between consecutive requests, in seconds. Stay slow:
# aggressive cadences get accounts flagged.
delay_min: 10
delay_max: 30

output:
  # Posts are saved under <base_directory>/<username>/
  base_directory: "./downloaded_posts"

retry:
  # Attempts per request, including the first one.
  max_attempts: 3
  # Exponential backoff bounds, in seconds.
  base_delay_seconds: 30
  max_delay_seconds: 300
  multiplier: 2.0

download:
  # Per-request HTTP timeout in seconds.
  timeout_seconds: 30
  # Skip video media, keeping only images.
  skip_videos: false

instagram:
  # Leave empty to use the default browser user agent.
  user_agent: ""

notifications:
  enabled: true
  on_complete: true
  on_rate_limit: true

logging:
  # debug, info, warn, error
  level: "info"
  # Optional log file path; empty logs to the console only.
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".igfetch.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		ui.PrintError("Configuration file already exists", path)
		fmt.Println("\nTo overwrite, remove the existing file first:")
		fmt.Printf("  rm %s\n", path)
		os.Exit(1)
	}

	if err := os.WriteFile(path, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Adjust the options to taste")
	fmt.Println("2. Run 'igfetch config validate' to check the file")
	fmt.Println("3. Log in with 'igfetch auth login' and start downloading")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Effective configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nSources, highest priority first:")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (IGFETCH_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (searched in standard locations)")
	}
	fmt.Println("4. Defaults")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		candidates := []string{
			".igfetch.yaml",
			".igfetch.yml",
			filepath.Join(os.Getenv("HOME"), ".config", "igfetch", "config.yaml"),
			filepath.Join(os.Getenv("HOME"), ".igfetch.yaml"),
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
		if path == "" {
			ui.PrintError("No configuration file found", "specify one with --config")
			os.Exit(1)
		}
	}

	ui.PrintInfo("Validating configuration", path)

	cfg, err := config.Load(path, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	if cfg.Output.BaseDirectory != "" {
		if err := os.MkdirAll(cfg.Output.BaseDirectory, 0755); err != nil {
			ui.PrintError("Cannot create output directory", err.Error())
			os.Exit(1)
		}
	}

	var warnings []string
	if cfg.DelayMin < 5 {
		warnings = append(warnings, "delay_min below 5 seconds risks rate limiting")
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			warnings = append(warnings, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}
	for _, w := range warnings {
		ui.PrintWarning(w)
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nSummary:")
	fmt.Printf("  Output directory: %s\n", cfg.Output.BaseDirectory)
	fmt.Printf("  Delay range: %d-%d seconds\n", cfg.DelayMin, cfg.DelayMax)
	fmt.Printf("  Max attempts: %d\n", cfg.Retry.MaxAttempts)
	fmt.Printf("  Skip videos: %v\n", cfg.Download.SkipVideos)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
