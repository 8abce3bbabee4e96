package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	// Version is the current version of Opsflow
	Version = "1.0.0"

	// DefaultEngineURL is used when neither the config file nor the
	// --engine flag names a remediation engine endpoint.
	DefaultEngineURL = "http://localhost:8080"
)

// Config holds the global configuration for the Opsflow CLI
type Config struct {
	ConfigDir      string
	EngineURL      string
	TimeoutSeconds int
	CanvasZoom     float64
	Debug          bool
}

// GlobalConfig is the shared configuration instance
var GlobalConfig = &Config{}

// fileConfig mirrors the persisted config.yaml layout.
type fileConfig struct {
	Version        string  `yaml:"version"`
	EngineURL      string  `yaml:"engine_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	CanvasZoom     float64 `yaml:"canvas_zoom"`
}

// NewRootCommand creates the root cobra command for Opsflow
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opsflow",
		Short: "Opsflow - Terminal editor for remediation workflows",
		Long: `Opsflow is a terminal-based graph editor for alert remediation workflows.
It renders a workflow's nodes and edges as a navigable canvas, edits node
configuration against typed schemas, and triggers executions on a remediation
engine over its HTTP API with live per-node results.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize configuration
			if err := initConfig(); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			// Setup logging
			if GlobalConfig.Debug {
				log.SetOutput(os.Stderr)
				log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
			} else {
				log.SetOutput(io.Discard)
			}

			return nil
		},
	}

	// Persistent flags (available to all subcommands)
	cmd.PersistentFlags().BoolVar(&GlobalConfig.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&GlobalConfig.ConfigDir, "config-dir", "", "Configuration directory (default: ~/.opsflow)")
	cmd.PersistentFlags().StringVar(&GlobalConfig.EngineURL, "engine", "", "Remediation engine base URL (default: from config.yaml)")

	// Add subcommands
	cmd.AddCommand(NewEditCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewCredentialCommand())
	cmd.AddCommand(NewExportsCommand())
	cmd.AddCommand(NewSimCommand())

	return cmd
}

// initConfig initializes the Opsflow configuration directory and files
func initConfig() error {
	// Determine config directory
	// Environment variable always takes priority (for testing)
	if envDir := os.Getenv("OPSFLOW_CONFIG_DIR"); envDir != "" {
		GlobalConfig.ConfigDir = envDir
	} else if GlobalConfig.ConfigDir == "" {
		// Use default ~/.opsflow
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}
		GlobalConfig.ConfigDir = filepath.Join(homeDir, ".opsflow")
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(GlobalConfig.ConfigDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create subdirectories
	dirs := []string{"exports"}
	for _, dir := range dirs {
		dirPath := filepath.Join(GlobalConfig.ConfigDir, dir)
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Load or create config file
	configFile := filepath.Join(GlobalConfig.ConfigDir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		// Create default config
		defaultConfig := fileConfig{
			Version:        "1.0",
			EngineURL:      DefaultEngineURL,
			TimeoutSeconds: 30,
			CanvasZoom:     1.0,
		}
		data, err := yaml.Marshal(defaultConfig)
		if err != nil {
			return fmt.Errorf("failed to marshal default config: %w", err)
		}
		if err := os.WriteFile(configFile, data, 0644); err != nil {
			return fmt.Errorf("failed to write default config: %w", err)
		}
	}

	// Read the file back. Tuning values only live here; the engine URL
	// can still be overridden below.
	var cfg fileConfig
	if data, err := os.ReadFile(configFile); err == nil {
		_ = yaml.Unmarshal(data, &cfg)
	}
	GlobalConfig.TimeoutSeconds = cfg.TimeoutSeconds
	GlobalConfig.CanvasZoom = cfg.CanvasZoom

	// Resolve the engine URL
	// Environment variable always takes priority (for testing)
	if envURL := os.Getenv("OPSFLOW_ENGINE_URL"); envURL != "" {
		GlobalConfig.EngineURL = envURL
	} else if GlobalConfig.EngineURL == "" && cfg.EngineURL != "" {
		GlobalConfig.EngineURL = cfg.EngineURL
	}
	if GlobalConfig.EngineURL == "" {
		GlobalConfig.EngineURL = DefaultEngineURL
	}

	return nil
}

// GetConfigDir returns the configuration directory path
// Priority order: 1) OPSFLOW_CONFIG_DIR env var (for testing), 2) GlobalConfig.ConfigDir, 3) ~/.opsflow
func GetConfigDir() string {
	// Check environment variable first (for testing)
	if envDir := os.Getenv("OPSFLOW_CONFIG_DIR"); envDir != "" {
		return envDir
	}
	if GlobalConfig.ConfigDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// Fallback to current directory if home dir cannot be determined
			return ".opsflow"
		}
		return filepath.Join(homeDir, ".opsflow")
	}
	return GlobalConfig.ConfigDir
}

// GetExportsDir returns the directory workflow exports are written to
func GetExportsDir() string {
	return filepath.Join(GetConfigDir(), "exports")
}

// GetEngineURL returns the resolved remediation engine base URL
func GetEngineURL() string {
	if envURL := os.Getenv("OPSFLOW_ENGINE_URL"); envURL != "" {
		return envURL
	}
	if GlobalConfig.EngineURL == "" {
		return DefaultEngineURL
	}
	return GlobalConfig.EngineURL
}

// GetEngineTimeout returns the configured engine request timeout. Zero
// means unset; the engine client applies its own default then.
func GetEngineTimeout() time.Duration {
	if GlobalConfig.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(GlobalConfig.TimeoutSeconds) * time.Second
}

// GetCanvasZoom returns the configured startup zoom level, or zero when
// config.yaml does not set one.
func GetCanvasZoom() float64 {
	return GlobalConfig.CanvasZoom
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}
