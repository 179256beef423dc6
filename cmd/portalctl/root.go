package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	portalAuth "github.com/MrEthical07/portalAuth"
)

var (
	configPath string
	envFiles   []string
	logLevel   string
	storeFile  string

	cfg    portalAuth.Config
	logger = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "portalctl",
	Short: "Portal session and access control tool",
	Long: `portalctl signs in to the portal authority, keeps the session on disk
and answers routing and access questions for it. Usage:

	portalctl login --email you@example.com
	portalctl status
	portalctl guard admin /admin/users
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := portalAuth.LoadConfig(configPath, envFiles...)
		if err != nil {
			return err
		}
		// A CLI session only survives between invocations on disk.
		if loaded.Store.Backend == portalAuth.StoreMemory {
			loaded.Store.Backend = portalAuth.StoreFile
			loaded.Store.FilePath = storeFile
		}
		if cmd.Flags().Changed("log-level") {
			loaded.LogLevel = logLevel
		}
		if err := loaded.Validate(); err != nil {
			return err
		}

		level, _ := logrus.ParseLevel(loaded.LogLevel)
		logger.SetLevel(level)
		logger.SetOutput(os.Stderr)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load before reading PORTAL_* variables")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&storeFile, "session-file", defaultSessionFile(), "session file used when the configured store is in memory")
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".portalctl-session.json"
	}
	return filepath.Join(dir, "portalctl", "session.json")
}

// newManager builds a Manager over the loaded configuration and runs the
// startup validation pass.
func newManager(cmd *cobra.Command) (*portalAuth.Manager, error) {
	m, err := portalAuth.New().
		WithConfig(cfg).
		WithLogger(logger).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build session manager: %w", err)
	}
	m.StartupValidate(cmd.Context())
	return m, nil
}
