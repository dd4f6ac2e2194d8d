package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jiwuchat/jiwuchat-shell/internal/config"
	"github.com/jiwuchat/jiwuchat-shell/internal/defaults"
	"github.com/jiwuchat/jiwuchat-shell/internal/logging"
)

// AppVersion is set at build time with -ldflags "-X .../cmd/jiwuchat.AppVersion=v1.2.3".
var AppVersion = "dev"

// Shared CLI flags (used across multiple command files)
var (
	cfgFile     string
	variantFlag string
	verbose     bool
)

// ServerConfig holds the effective configuration (set by main, layered in PersistentPreRunE)
var ServerConfig *config.Config

// baseConfig is the embedded configuration before any file layering, kept for
// live reloads.
var baseConfig config.Config

// SetupRootCmd configures the root command with all subcommands and flags
func SetupRootCmd(c *config.Config) *cobra.Command {
	ServerConfig = c
	baseConfig = *c

	rootCmd := &cobra.Command{
		Use:   "jiwuchat [url...]",
		Short: "JiwuChat - desktop shell",
		Long: `JiwuChat hosts the chat frontend in a native window and owns the jiwuchat://
URL scheme. OAuth redirects arriving on that scheme are delivered to the
frontend as an oauth-callback event.

Run 'jiwuchat' for the desktop window or 'jiwuchat serve' for headless mode.`,
		Version:       AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return prepareConfig()
		},
		Run: func(cmd *cobra.Command, args []string) {
			RunDesktop(args)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file layered over the data directory config")
	rootCmd.PersistentFlags().StringVar(&variantFlag, "variant", "", "shell variant: desktop or mobile")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add commands
	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(DeepLinkCmd())

	return rootCmd
}

// prepareConfig layers the user config files and flags over the embedded
// defaults, validates the result and sets up logging.
func prepareConfig() error {
	c, err := loadLayeredConfig()
	if err != nil {
		return err
	}
	if variantFlag != "" {
		c.DeepLink.Variant = variantFlag
	}
	if verbose {
		c.Log.Level = "debug"
	}
	if err := c.Validate(); err != nil {
		return err
	}
	*ServerConfig = c
	logging.Setup(os.Stderr, c.Log.Format, c.Log.Level)
	return nil
}

// loadLayeredConfig reads embedded defaults, then <data dir>/config.yaml,
// then --config.
func loadLayeredConfig() (config.Config, error) {
	c := baseConfig
	for _, path := range configFiles() {
		if path == cfgFile {
			if err := c.LoadFile(path); err != nil {
				return c, err
			}
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := c.LoadFile(path); err != nil {
			return c, fmt.Errorf("user config: %w", err)
		}
	}
	return c, nil
}

func configFiles() []string {
	var files []string
	if p, err := defaults.Path(defaults.ConfigFile); err == nil {
		files = append(files, p)
	}
	if cfgFile != "" {
		files = append(files, cfgFile)
	}
	return files
}
