package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/echowall/echowall/internal/config"
	"github.com/echowall/echowall/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// appConfig holds the loaded application configuration
	appConfig *config.Config

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// Config returns the loaded configuration (only valid after initConfig)
func Config() *config.Config {
	return appConfig
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "echowall",
	Short: "Guestbook note service",
	Long: `Echowall is a guestbook-style note service: clients submit short
text messages, the service sanitizes and persists them, and exposes
paginated read access.

Use the subcommands to perform specific operations.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/echowall/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in the config file and ENV variables if set.
func initConfig() {
	// CLI logger first so config loading failures are reported cleanly
	observability.InitCLILogger("echowall", verbose)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		ExitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to load configuration", err)
	}
	appConfig = cfg

	if file := viper.ConfigFileUsed(); file != "" {
		observability.CLILogger.Debug("Loaded config file", zap.String("file", file))
	}
}
