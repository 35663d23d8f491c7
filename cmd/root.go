package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/config"
)

var (
	cfg *config.Config

	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "intake-cli",
	Short: "Resolve workers' comp referral orders to a patient location and nearby providers",
	Long: `intake-cli turns a referral order (scanned forms, e-mail, attachments) into one
merged result: normalized patient and procedure fields, a geocoded patient
address with a static map, and the nearest in-network providers with their
negotiated rate for the requested procedure code.

Configuration is read from config.yaml and INTAKE_* environment variables.`,
	Example: `  intake-cli process --dir orders/
  intake-cli resolve --input ORD-1042.json --format geojson
  intake-cli providers nearest --lat 27.95 --lon -82.46 --cpt 97110`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "intake: load config")
		}
		applyLogOverrides(c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "intake: init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// applyLogOverrides lets --log-level and --log-format win over config.yaml
// and INTAKE_LOG_* for a single run.
func applyLogOverrides(c *config.Config) {
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log.format (json or console)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
