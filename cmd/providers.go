package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/provider"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Query the provider store",
}

var (
	nearestLat   float64
	nearestLon   float64
	nearestCPT   string
	nearestLimit int
)

var providersNearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "List the providers nearest to a coordinate",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initProviderEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		ranked, err := env.Matcher.Match(ctx, nearestLat, nearestLon, nearestCPT, nearestLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), ranked)
	},
}

var providersCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the providers table has the required columns and located rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initProviderEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		st, err := env.Opener(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		health, err := provider.Check(ctx, st)
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), health); err != nil {
			return err
		}
		if !health.OK() {
			return eris.Errorf("provider store is not usable: %d missing columns, %d located providers",
				len(health.MissingColumns), health.WithCoords)
		}
		zap.L().Info("provider store ok",
			zap.Int("total", health.Total),
			zap.Int("with_coordinates", health.WithCoords))
		return nil
	},
}

// initProviderEnv opens only the provider store; geocoding and maps are not
// needed for store queries.
func initProviderEnv(ctx context.Context) (*resolveEnv, error) {
	if err := cfg.Validate("providers"); err != nil {
		return nil, err
	}
	env := &resolveEnv{}
	opener, err := env.initStoreOpener(ctx)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Opener = opener
	env.Matcher = provider.NewMatcher(opener, provider.WithDefaultLimit(cfg.Providers.Limit))
	return env, nil
}

func init() {
	providersNearestCmd.Flags().Float64Var(&nearestLat, "lat", 0, "latitude")
	providersNearestCmd.Flags().Float64Var(&nearestLon, "lon", 0, "longitude")
	providersNearestCmd.Flags().StringVar(&nearestCPT, "cpt", "", "procedure code for rate lookup")
	providersNearestCmd.Flags().IntVar(&nearestLimit, "limit", 0, "number of providers (default from config)")
	_ = providersNearestCmd.MarkFlagRequired("lat")
	_ = providersNearestCmd.MarkFlagRequired("lon")

	providersCmd.AddCommand(providersNearestCmd, providersCheckCmd)
	rootCmd.AddCommand(providersCmd)
}
