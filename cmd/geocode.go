package main

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var geocodeReverse string

var geocodeCmd = &cobra.Command{
	Use:   "geocode [address]",
	Short: "Geocode an address, or reverse-geocode a coordinate",
	Args: func(cmd *cobra.Command, args []string) error {
		if geocodeReverse == "" && len(args) != 1 {
			return eris.New("geocode: pass one address or --reverse lat,lon")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initResolveEnv(ctx, "resolve")
		if err != nil {
			return err
		}
		defer env.Close()

		if geocodeReverse != "" {
			lat, lon, err := parseLatLon(geocodeReverse)
			if err != nil {
				return err
			}
			rev, err := env.Geocoder.Reverse(ctx, lat, lon)
			if err != nil {
				return err
			}
			if rev == nil {
				return eris.Errorf("geocode: no address found for %s", geocodeReverse)
			}
			return printJSON(cmd.OutOrStdout(), rev)
		}

		res, err := env.Geocoder.Geocode(ctx, args[0])
		if err != nil {
			return err
		}
		if res == nil {
			return eris.Errorf("geocode: no match for %q", args[0])
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

// parseLatLon parses "lat,lon".
func parseLatLon(s string) (float64, float64, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, eris.Errorf("geocode: %q is not lat,lon", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "geocode: parse latitude %q", latStr)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "geocode: parse longitude %q", lonStr)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, eris.Errorf("geocode: %q is out of range", s)
	}
	return lat, lon, nil
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeReverse, "reverse", "", "reverse-geocode this lat,lon")
	rootCmd.AddCommand(geocodeCmd)
}
