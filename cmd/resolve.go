package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/intake-cli/internal/model"
)

var (
	resolveInput      string
	resolveOrderID    string
	resolveCompletion bool
	resolveFormat     string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a stored extraction to a location, map and ranked providers",
	Long: "Reads extraction JSON (nested patient_info/procedures or flat) or, with --completion, " +
		"a raw language-model completion, and prints the merged result.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := readInput(cmd.InOrStdin(), resolveInput)
		if err != nil {
			return err
		}

		env, err := initResolveEnv(ctx, "resolve")
		if err != nil {
			return err
		}
		defer env.Close()

		orderID := resolveOrderID
		if orderID == "" {
			orderID = orderIDFromPath(resolveInput)
		}

		var result *model.MergedResult
		if resolveCompletion {
			result = env.Resolver.ResolveCompletion(ctx, string(data), orderID)
		} else {
			var raw map[string]any
			if err := json.Unmarshal(data, &raw); err != nil {
				return eris.Wrapf(err, "parse extraction %s", resolveInput)
			}
			result = env.Resolver.ResolveOrder(ctx, raw, orderID)
		}

		return printResult(cmd.OutOrStdout(), result, resolveFormat)
	},
}

// readInput reads path, or stdin when path is "-".
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, eris.Wrap(err, "read stdin")
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return data, nil
}

// orderIDFromPath names an order after its input file: orders/ORD1.json → ORD1.
func orderIDFromPath(path string) string {
	if path == "-" || path == "" {
		return ""
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func init() {
	resolveCmd.Flags().StringVar(&resolveInput, "input", "", "extraction JSON file, or - for stdin")
	resolveCmd.Flags().StringVar(&resolveOrderID, "order", "", "order ID (default: input file name)")
	resolveCmd.Flags().BoolVar(&resolveCompletion, "completion", false, "input is a raw completion, possibly fenced")
	resolveCmd.Flags().StringVar(&resolveFormat, "format", formatJSON, "output format: json or geojson")
	_ = resolveCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(resolveCmd)
}
