package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/intake"
)

var (
	processDir     string
	processOrderID string
	processOut     string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run order folders through OCR, extraction and resolution",
	Long: "Each subdirectory of --dir is one order named by its folder. Orders run one at a time; " +
		"a failed order is logged and the rest continue.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initResolveEnv(ctx, "process")
		if err != nil {
			return err
		}
		defer env.Close()

		pipe, err := initPipeline(env)
		if err != nil {
			return err
		}

		dirs := []string{filepath.Join(processDir, processOrderID)}
		if processOrderID == "" {
			dirs, err = intake.ListOrders(processDir)
			if err != nil {
				return err
			}
		}

		if processOut != "" {
			if err := os.MkdirAll(processOut, 0o755); err != nil {
				return eris.Wrapf(err, "create output dir %s", processOut)
			}
		}

		var failed int
		for _, dir := range dirs {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			result, err := pipe.Process(ctx, dir, "")
			if err != nil {
				failed++
				zap.L().Error("order failed", zap.String("dir", dir), zap.Error(err))
				continue
			}

			if processOut == "" {
				if err := printResult(cmd.OutOrStdout(), result, formatJSON); err != nil {
					return err
				}
				continue
			}
			if err := writeResult(filepath.Join(processOut, result.OrderID+".json"), result); err != nil {
				return err
			}
		}

		zap.L().Info("processing complete",
			zap.Int("orders", len(dirs)),
			zap.Int("failed", failed))
		if failed > 0 {
			return eris.Errorf("%d of %d orders failed", failed, len(dirs))
		}
		return nil
	},
}

func writeResult(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := printJSON(f, v); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "close %s", path)
	}
	return nil
}

func init() {
	processCmd.Flags().StringVar(&processDir, "dir", "orders", "directory of order folders")
	processCmd.Flags().StringVar(&processOrderID, "order", "", "process only this order folder")
	processCmd.Flags().StringVar(&processOut, "out", "", "write <order>.json results here instead of stdout")
	rootCmd.AddCommand(processCmd)
}
