package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	batchLimit    int
	batchParallel bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [company-id...]",
	Short: "Verify many companies, with rate-limit protection",
	Long:  "Verifies the given company ids, or the next unverified companies when none are given. Sequential by default; --parallel processes chunks concurrently.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		ids := args
		if len(ids) == 0 {
			companies, err := env.Store.ListUnverifiedCompanies(ctx, batchLimit)
			if err != nil {
				return eris.Wrap(err, "list unverified")
			}
			for _, c := range companies {
				ids = append(ids, c.ID)
			}
		}
		if len(ids) == 0 {
			zap.L().Info("nothing to verify")
			return nil
		}

		summary, err := newBatchController(env, batchParallel).Run(ctx, ids)
		if err != nil {
			return eris.Wrap(err, "run batch")
		}

		zap.L().Info("batch complete",
			zap.Int("total", summary.Total),
			zap.Int("successful", summary.Successful),
			zap.Int("failed", summary.Failed),
			zap.Int("pauses", summary.Pauses),
			zap.Duration("duration", summary.Duration),
		)
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 10, "number of unverified companies to pick when no ids are given")
	batchCmd.Flags().BoolVar(&batchParallel, "parallel", false, "process companies in concurrent chunks")
	rootCmd.AddCommand(batchCmd)
}
