package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <company-id>",
	Short: "Verify a single company against the CVR registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Orch.Verify(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "verify %s", args[0])
		}

		for _, w := range res.Warnings {
			zap.L().Warn("verification warning", zap.String("warning", w))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Outcome)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
