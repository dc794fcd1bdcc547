package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show verification queue counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		for _, row := range []struct {
			label  string
			filter model.CountFilter
		}{
			{"total", model.CountAll},
			{"verified", model.CountVerified},
			{"pending", model.CountUnverified},
			{"needs review", model.CountNeedsReview},
		} {
			n, err := st.CountCompanies(ctx, row.filter)
			if err != nil {
				return err
			}
			fmt.Printf("%-14s %d\n", row.label, n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
