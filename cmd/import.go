package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/K-Kirch/Denmark-Ecosystem-Map/internal/model"
)

var importJSONPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import companies from a JSON file into the store",
	Long:  "Reads a JSON array of company records and upserts them by id. Existing registry ids, websites and founding years are kept when the file omits them.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		raw, err := os.ReadFile(importJSONPath)
		if err != nil {
			return eris.Wrapf(err, "read %s", importJSONPath)
		}

		var companies []model.CompanyRecord
		if err := json.Unmarshal(raw, &companies); err != nil {
			return eris.Wrap(err, "parse companies json")
		}
		for i, c := range companies {
			if c.ID == "" || c.Name == "" {
				return eris.Errorf("company at index %d is missing id or name", i)
			}
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		imported, err := env.Store.ImportCompanies(ctx, companies)
		if err != nil {
			return eris.Wrap(err, "import companies")
		}

		zap.L().Info("import complete",
			zap.Int("imported", imported),
			zap.String("file", importJSONPath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importJSONPath, "json", "", "path to JSON file (required)")
	_ = importCmd.MarkFlagRequired("json")
	rootCmd.AddCommand(importCmd)
}
