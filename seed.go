package main

import (
	"github.com/spf13/cobra"

	"library-circulation/library"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate empty stores with demo data",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := library.SeedDemoData(a.catalog, a.accounts, a.config, a.engine); err != nil {
			return err
		}
		a.logger.Info("seed complete",
			"books", len(a.catalog.Books()),
			"members", len(a.accounts.Members()),
			"loans", len(a.engine.Loans()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
