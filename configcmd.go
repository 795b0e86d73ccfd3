package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or reset the circulation policy",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current policy values",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		cfg := a.config.Config()
		fmt.Printf("staff loan days:    %d\n", cfg.StaffLoanDays)
		fmt.Printf("student loan days:  %d\n", cfg.StudentLoanDays)
		fmt.Printf("max items per loan: %d\n", cfg.MaxItemsPerLoan)
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the built-in policy defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		res := a.config.ResetToDefault()
		fmt.Println(res.Message)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configResetCmd)
	rootCmd.AddCommand(configCmd)
}
