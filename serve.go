package main

import (
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"library-circulation/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		server := api.NewServer(a.catalog, a.accounts, a.config, a.guard, a.engine, a.logger)
		addr := viper.GetString("addr")
		a.logger.Info("listening", "addr", addr)
		return http.ListenAndServe(addr, server.Router())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
