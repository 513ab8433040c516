package main

import (
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize splits and segments once and print the cache status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := bootstrap(cmd.Context(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer rt.Close()

		rt.app.Sync(cmd.Context())
		return printStatus(cmd, rt)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
