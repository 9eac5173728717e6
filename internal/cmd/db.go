package cmd

import (
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:     "db",
	GroupID: GroupDB,
	Short:   "Database related commands",
	RunE:    requireSubcommand,
}

func init() {
	rootCmd.AddCommand(dbCmd)
}
