package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yankadevlab/ydl/internal/style"
)

var containersRemoveSilent bool

var containersCmd = &cobra.Command{
	Use:     "containers",
	GroupID: GroupContainers,
	Short:   "Inspect and clear running Docker containers",
	RunE:    requireSubcommand,
}

var containersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List running containers with their stack role",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		running, err := newDocker().Running(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(running) == 0 {
			fmt.Fprintln(out, style.Dim.Render("No running containers"))
			return nil
		}
		fmt.Fprintln(out, containerTable(running).Render())
		return nil
	},
}

var containersRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Stop and remove every running container",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := safelyRemoveContainers(cmd.Context(), newDocker(), confirmer(containersRemoveSilent), cmd.OutOrStdout())
		return err
	},
}

func init() {
	containersRemoveCmd.Flags().BoolVarP(&containersRemoveSilent, "silent", "s", false, "Do not ask for confirmation")
	containersCmd.AddCommand(containersListCmd, containersRemoveCmd)
	rootCmd.AddCommand(containersCmd)
}
