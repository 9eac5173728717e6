package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yankadevlab/ydl/internal/env"
)

var dbMigrateProdCmd = &cobra.Command{
	Use:   "migrate-prod [project]",
	Short: "Deploy the preprod database to prod",
	Long: `Migrate the database of the remote project <project>-preprod onto the
remote project <project>. [project] defaults to the name of the current
directory.

Examples:
  ydl db migrate-prod
  ydl db migrate-prod acme`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDBMigrateProd,
}

func init() {
	dbCmd.AddCommand(dbMigrateProdCmd)
}

func runDBMigrateProd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := "."
	if len(args) == 1 {
		name = args[0]
	}
	name, err := projectName(name)
	if err != nil {
		return err
	}

	session, err := openSession(ctx)
	if err != nil {
		return err
	}
	prod, err := env.OpenRemote(ctx, session, cfg.Remote.RootPath, name)
	if err != nil {
		_ = session.Close()
		return err
	}
	preprod, err := env.OpenRemote(ctx, session, cfg.Remote.RootPath, env.ResolveAlias(name, "preprod"))
	if err != nil {
		_ = session.Close()
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, banner("production deployment",
		fmt.Sprintf("This will deploy the preprod database of %s to prod.", prod.Name())))

	return runMigration(ctx, preprod, prod, false, out)
}
