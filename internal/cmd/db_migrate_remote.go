package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yankadevlab/ydl/internal/env"
	"github.com/yankadevlab/ydl/internal/migrate"
)

var dbMigrateRemoteCmd = &cobra.Command{
	Use:   "migrate-remote <to>",
	Short: "Migrate the database of the current project to the remote project <to>",
	Long: `Migrate the database of the local project in the current directory onto
a remote project.

<to> is a remote project name, or one of the shorthands:
  preprod   <current project>-preprod
  prod      <current project>

Examples:
  ydl db migrate-remote preprod
  ydl db migrate-remote acme`,
	Args: cobra.ExactArgs(1),
	RunE: runDBMigrateRemote,
}

func init() {
	dbCmd.AddCommand(dbMigrateRemoteCmd)
}

func runDBMigrateRemote(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dk := newDocker()
	src, err := newLocalEnv(".", dk)
	if err != nil {
		return err
	}

	session, err := openSession(ctx)
	if err != nil {
		return err
	}
	dst, err := env.OpenRemote(ctx, session, cfg.Remote.RootPath, env.ResolveAlias(src.Name(), args[0]))
	if err != nil {
		_ = session.Close()
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, banner("database migration to remote",
		fmt.Sprintf("This will migrate the database of %s to %s.", src.Name(), dst.Name())))

	if err := migrate.Preflight(ctx, src, dst); err != nil {
		_ = dst.Close()
		return err
	}
	ok, err := safelyRemoveContainers(ctx, dk, confirmer(false), out)
	if err != nil || !ok {
		_ = dst.Close()
		return err
	}
	return runMigration(ctx, src, dst, false, out)
}
