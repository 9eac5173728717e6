package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yankadevlab/ydl/internal/migrate"
)

var migrateSilent bool

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate <from> [to]",
	Short: "Migrate the database from the project <from> to the project [to]",
	Long: `Migrate the database of one local docker compose project onto another.

<from> and [to] are project directories; [to] defaults to the current
directory. Running containers are stopped and removed first, after
confirmation. The database name inside the dump is rewritten to the
destination's, and the destination keeps its home and siteurl options.

Examples:
  ydl db migrate ../site-a
  ydl db migrate ../site-a ../site-b -s`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDBMigrate,
}

func init() {
	dbMigrateCmd.Flags().BoolVarP(&migrateSilent, "silent", "s", false, "Do not ask any question")
	dbCmd.AddCommand(dbMigrateCmd)
}

func runDBMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	to := "."
	if len(args) == 2 {
		to = args[1]
	}

	dk := newDocker()
	src, err := newLocalEnv(args[0], dk)
	if err != nil {
		return err
	}
	dst, err := newLocalEnv(to, dk)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, banner("database migration",
		fmt.Sprintf("This will migrate the database from %s to %s.", src.Name(), dst.Name())))

	if err := migrate.Preflight(ctx, src, dst); err != nil {
		return err
	}
	ok, err := safelyRemoveContainers(ctx, dk, confirmer(migrateSilent), out)
	if err != nil || !ok {
		return err
	}
	return runMigration(ctx, src, dst, migrateSilent, out)
}
