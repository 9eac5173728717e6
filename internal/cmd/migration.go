package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/yankadevlab/ydl/internal/docker"
	"github.com/yankadevlab/ydl/internal/env"
	"github.com/yankadevlab/ydl/internal/identity"
	"github.com/yankadevlab/ydl/internal/lock"
	"github.com/yankadevlab/ydl/internal/migrate"
	"github.com/yankadevlab/ydl/internal/prompt"
	"github.com/yankadevlab/ydl/internal/style"
)

// Seam for tests.
var newConfirmer = func() prompt.Confirmer { return prompt.NewTerminal() }

func confirmer(silent bool) prompt.Confirmer {
	if silent {
		return prompt.Always(true)
	}
	return newConfirmer()
}

func banner(title string, lines ...string) string {
	return style.Banner("Yanka Dev Lab - "+title, lines...)
}

// questionConfirmer phrases the engine's summary as a question.
type questionConfirmer struct {
	prompt.Confirmer
}

func (q questionConfirmer) Confirm(summary string) bool {
	return q.Confirmer.Confirm(fmt.Sprintf("Migrate %s?", summary))
}

// runMigration runs one job and prints its outcome. A declined
// confirmation is not an error.
func runMigration(ctx context.Context, src, dst env.Environment, silent bool, out io.Writer) error {
	lockDir, err := lock.DefaultDir()
	if err != nil {
		style.PrintWarning("job locking disabled: %v", err)
		lockDir = ""
	}

	opts := migrate.Options{
		Artifact: cfg.Migration.Artifact,
		Guard:    identity.NewGuard(cfg.Identity.OptionsTable, logger),
		Logger:   logger,
		Reporter: newProgressPrinter(out),
		LockDir:  lockDir,
	}
	if !silent {
		opts.Confirmer = questionConfirmer{newConfirmer()}
	}

	fmt.Fprintln(out, style.Warning.Render("Checking pre-requisites..."))
	job, err := migrate.New(opts).Run(ctx, src, dst)
	for _, w := range job.Warnings {
		style.PrintWarning("%v", w)
	}
	if errors.Is(err, migrate.ErrDeclined) {
		fmt.Fprintf(out, "%s Canceled\n", style.Dim.Render("ℹ"))
		return nil
	}
	if err != nil {
		if n := len(job.Placements()); n > 0 {
			fmt.Fprintf(out, "%s %s left in %d place(s) for inspection\n",
				style.Dim.Render("ℹ"), job.Artifact, n)
		}
		return fmt.Errorf("migration %s aborted: %w", job.ID, err)
	}
	fmt.Fprintf(out, "\n%s %s\n", style.SuccessPrefix, style.Success.Render("Migration completed!"))
	return nil
}

var stepLabels = map[migrate.State]string{
	migrate.Validated:        "Pre-requisites checked",
	migrate.SourceUp:         "Source ready",
	migrate.Dumped:           "Database dumped",
	migrate.Transformed:      "Dump renamed",
	migrate.Transferred:      "Dump transferred",
	migrate.IdentityBackedUp: "Site URLs backed up",
	migrate.Applied:          "Dump applied",
	migrate.IdentityRestored: "Site URLs restored",
	migrate.CleanedUp:        "Temporary files removed",
	migrate.Completed:        "Sessions closed",
}

// progressPrinter renders one line per pipeline transition.
type progressPrinter struct {
	out io.Writer
	bar *style.ProgressBar
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, bar: style.NewProgressBar(30)}
}

func (p *progressPrinter) Report(pr migrate.Progress) {
	if pr.State == migrate.Aborted {
		fmt.Fprintf(p.out, "%s %-24s %s\n", style.ErrorPrefix, "Aborted", p.bar.Render(pr.Step, pr.Total))
		return
	}
	fmt.Fprintf(p.out, "%s %-24s %s\n", style.ArrowPrefix, stepLabels[pr.State], p.bar.Render(pr.Step, pr.Total))
}

// safelyRemoveContainers asks before stopping and removing every running
// container, so stacks of other projects cannot hold the ports. It reports
// false when the operator declined.
func safelyRemoveContainers(ctx context.Context, dk *docker.Client, c prompt.Confirmer, out io.Writer) (bool, error) {
	fmt.Fprintln(out, "Checking running Docker containers...")
	running, err := dk.Running(ctx)
	if err != nil {
		return false, err
	}
	if len(running) == 0 {
		return true, nil
	}

	fmt.Fprintln(out, containerTable(running).Render())
	if !c.Confirm(fmt.Sprintf("Stop and remove these %d container(s)?", len(running))) {
		fmt.Fprintln(out, "Ensure those containers are not running or that they can be safely removed, and then run the command again.")
		return false, nil
	}
	if err := dk.Stop(ctx, running); err != nil {
		return false, fmt.Errorf("stopping containers: %w", err)
	}
	if err := dk.ForceRemove(ctx, running); err != nil {
		return false, fmt.Errorf("removing containers: %w", err)
	}
	fmt.Fprintf(out, "%s Removed %d container(s)\n", style.SuccessPrefix, len(running))
	return true, nil
}

func containerTable(cs docker.Containers) *style.Table {
	t := style.NewTable(
		style.Column{Name: "NAME", Width: 32},
		style.Column{Name: "ROLE", Width: 12},
		style.Column{Name: "PROJECT", Width: 20},
		style.Column{Name: "IMAGE", Width: 24},
	)
	for _, c := range cs {
		t.AddRow(c.Name, c.Role().String(), c.Project(), c.Image)
	}
	return t
}
