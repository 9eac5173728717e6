package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/yankadevlab/ydl/internal/config"
	"github.com/yankadevlab/ydl/internal/credentials"
	"github.com/yankadevlab/ydl/internal/env"
	"github.com/yankadevlab/ydl/internal/identity"
	"github.com/yankadevlab/ydl/internal/lock"
)

// Confirmer is asked once before anything destructive runs.
type Confirmer interface {
	Confirm(question string) bool
}

// Options configures an Engine.
type Options struct {
	// Artifact is the dump file name. Empty means config.DefaultArtifactName.
	Artifact string
	Guard    *identity.Guard
	Logger   *zap.Logger
	Reporter Reporter
	// Confirmer, when set, must approve the job after validation.
	Confirmer Confirmer
	// LockDir holds the per-environment job locks. Empty disables locking.
	LockDir string
	// StagingDir is the parent of the remote-to-remote staging directory.
	// Empty means os.TempDir().
	StagingDir string
}

// Engine runs migration jobs one at a time.
type Engine struct {
	opts Options
}

// New returns an Engine with opts, filling defaults.
func New(opts Options) *Engine {
	if opts.Artifact == "" {
		opts.Artifact = config.DefaultArtifactName
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Guard == nil {
		opts.Guard = identity.NewGuard("", opts.Logger)
	}
	return &Engine{opts: opts}
}

// Run migrates src's database over dst's. It always returns the job; on
// failure the job is Aborted and the error is a *StepError naming the
// state that could not be entered. Both environments are closed before Run
// returns.
func (e *Engine) Run(ctx context.Context, src, dst env.Environment) (*Job, error) {
	job := newJob(src, dst, e.opts.Artifact)
	r := &run{
		opts:  e.opts,
		job:   job,
		track: &tracker{job: job, reporter: e.opts.Reporter},
		log: e.opts.Logger.With(
			zap.String("job", job.ID),
			zap.String("source", src.Name()),
			zap.String("destination", dst.Name()),
		),
	}

	if err := r.execute(ctx); err != nil {
		r.abort(err)
		return job, job.Err
	}
	return job, nil
}

// run is the mutable state of one Run call.
type run struct {
	opts  Options
	job   *Job
	track *tracker
	log   *zap.Logger

	srcCreds credentials.Credentials
	dstCreds credentials.Credentials

	release  func()
	disposed bool

	srcBroughtUp bool
	dstBroughtUp bool
}

type step struct {
	state State
	fn    func(context.Context) error
}

func (r *run) execute(ctx context.Context) error {
	steps := []step{
		{Validated, r.validate},
		{SourceUp, r.sourceUp},
		{Dumped, r.dump},
		{Transformed, r.transform},
		{Transferred, r.transfer},
		{IdentityBackedUp, r.backupIdentity},
		{Applied, r.apply},
		{IdentityRestored, r.restoreIdentity},
		{CleanedUp, r.cleanup},
		{Completed, r.complete},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return &StepError{State: s.state, Err: err}
		}
		r.track.advance(s.state)
		r.log.Info("migration step", zap.Stringer("state", s.state))
	}
	return nil
}

// Preflight runs the non-destructive checks of the validation step: the
// environments must differ, pass Check and resolve credentials. Callers
// use it before any teardown of their own; Run repeats it.
func Preflight(ctx context.Context, src, dst env.Environment) error {
	_, _, err := preflight(ctx, src, dst)
	return err
}

func preflight(ctx context.Context, src, dst env.Environment) (srcCreds, dstCreds credentials.Credentials, err error) {
	if src.Identity() == dst.Identity() {
		return srcCreds, dstCreds, &ValidationError{Err: fmt.Errorf("%w: %s", ErrSameEnvironment, src.Identity())}
	}
	for _, e := range []env.Environment{src, dst} {
		if err := e.Check(ctx); err != nil {
			return srcCreds, dstCreds, &ValidationError{Env: e.Name(), Err: err}
		}
	}
	if srcCreds, err = src.ResolveCredentials(ctx); err != nil {
		return srcCreds, dstCreds, &ValidationError{Env: src.Name(), Err: err}
	}
	if dstCreds, err = dst.ResolveCredentials(ctx); err != nil {
		return srcCreds, dstCreds, &ValidationError{Env: dst.Name(), Err: err}
	}
	return srcCreds, dstCreds, nil
}

func (r *run) validate(ctx context.Context) error {
	src, dst := r.job.Source, r.job.Destination
	var err error
	if r.srcCreds, r.dstCreds, err = preflight(ctx, src, dst); err != nil {
		return err
	}

	if r.opts.LockDir != "" {
		release, err := lock.Acquire(r.opts.LockDir, src.Identity(), dst.Identity())
		if err != nil {
			return err
		}
		r.release = release
	}

	if r.opts.Confirmer != nil {
		q := fmt.Sprintf("%s.%s -> %s.%s", src.Name(), r.srcCreds.Database, dst.Name(), r.dstCreds.Database)
		if !r.opts.Confirmer.Confirm(q) {
			return ErrDeclined
		}
	}
	return nil
}

// ensureUp brings a down Local environment up and reports whether it did.
func ensureUp(ctx context.Context, e env.Environment) (bool, error) {
	if e.Kind() != env.KindLocal {
		return false, nil
	}
	up, err := e.IsUp(ctx)
	if err != nil {
		return false, err
	}
	if up {
		return false, nil
	}
	if err := e.BringUp(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *run) sourceUp(ctx context.Context) error {
	up, err := ensureUp(ctx, r.job.Source)
	if err != nil {
		return err
	}
	r.srcBroughtUp = up
	return nil
}

func (r *run) dump(ctx context.Context) error {
	src := r.job.Source
	ref, err := src.DumpDatabase(ctx, string(r.job.Artifact))
	if err != nil {
		return err
	}
	r.job.Artifact = ref
	r.job.place(src)

	if r.srcBroughtUp {
		r.bestEffort(Dumped, "bring source down", func() error { return src.BringDown(ctx) })
	}
	return nil
}

func (r *run) transform(ctx context.Context) error {
	src := r.job.Source
	name := string(r.job.Artifact)
	data, err := src.ReadFile(ctx, name)
	if err != nil {
		return fmt.Errorf("reading dump: %w", err)
	}
	out := Transform(data, r.srcCreds.Database, r.dstCreds.Database)
	if err := src.WriteFile(ctx, name, out); err != nil {
		return fmt.Errorf("writing dump: %w", err)
	}
	return nil
}

func (r *run) transfer(ctx context.Context) error {
	src, dst := r.job.Source, r.job.Destination
	name := string(r.job.Artifact)
	srcPath, srcLocal := src.HostPath(name)
	dstPath, dstLocal := dst.HostPath(name)

	switch {
	case srcLocal && dstLocal:
		if err := os.Rename(srcPath, dstPath); err != nil {
			return fmt.Errorf("moving dump: %w", err)
		}
		r.job.unplace(src)
	case srcLocal:
		if err := dst.UploadFile(ctx, srcPath, name); err != nil {
			return fmt.Errorf("uploading dump: %w", err)
		}
	case dstLocal:
		if err := src.DownloadFile(ctx, name, dstPath); err != nil {
			return fmt.Errorf("downloading dump: %w", err)
		}
	default:
		staging, err := os.MkdirTemp(r.opts.StagingDir, "ydl-")
		if err != nil {
			return fmt.Errorf("creating staging dir: %w", err)
		}
		r.job.staging = staging
		local := filepath.Join(staging, name)
		if err := src.DownloadFile(ctx, name, local); err != nil {
			return fmt.Errorf("downloading dump: %w", err)
		}
		if err := dst.UploadFile(ctx, local, name); err != nil {
			return fmt.Errorf("uploading dump: %w", err)
		}
	}
	r.job.place(dst)

	up, err := ensureUp(ctx, dst)
	if err != nil {
		return err
	}
	r.dstBroughtUp = up
	return nil
}

func (r *run) backupIdentity(ctx context.Context) error {
	r.job.Snapshot = r.opts.Guard.Capture(ctx, r.job.Destination, r.dstCreds.Database)
	if r.job.Snapshot == nil {
		r.log.Info("destination identity not captured; restore will be skipped")
	}
	return nil
}

func (r *run) apply(ctx context.Context) error {
	dst := r.job.Destination
	r.bestEffort(Applied, "drop destination database", func() error { return dst.DropDatabase(ctx) })
	return dst.ApplyDump(ctx, r.job.Artifact)
}

func (r *run) restoreIdentity(ctx context.Context) error {
	dst := r.job.Destination
	if err := r.opts.Guard.Restore(ctx, dst, r.dstCreds.Database, r.job.Snapshot); err != nil {
		return err
	}
	if r.dstBroughtUp {
		r.bestEffort(IdentityRestored, "bring destination down", func() error { return dst.BringDown(ctx) })
	}
	return nil
}

func (r *run) cleanup(ctx context.Context) error {
	name := string(r.job.Artifact)
	for _, e := range r.job.Placements() {
		if r.bestEffort(CleanedUp, "delete dump from "+e.Name(), func() error { return e.DeleteFile(ctx, name) }) {
			r.job.unplace(e)
		}
	}
	if staging := r.job.staging; staging != "" {
		if r.bestEffort(CleanedUp, "remove staging dir", func() error { return os.RemoveAll(staging) }) {
			r.job.staging = ""
		}
	}
	return nil
}

func (r *run) complete(context.Context) error {
	r.dispose()
	return nil
}

// bestEffort runs fn and records a failure on the job instead of failing
// the pipeline. It reports whether fn succeeded.
func (r *run) bestEffort(state State, action string, fn func() error) bool {
	err := fn()
	if err == nil {
		return true
	}
	f := BestEffortFailure{State: state, Action: action, Err: err}
	r.job.Warnings = append(r.job.Warnings, f)
	r.log.Warn("best-effort step failed",
		zap.Stringer("state", state), zap.String("action", action), zap.Error(err))
	return false
}

// abort records err and moves the job to Aborted. Only disposal runs; the
// artifact stays where it is.
func (r *run) abort(err error) {
	r.job.Err = err
	r.dispose()
	failed := Initialized
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		failed = stepErr.State
	}
	r.log.Error("migration aborted",
		zap.Stringer("state", failed), zap.Error(err),
		zap.Int("artifact_copies", len(r.job.placements)))
	r.track.advance(Aborted)
}

// dispose closes both environments and releases the job lock, once.
func (r *run) dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	for _, e := range []env.Environment{r.job.Source, r.job.Destination} {
		if err := e.Close(); err != nil {
			r.log.Warn("closing environment", zap.String("env", e.Name()), zap.Error(err))
		}
	}
	if r.release != nil {
		r.release()
		r.release = nil
	}
}
