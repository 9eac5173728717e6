package env

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yankadevlab/ydl/internal/credentials"
	"github.com/yankadevlab/ydl/internal/docker"
	"github.com/yankadevlab/ydl/internal/util"
	"gopkg.in/yaml.v3"
)

// StackFile is the compose file a Local project must carry.
const StackFile = "docker-compose.yml"

// Containers is the container runtime a Local environment drives.
// *docker.Client satisfies it.
type Containers interface {
	Running(ctx context.Context) (docker.Containers, error)
	DatabaseAddress(ctx context.Context, project string) (string, error)
	ComposeUp(ctx context.Context, dir string) error
	ComposeDown(ctx context.Context, dir string) error
	Exec(ctx context.Context, container, script string) (string, error)
	WaitReady(ctx context.Context, project string, probe docker.Probe, policy docker.Backoff) error
}

// LocalOptions tunes bring-up.
type LocalOptions struct {
	Readiness docker.Backoff
	// Probe builds the readiness probe once credentials are known. Nil
	// waits only for the containers and the database address.
	Probe func(credentials.Credentials) docker.Probe
}

// Local is a compose project on this machine. Database commands run inside
// its application container, whose working directory is the bind-mounted
// project root, so dump files appear directly in Root().
type Local struct {
	name    string
	root    string
	project string
	runtime Containers
	opts    LocalOptions
	creds   *credentials.Credentials
}

// NewLocal returns the Local environment rooted at path.
func NewLocal(path string, runtime Containers, opts LocalOptions) (*Local, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	return &Local{
		name:    filepath.Base(root),
		root:    root,
		project: util.ComposeProjectName(root),
		runtime: runtime,
		opts:    opts,
	}, nil
}

func (l *Local) Name() string     { return l.name }
func (l *Local) Root() string     { return l.root }
func (l *Local) Identity() string { return "local:" + l.root }
func (l *Local) Kind() Kind       { return KindLocal }

// Project returns the compose project name.
func (l *Local) Project() string { return l.project }

// stackFile is the part of the compose file Check looks at.
type stackFile struct {
	Services map[string]yaml.Node `yaml:"services"`
}

// Check requires the project directory and a compose file declaring at
// least one service.
func (l *Local) Check(_ context.Context) error {
	info, err := os.Stat(l.root)
	if err != nil {
		return fmt.Errorf("project %s: %w", l.name, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("project %s: %s is not a directory", l.name, l.root)
	}
	data, err := os.ReadFile(filepath.Join(l.root, StackFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("project %s has no %s", l.name, StackFile)
		}
		return fmt.Errorf("reading %s: %w", StackFile, err)
	}
	var sf stackFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("parsing %s of %s: %w", StackFile, l.name, err)
	}
	if len(sf.Services) == 0 {
		return fmt.Errorf("%s of %s declares no services", StackFile, l.name)
	}
	return nil
}

// IsUp reports whether both the application and the database container of
// the project are running.
func (l *Local) IsUp(ctx context.Context) (bool, error) {
	running, err := l.runtime.Running(ctx)
	if err != nil {
		return false, l.wrap(err, "")
	}
	scoped := running.ForProject(l.project)
	_, app := scoped.Application()
	_, db := scoped.Database()
	return app && db, nil
}

// BringUp starts the stack and waits until its database answers.
func (l *Local) BringUp(ctx context.Context) error {
	if err := l.runtime.ComposeUp(ctx, l.root); err != nil {
		return l.wrap(err, "docker compose up -d")
	}
	var probe docker.Probe
	if l.opts.Probe != nil && l.creds != nil {
		probe = l.opts.Probe(*l.creds)
	}
	if err := l.runtime.WaitReady(ctx, l.project, probe, l.opts.Readiness); err != nil {
		return l.wrap(err, "")
	}
	return nil
}

// BringDown stops and removes the stack.
func (l *Local) BringDown(ctx context.Context) error {
	if err := l.runtime.ComposeDown(ctx, l.root); err != nil {
		return l.wrap(err, "docker compose down")
	}
	return nil
}

// ResolveCredentials reads the compose file once per environment.
func (l *Local) ResolveCredentials(_ context.Context) (credentials.Credentials, error) {
	if l.creds != nil {
		return *l.creds, nil
	}
	path := filepath.Join(l.root, StackFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return credentials.Credentials{}, fmt.Errorf("reading %s: %w", path, err)
	}
	c, err := credentials.FromCompose(path, string(data))
	if err != nil {
		return credentials.Credentials{}, err
	}
	l.creds = &c
	return c, nil
}

// commands binds the credentials to the database container's current
// address and returns them with the application container name.
func (l *Local) commands(ctx context.Context) (dbCommands, string, error) {
	if l.creds == nil {
		return dbCommands{}, "", ErrCapabilityUnavailable
	}
	running, err := l.runtime.Running(ctx)
	if err != nil {
		return dbCommands{}, "", l.wrap(err, "")
	}
	app, ok := running.ForProject(l.project).Application()
	if !ok {
		return dbCommands{}, "", &ConnectionError{Env: l.name, Err: fmt.Errorf("%w: application (%s)", docker.ErrContainerNotFound, docker.ApplicationInfix)}
	}
	addr, err := l.runtime.DatabaseAddress(ctx, l.project)
	if err != nil {
		return dbCommands{}, "", l.wrap(err, "")
	}
	return dbCommands{creds: l.creds.WithHost(addr)}, app.Name, nil
}

func (l *Local) run(ctx context.Context, build func(dbCommands) string) (string, error) {
	cmds, app, err := l.commands(ctx)
	if err != nil {
		return "", err
	}
	script := build(cmds)
	out, err := l.runtime.Exec(ctx, app, script)
	if err != nil {
		return "", l.wrap(err, cmds.redact(script))
	}
	return out, nil
}

func (l *Local) DumpDatabase(ctx context.Context, name string) (ArtifactRef, error) {
	if err := checkFileName(name); err != nil {
		return "", err
	}
	if _, err := l.run(ctx, func(d dbCommands) string { return d.dump(name) }); err != nil {
		return "", err
	}
	return ArtifactRef(name), nil
}

func (l *Local) DropDatabase(ctx context.Context) error {
	_, err := l.run(ctx, dbCommands.drop)
	return err
}

func (l *Local) ApplyDump(ctx context.Context, ref ArtifactRef) error {
	if err := checkFileName(string(ref)); err != nil {
		return err
	}
	_, err := l.run(ctx, func(d dbCommands) string { return d.apply(string(ref)) })
	return err
}

func (l *Local) Query(ctx context.Context, sql string) ([]string, error) {
	out, err := l.run(ctx, func(d dbCommands) string { return d.query(sql) })
	if err != nil {
		return nil, err
	}
	return parseRows(out), nil
}

func (l *Local) Exec(ctx context.Context, sql string) error {
	_, err := l.run(ctx, func(d dbCommands) string { return d.statement(sql) })
	return err
}

func (l *Local) path(name string) (string, error) {
	if err := checkFileName(name); err != nil {
		return "", err
	}
	return filepath.Join(l.root, name), nil
}

// HostPath always succeeds for a valid name.
func (l *Local) HostPath(name string) (string, bool) {
	p, err := l.path(name)
	return p, err == nil
}

// UploadFile copies a host file into the project root.
func (l *Local) UploadFile(_ context.Context, localPath, name string) error {
	dst, err := l.path(name)
	if err != nil {
		return err
	}
	return copyFile(localPath, dst)
}

// DownloadFile copies a project file out to localPath.
func (l *Local) DownloadFile(_ context.Context, name, localPath string) error {
	src, err := l.path(name)
	if err != nil {
		return err
	}
	return copyFile(src, localPath)
}

func (l *Local) ReadFile(_ context.Context, name string) ([]byte, error) {
	p, err := l.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func (l *Local) WriteFile(_ context.Context, name string, data []byte) error {
	p, err := l.path(name)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (l *Local) DeleteFile(_ context.Context, name string) error {
	p, err := l.path(name)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

// Close is a no-op; a Local environment holds no session.
func (l *Local) Close() error { return nil }

// wrap maps runtime errors onto the env taxonomy. command is the redacted
// script for command failures, or a description of the lifecycle call.
func (l *Local) wrap(err error, command string) error {
	var cmdErr *docker.CommandError
	switch {
	case errors.As(err, &cmdErr):
		return &CommandError{Env: l.name, Command: command, Output: cmdErr.Stderr, Err: err}
	case errors.Is(err, docker.ErrNoDaemon),
		errors.Is(err, docker.ErrContainerNotFound),
		errors.Is(err, docker.ErrNoSuchContainer),
		errors.Is(err, docker.ErrNotReady):
		return &ConnectionError{Env: l.name, Err: err}
	default:
		if command != "" {
			return &CommandError{Env: l.name, Command: command, Err: err}
		}
		return &ConnectionError{Env: l.name, Err: err}
	}
}

// copyFile copies src to dst, replacing dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s to %s: %w", src, dst, err)
	}
	return out.Close()
}
