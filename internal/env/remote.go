package env

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/yankadevlab/ydl/internal/credentials"
	"github.com/yankadevlab/ydl/internal/remote"
	"github.com/yankadevlab/ydl/internal/util"
)

// WPConfigFile is the file a Remote project reads its credentials from.
const WPConfigFile = "wp-config.php"

// Session is the connection a Remote environment rides on.
// *remote.Client satisfies it.
type Session interface {
	Addr() string
	Exec(ctx context.Context, command string) (string, error)
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte) error
	GetFile(ctx context.Context, remotePath, localPath string) error
	PutFile(ctx context.Context, localPath, remotePath string) error
	Remove(ctx context.Context, path string) error
	Close() error
}

// Remote is a project directory on an SSH host. It owns its session and
// closes it on Close.
type Remote struct {
	name     string
	fullName string
	root     string
	session  Session
	creds    *credentials.Credentials
}

// OpenRemote locates the project called name under rootPath. The project
// directory is the first entry matching "<name>." case-insensitively, so a
// short name finds its domain-named folder.
func OpenRemote(ctx context.Context, session Session, rootPath, name string) (*Remote, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty project name", ErrProjectNotFound)
	}
	lookup := fmt.Sprintf("ls %s | grep -i %s", util.ShellQuote(rootPath), util.ShellQuote("^"+name+"[.]"))
	out, err := session.Exec(ctx, lookup)
	if err != nil {
		var exitErr *remote.ExitError
		if errors.As(err, &exitErr) && exitErr.Code == 1 {
			return nil, fmt.Errorf("%w: %s under %s on %s", ErrProjectNotFound, name, rootPath, session.Addr())
		}
		return nil, &ConnectionError{Env: name, Err: err}
	}
	rows := parseRows(out)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s under %s on %s", ErrProjectNotFound, name, rootPath, session.Addr())
	}
	return &Remote{
		name:     name,
		fullName: rows[0],
		root:     path.Join(rootPath, rows[0]),
		session:  session,
	}, nil
}

// ResolveAlias maps the preprod and prod shorthands onto the project names
// derived from the local project name. Other targets pass through.
func ResolveAlias(localName, target string) string {
	switch strings.ToLower(target) {
	case "preprod":
		return localName + "-preprod"
	case "prod":
		return localName
	default:
		return target
	}
}

func (r *Remote) Name() string { return r.name }
func (r *Remote) Root() string { return r.root }
func (r *Remote) Kind() Kind   { return KindRemote }

// FullName is the project directory name, such as the site's domain.
func (r *Remote) FullName() string { return r.fullName }

func (r *Remote) Identity() string {
	return "remote:" + r.session.Addr() + ":" + r.root
}

// Check verifies the project directory is still there.
func (r *Remote) Check(ctx context.Context) error {
	if _, err := r.session.Exec(ctx, "test -d "+util.ShellQuote(r.root)); err != nil {
		return r.wrap(err, "test -d "+r.root)
	}
	return nil
}

// IsUp is always true: a remote site is managed by its host.
func (r *Remote) IsUp(context.Context) (bool, error) { return true, nil }

// BringUp is a no-op.
func (r *Remote) BringUp(context.Context) error { return nil }

// BringDown is a no-op.
func (r *Remote) BringDown(context.Context) error { return nil }

// ResolveCredentials reads wp-config.php once per environment.
func (r *Remote) ResolveCredentials(ctx context.Context) (credentials.Credentials, error) {
	if r.creds != nil {
		return *r.creds, nil
	}
	p := path.Join(r.root, WPConfigFile)
	data, err := r.session.ReadFile(ctx, p)
	if err != nil {
		return credentials.Credentials{}, &ConnectionError{Env: r.name, Err: fmt.Errorf("reading %s: %w", p, err)}
	}
	c, err := credentials.FromWPConfig(p, string(data))
	if err != nil {
		return credentials.Credentials{}, err
	}
	r.creds = &c
	return c, nil
}

func (r *Remote) run(ctx context.Context, build func(dbCommands) string) (string, error) {
	if r.creds == nil {
		return "", ErrCapabilityUnavailable
	}
	cmds := dbCommands{creds: *r.creds}
	script := build(cmds)
	out, err := r.session.Exec(ctx, "cd "+util.ShellQuote(r.root)+" && "+script)
	if err != nil {
		return "", r.wrap(err, cmds.redact(script))
	}
	return out, nil
}

func (r *Remote) DumpDatabase(ctx context.Context, name string) (ArtifactRef, error) {
	if err := checkFileName(name); err != nil {
		return "", err
	}
	if _, err := r.run(ctx, func(d dbCommands) string { return d.dump(name) }); err != nil {
		return "", err
	}
	return ArtifactRef(name), nil
}

func (r *Remote) DropDatabase(ctx context.Context) error {
	_, err := r.run(ctx, dbCommands.drop)
	return err
}

func (r *Remote) ApplyDump(ctx context.Context, ref ArtifactRef) error {
	if err := checkFileName(string(ref)); err != nil {
		return err
	}
	_, err := r.run(ctx, func(d dbCommands) string { return d.apply(string(ref)) })
	return err
}

func (r *Remote) Query(ctx context.Context, sql string) ([]string, error) {
	out, err := r.run(ctx, func(d dbCommands) string { return d.query(sql) })
	if err != nil {
		return nil, err
	}
	return parseRows(out), nil
}

func (r *Remote) Exec(ctx context.Context, sql string) error {
	_, err := r.run(ctx, func(d dbCommands) string { return d.statement(sql) })
	return err
}

func (r *Remote) path(name string) (string, error) {
	if err := checkFileName(name); err != nil {
		return "", err
	}
	return path.Join(r.root, name), nil
}

// HostPath reports false: the file space lives on the remote host.
func (r *Remote) HostPath(string) (string, bool) { return "", false }

func (r *Remote) UploadFile(ctx context.Context, localPath, name string) error {
	p, err := r.path(name)
	if err != nil {
		return err
	}
	if err := r.session.PutFile(ctx, localPath, p); err != nil {
		return &ConnectionError{Env: r.name, Err: err}
	}
	return nil
}

func (r *Remote) DownloadFile(ctx context.Context, name, localPath string) error {
	p, err := r.path(name)
	if err != nil {
		return err
	}
	if err := r.session.GetFile(ctx, p, localPath); err != nil {
		return &ConnectionError{Env: r.name, Err: err}
	}
	return nil
}

func (r *Remote) ReadFile(ctx context.Context, name string) ([]byte, error) {
	p, err := r.path(name)
	if err != nil {
		return nil, err
	}
	data, err := r.session.ReadFile(ctx, p)
	if err != nil {
		return nil, &ConnectionError{Env: r.name, Err: err}
	}
	return data, nil
}

func (r *Remote) WriteFile(ctx context.Context, name string, data []byte) error {
	p, err := r.path(name)
	if err != nil {
		return err
	}
	if err := r.session.WriteFile(ctx, p, data); err != nil {
		return &ConnectionError{Env: r.name, Err: err}
	}
	return nil
}

func (r *Remote) DeleteFile(ctx context.Context, name string) error {
	p, err := r.path(name)
	if err != nil {
		return err
	}
	if err := r.session.Remove(ctx, p); err != nil {
		return &ConnectionError{Env: r.name, Err: err}
	}
	return nil
}

// Close closes the session.
func (r *Remote) Close() error {
	return r.session.Close()
}

func (r *Remote) wrap(err error, command string) error {
	var exitErr *remote.ExitError
	if errors.As(err, &exitErr) {
		return &CommandError{Env: r.name, Command: command, Output: exitErr.Stderr, Err: err}
	}
	return &ConnectionError{Env: r.name, Err: err}
}
