// Package env defines the Environment capability set the migration engine
// drives, and its two implementations: Local, a docker compose project on
// this machine, and Remote, a project directory on an SSH host.
//
// Both variants resolve the same three-field credentials record from their
// own configuration file, run the same mysqlcmd command shapes, and expose
// a flat file space rooted at the project directory addressed by bare file
// names.
package env

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yankadevlab/ydl/internal/credentials"
	"github.com/yankadevlab/ydl/internal/mysqlcmd"
)

// Kind distinguishes the Environment variants.
type Kind string

const (
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)

// ArtifactRef names a dump file inside an environment's file space.
type ArtifactRef string

// Environment is a place holding a database and files.
type Environment interface {
	// Name is the human-facing project name.
	Name() string
	// Identity uniquely identifies the environment; two environments with
	// the same identity are the same place.
	Identity() string
	Kind() Kind

	// Check validates the environment without touching its database.
	Check(ctx context.Context) error
	IsUp(ctx context.Context) (bool, error)
	BringUp(ctx context.Context) error
	BringDown(ctx context.Context) error

	// ResolveCredentials extracts and caches the database credentials.
	// Database operations fail with ErrCapabilityUnavailable until it has
	// succeeded.
	ResolveCredentials(ctx context.Context) (credentials.Credentials, error)
	DumpDatabase(ctx context.Context, name string) (ArtifactRef, error)
	DropDatabase(ctx context.Context) error
	ApplyDump(ctx context.Context, ref ArtifactRef) error
	// Query runs a statement and returns tab-separated result rows.
	Query(ctx context.Context, sql string) ([]string, error)
	// Exec runs a statement for its side effects.
	Exec(ctx context.Context, sql string) error

	UploadFile(ctx context.Context, localPath, name string) error
	DownloadFile(ctx context.Context, name, localPath string) error
	ReadFile(ctx context.Context, name string) ([]byte, error)
	WriteFile(ctx context.Context, name string, data []byte) error
	DeleteFile(ctx context.Context, name string) error
	// HostPath returns the path of name on this machine's filesystem when
	// the file space is local.
	HostPath(name string) (string, bool)

	// Close releases the environment's session, if any.
	Close() error
}

// Common errors
var (
	ErrCapabilityUnavailable = errors.New("capability unavailable: credentials not resolved")
	ErrProjectNotFound       = errors.New("project not found")
	ErrInvalidFileName       = errors.New("file name must not contain a path")
)

// ConnectionError means the runtime or session could not be reached.
type ConnectionError struct {
	Env string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed for %s: %v", e.Env, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CommandError is a scripted operation that exited non-zero. Command has
// the database password redacted; Output is the captured stderr, which the
// wrapped error already reports.
type CommandError struct {
	Env     string
	Command string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command failed on %s: %s: %v", e.Env, e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// checkFileName rejects names that would escape the file space root.
func checkFileName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	return nil
}

// parseRows splits mysql -sN output into non-empty lines.
func parseRows(out string) []string {
	var rows []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			rows = append(rows, line)
		}
	}
	return rows
}

// dbCommands are the command shapes shared by both variants, bound to a
// credentials record.
type dbCommands struct {
	creds credentials.Credentials
}

func (d dbCommands) dump(file string) string { return mysqlcmd.Dump(d.creds, file) }
func (d dbCommands) drop() string { return mysqlcmd.Drop(d.creds) }
func (d dbCommands) apply(file string) string { return mysqlcmd.Apply(d.creds, file) }
func (d dbCommands) query(sql string) string { return mysqlcmd.Query(d.creds, sql) }
func (d dbCommands) statement(sql string) string { return mysqlcmd.Statement(d.creds, sql) }
func (d dbCommands) redact(command string) string { return mysqlcmd.Redact(command, d.creds.Password) }
