package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yankadevlab/ydl/internal/credentials"
	"github.com/yankadevlab/ydl/internal/env"
)

var errNoDatabase = errors.New("ERROR 1049 (42000): Unknown database")

// fakeEnv is an in-memory environment. A local fake keeps its files in a
// real directory so host renames work; a remote fake keeps them in a map.
// The database is a list of statements; dumps carry options as
// "OPTION <name> <value>" lines.
type fakeEnv struct {
	name     string
	identity string
	kind     env.Kind
	dir      string
	files    map[string][]byte

	creds    credentials.Credentials
	credErr  error
	checkErr error
	up       bool

	exists  bool
	tables  string
	options map[string]string

	fail   map[string]error
	calls  []string
	execs  []string
	closed int
}

func newLocalFake(dir, name, db string) *fakeEnv {
	return &fakeEnv{
		name:     name,
		identity: "local:" + dir,
		kind:     env.KindLocal,
		dir:      dir,
		creds:    credentials.Credentials{Database: db, Username: "u", Password: "p"},
		up:       true,
		fail:     map[string]error{},
	}
}

func newRemoteFake(root, name, db string) *fakeEnv {
	return &fakeEnv{
		name:     name,
		identity: "remote:host:22:" + root,
		kind:     env.KindRemote,
		files:    map[string][]byte{},
		creds:    credentials.Credentials{Database: db, Username: "u", Password: "p"},
		up:       true,
		fail:     map[string]error{},
	}
}

// withSite gives the fake an existing database with rows of its own.
func (f *fakeEnv) withSite(home, siteURL string) *fakeEnv {
	f.exists = true
	f.tables = fmt.Sprintf("CREATE TABLE `%s`.`wp_posts`;", f.creds.Database)
	f.options = map[string]string{"home": home, "siteurl": siteURL}
	return f
}

func (f *fakeEnv) record(op string) error {
	f.calls = append(f.calls, op)
	return f.fail[op]
}

func (f *fakeEnv) called(op string) bool {
	for _, c := range f.calls {
		if c == op {
			return true
		}
	}
	return false
}

func (f *fakeEnv) index(op string) int {
	for i, c := range f.calls {
		if c == op {
			return i
		}
	}
	return -1
}

// destructive reports whether any call could have changed state.
func (f *fakeEnv) destructive() bool {
	for _, op := range []string{"up", "down", "dump", "drop", "apply", "exec", "upload", "download", "write", "delete"} {
		if f.called(op) {
			return true
		}
	}
	return false
}

func (f *fakeEnv) Name() string     { return f.name }
func (f *fakeEnv) Identity() string { return f.identity }
func (f *fakeEnv) Kind() env.Kind   { return f.kind }

func (f *fakeEnv) Check(context.Context) error {
	f.calls = append(f.calls, "check")
	return f.checkErr
}

func (f *fakeEnv) IsUp(context.Context) (bool, error) {
	return f.up, f.record("isup")
}

func (f *fakeEnv) BringUp(context.Context) error {
	if err := f.record("up"); err != nil {
		return err
	}
	f.up = true
	return nil
}

func (f *fakeEnv) BringDown(context.Context) error {
	if err := f.record("down"); err != nil {
		return err
	}
	f.up = false
	return nil
}

func (f *fakeEnv) ResolveCredentials(context.Context) (credentials.Credentials, error) {
	f.calls = append(f.calls, "creds")
	if f.credErr != nil {
		return credentials.Credentials{}, f.credErr
	}
	return f.creds, nil
}

func (f *fakeEnv) DumpDatabase(ctx context.Context, name string) (env.ArtifactRef, error) {
	if err := f.record("dump"); err != nil {
		return "", err
	}
	if !f.exists {
		return "", errNoDatabase
	}
	db := "`" + f.creds.Database + "`"
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE DATABASE %s;\nUSE %s;\n%s\n", db, db, f.tables)
	for _, k := range []string{"home", "siteurl"} {
		if v, ok := f.options[k]; ok {
			fmt.Fprintf(&sb, "OPTION %s %s\n", k, v)
		}
	}
	return env.ArtifactRef(name), f.put(name, []byte(sb.String()))
}

func (f *fakeEnv) DropDatabase(context.Context) error {
	if err := f.record("drop"); err != nil {
		return err
	}
	if !f.exists {
		return errNoDatabase
	}
	f.exists, f.tables, f.options = false, "", nil
	return nil
}

var optionLine = regexp.MustCompile(`(?m)^OPTION (\S+) (\S+)$`)

func (f *fakeEnv) ApplyDump(_ context.Context, ref env.ArtifactRef) error {
	if err := f.record("apply"); err != nil {
		return err
	}
	data, err := f.get(string(ref))
	if err != nil {
		return err
	}
	f.exists = true
	f.tables = string(data)
	f.options = map[string]string{}
	for _, m := range optionLine.FindAllStringSubmatch(string(data), -1) {
		f.options[m[1]] = m[2]
	}
	return nil
}

func (f *fakeEnv) Query(context.Context, string) ([]string, error) {
	if err := f.record("query"); err != nil {
		return nil, err
	}
	if !f.exists {
		return nil, errNoDatabase
	}
	var rows []string
	for _, k := range []string{"home", "siteurl"} {
		if v, ok := f.options[k]; ok {
			rows = append(rows, k+"\t"+v)
		}
	}
	return rows, nil
}

var updateOption = regexp.MustCompile(`SET option_value = '([^']*)' WHERE option_name = '([^']*)'`)

func (f *fakeEnv) Exec(_ context.Context, sql string) error {
	if err := f.record("exec"); err != nil {
		return err
	}
	f.execs = append(f.execs, sql)
	for _, m := range updateOption.FindAllStringSubmatch(sql, -1) {
		f.options[m[2]] = m[1]
	}
	return nil
}

func (f *fakeEnv) put(name string, data []byte) error {
	if f.dir != "" {
		return os.WriteFile(filepath.Join(f.dir, name), data, 0o644)
	}
	f.files[name] = data
	return nil
}

func (f *fakeEnv) get(name string) ([]byte, error) {
	if f.dir != "" {
		return os.ReadFile(filepath.Join(f.dir, name))
	}
	data, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	return data, nil
}

func (f *fakeEnv) has(name string) bool {
	_, err := f.get(name)
	return err == nil
}

func (f *fakeEnv) UploadFile(_ context.Context, localPath, name string) error {
	if err := f.record("upload"); err != nil {
		return err
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	return f.put(name, data)
}

func (f *fakeEnv) DownloadFile(_ context.Context, name, localPath string) error {
	if err := f.record("download"); err != nil {
		return err
	}
	data, err := f.get(name)
	if err != nil {
		return err
	}
	return os.WriteFile(localPath, data, 0o644)
}

func (f *fakeEnv) ReadFile(_ context.Context, name string) ([]byte, error) {
	if err := f.record("read"); err != nil {
		return nil, err
	}
	return f.get(name)
}

func (f *fakeEnv) WriteFile(_ context.Context, name string, data []byte) error {
	if err := f.record("write"); err != nil {
		return err
	}
	return f.put(name, data)
}

func (f *fakeEnv) DeleteFile(_ context.Context, name string) error {
	if err := f.record("delete"); err != nil {
		return err
	}
	if f.dir != "" {
		return os.Remove(filepath.Join(f.dir, name))
	}
	if _, ok := f.files[name]; !ok {
		return fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	delete(f.files, name)
	return nil
}

func (f *fakeEnv) HostPath(name string) (string, bool) {
	if f.dir == "" {
		return "", false
	}
	return filepath.Join(f.dir, name), true
}

func (f *fakeEnv) Close() error {
	f.closed++
	return nil
}
