package env_test

import (
	"context"
	"fmt"
	"os"

	"github.com/yankadevlab/ydl/internal/docker"
	"github.com/yankadevlab/ydl/internal/env"
	"github.com/yankadevlab/ydl/internal/remote"
)

var (
	_ env.Environment = (*env.Local)(nil)
	_ env.Environment = (*env.Remote)(nil)
	_ env.Containers  = (*docker.Client)(nil)
	_ env.Session     = (*remote.Client)(nil)
)

type execCall struct {
	container string
	script    string
}

// fakeContainers is an in-memory container runtime for one project.
type fakeContainers struct {
	running  docker.Containers
	addr     string
	execErr  error
	execOut  string
	runErr   error
	execs    []execCall
	ups      []string
	downs    []string
	waits    int
	gotProbe bool
}

func stackFor(project string) docker.Containers {
	labels := map[string]string{"com.docker.compose.project": project}
	return docker.Containers{
		{ID: "1", Name: project + "-wordpress-1", State: docker.StateRunning, Labels: labels},
		{ID: "2", Name: project + "-db-1", State: docker.StateRunning, Labels: labels},
	}
}

func (f *fakeContainers) Running(context.Context) (docker.Containers, error) {
	return f.running, f.runErr
}

func (f *fakeContainers) DatabaseAddress(_ context.Context, project string) (string, error) {
	if _, ok := f.running.ForProject(project).Database(); !ok {
		return "", fmt.Errorf("%w: database", docker.ErrContainerNotFound)
	}
	return f.addr, nil
}

func (f *fakeContainers) ComposeUp(_ context.Context, dir string) error {
	f.ups = append(f.ups, dir)
	return nil
}

func (f *fakeContainers) ComposeDown(_ context.Context, dir string) error {
	f.downs = append(f.downs, dir)
	return nil
}

func (f *fakeContainers) Exec(_ context.Context, container, script string) (string, error) {
	f.execs = append(f.execs, execCall{container, script})
	return f.execOut, f.execErr
}

func (f *fakeContainers) WaitReady(_ context.Context, _ string, probe docker.Probe, _ docker.Backoff) error {
	f.waits++
	f.gotProbe = probe != nil
	return nil
}

// fakeSession is an in-memory SSH session. Commands are answered by
// exec; files live in a map keyed by remote path.
type fakeSession struct {
	addr     string
	exec     func(command string) (string, error)
	files    map[string][]byte
	commands []string
	removed  []string
	closed   int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		addr:  "example.org:22",
		exec:  func(string) (string, error) { return "", nil },
		files: map[string][]byte{},
	}
}

func (s *fakeSession) Addr() string { return s.addr }

func (s *fakeSession) Exec(_ context.Context, command string) (string, error) {
	s.commands = append(s.commands, command)
	return s.exec(command)
}

func (s *fakeSession) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
	}
	return data, nil
}

func (s *fakeSession) WriteFile(_ context.Context, path string, data []byte) error {
	s.files[path] = data
	return nil
}

func (s *fakeSession) GetFile(_ context.Context, remotePath, localPath string) error {
	data, ok := s.files[remotePath]
	if !ok {
		return fmt.Errorf("open %s: %w", remotePath, os.ErrNotExist)
	}
	return os.WriteFile(localPath, data, 0o644)
}

func (s *fakeSession) PutFile(_ context.Context, localPath, remotePath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	s.files[remotePath] = data
	return nil
}

func (s *fakeSession) Remove(_ context.Context, path string) error {
	if _, ok := s.files[path]; !ok {
		return fmt.Errorf("remove %s: %w", path, os.ErrNotExist)
	}
	delete(s.files, path)
	s.removed = append(s.removed, path)
	return nil
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}
