package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/yankadevlab/ydl/internal/config"
	"github.com/yankadevlab/ydl/internal/credentials"
	"github.com/yankadevlab/ydl/internal/docker"
	"github.com/yankadevlab/ydl/internal/env"
	"github.com/yankadevlab/ydl/internal/remote"
	"github.com/yankadevlab/ydl/internal/util"
)

// mysqlPort is the port the SQL readiness probe dials on the database
// container.
const mysqlPort = 3306

// Seams for tests.
var (
	newDocker  = docker.New
	dialRemote = func(ctx context.Context, c remote.Config) (env.Session, error) {
		return remote.Dial(ctx, c)
	}
)

// newLocalEnv opens the compose project at dir with the configured
// readiness policy.
func newLocalEnv(dir string, dk *docker.Client) (*env.Local, error) {
	opts := env.LocalOptions{
		Readiness: docker.Backoff{
			Base:    cfg.ReadinessBaseBackoff(),
			Max:     cfg.ReadinessMaxBackoff(),
			Timeout: cfg.ReadinessTimeout(),
		},
	}
	switch config.ProbeKind(cfg.Readiness.Probe) {
	case config.ProbeSQL:
		opts.Probe = func(c credentials.Credentials) docker.Probe { return docker.SQLProbe(c, mysqlPort) }
	default:
		opts.Probe = dk.ExecProbe
	}
	return env.NewLocal(dir, dk, opts)
}

// openSession dials the configured SSH host.
func openSession(ctx context.Context) (env.Session, error) {
	if err := cfg.RequireRemote(); err != nil {
		return nil, err
	}
	knownHosts := knownHostsFile(cfg.Remote.KnownHosts, util.ExpandHome(defaultKnownHosts))
	if knownHosts == "" {
		logger.Warn("host key checking disabled, set remote.known_hosts",
			zap.String("host", cfg.Remote.Host))
	}
	session, err := dialRemote(ctx, remote.Config{
		Host:       cfg.Remote.Host,
		Port:       cfg.Remote.Port,
		User:       cfg.Remote.User,
		KeyPath:    cfg.Remote.PrivateKey,
		KnownHosts: knownHosts,
		Timeout:    10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Remote.Host, err)
	}
	return session, nil
}

// defaultKnownHosts is used when remote.known_hosts is unset.
var defaultKnownHosts = "~/.ssh/known_hosts"

// knownHostsFile returns the configured known_hosts file, else fallback
// when it exists, else "".
func knownHostsFile(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	if _, err := os.Stat(fallback); err == nil {
		return fallback
	}
	return ""
}

// projectName resolves "." to the current directory's name.
func projectName(arg string) (string, error) {
	if arg != "." {
		return arg, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return filepath.Base(wd), nil
}
