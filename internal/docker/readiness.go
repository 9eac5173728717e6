package docker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/yankadevlab/ydl/internal/credentials"
	"github.com/yankadevlab/ydl/internal/mysqlcmd"
)

// ErrNotReady is returned when a stack does not become ready before the
// policy timeout.
var ErrNotReady = errors.New("stack not ready")

// Probe checks that a project's database answers. app is the running
// application container and dbAddr the database container address.
type Probe func(ctx context.Context, app Container, dbAddr string) error

// Backoff bounds the readiness poll: delays start at Base and double up to
// Max; the whole wait gives up after Timeout.
type Backoff struct {
	Base    time.Duration
	Max     time.Duration
	Timeout time.Duration
}

// DefaultBackoff mirrors the defaults in config.
var DefaultBackoff = Backoff{
	Base:    500 * time.Millisecond,
	Max:     8 * time.Second,
	Timeout: 60 * time.Second,
}

// WaitReady polls until the project's application and database containers
// run and probe succeeds. A daemon failure stops the poll immediately.
func (c *Client) WaitReady(ctx context.Context, project string, probe Probe, policy Backoff) error {
	if policy.Base <= 0 {
		policy.Base = DefaultBackoff.Base
	}
	if policy.Max < policy.Base {
		policy.Max = policy.Base
	}
	if policy.Timeout <= 0 {
		policy.Timeout = DefaultBackoff.Timeout
	}

	ctx, cancel := context.WithTimeout(ctx, policy.Timeout)
	defer cancel()

	delay := policy.Base
	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = c.checkReady(ctx, project, probe)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrNoDaemon) {
			return lastErr
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %s after %d attempts in %s: %v", ErrNotReady, project, attempt, policy.Timeout, lastErr)
		case <-timer.C:
		}

		delay *= 2
		if delay > policy.Max {
			delay = policy.Max
		}
	}
}

func (c *Client) checkReady(ctx context.Context, project string, probe Probe) error {
	running, err := c.Running(ctx)
	if err != nil {
		return err
	}
	scoped := running.ForProject(project)
	app, ok := scoped.Application()
	if !ok {
		return fmt.Errorf("%w: application (%s)", ErrContainerNotFound, ApplicationInfix)
	}
	db, ok := scoped.Database()
	if !ok {
		return fmt.Errorf("%w: database (%s)", ErrContainerNotFound, DatabaseInfix)
	}
	addr, err := c.containerAddress(ctx, db)
	if err != nil {
		return err
	}
	if probe == nil {
		return nil
	}
	return probe(ctx, app, addr)
}

// ExecProbe pings the server with mysqladmin from inside the application
// container, the same path dump and apply use.
func (c *Client) ExecProbe(creds credentials.Credentials) Probe {
	return func(ctx context.Context, app Container, dbAddr string) error {
		_, err := c.Exec(ctx, app.Name, mysqlcmd.Ping(creds.WithHost(dbAddr)))
		return err
	}
}

// SQLProbe pings the database container directly over TCP with the MySQL
// driver. It needs the container network to be routable from the host.
func SQLProbe(creds credentials.Credentials, port int) Probe {
	return func(ctx context.Context, _ Container, dbAddr string) error {
		cfg := mysql.NewConfig()
		cfg.User = creds.Username
		cfg.Passwd = creds.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(dbAddr, fmt.Sprint(port))
		cfg.Timeout = 2 * time.Second

		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return fmt.Errorf("building mysql connector: %w", err)
		}
		db := sql.OpenDB(connector)
		defer db.Close()
		return db.PingContext(ctx)
	}
}
