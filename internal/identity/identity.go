// Package identity captures a WordPress site's home and siteurl options
// before its database is replaced, and writes them back afterwards, so a
// migrated database keeps answering on the destination's own URLs.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yankadevlab/ydl/internal/env"
	"github.com/yankadevlab/ydl/internal/mysqlcmd"
)

// DefaultTable is the WordPress options table without a custom prefix.
const DefaultTable = "wp_options"

// ErrIncomplete means the options table lacks one of the identity rows.
var ErrIncomplete = errors.New("identity rows incomplete")

// Snapshot is the pair of identity values of one site.
type Snapshot struct {
	Home    string
	SiteURL string
}

// Guard reads and writes identity snapshots through an environment.
type Guard struct {
	Table  string
	Logger *zap.Logger
}

// NewGuard returns a Guard on table. An empty table means DefaultTable.
func NewGuard(table string, logger *zap.Logger) *Guard {
	if table == "" {
		table = DefaultTable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{Table: table, Logger: logger}
}

func (g *Guard) table() string {
	if g.Table == "" {
		return DefaultTable
	}
	return g.Table
}

func (g *Guard) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}

// Capture reads the identity of database db in e. A destination without
// the database, a failed read or a missing row all yield a nil snapshot
// and no error: there is nothing to preserve.
func (g *Guard) Capture(ctx context.Context, e env.Environment, db string) *Snapshot {
	rows, err := e.Query(ctx, mysqlcmd.SelectIdentity(db, g.table()))
	if err != nil {
		g.logger().Info("no identity to preserve",
			zap.String("env", e.Name()), zap.String("database", db), zap.Error(err))
		return nil
	}
	snap, err := parse(rows)
	if err != nil {
		g.logger().Info("no identity to preserve",
			zap.String("env", e.Name()), zap.String("database", db), zap.Error(err))
		return nil
	}
	g.logger().Debug("captured identity",
		zap.String("env", e.Name()), zap.String("home", snap.Home), zap.String("siteurl", snap.SiteURL))
	return snap
}

// Restore writes snap back into database db of e. A nil snapshot issues
// no write.
func (g *Guard) Restore(ctx context.Context, e env.Environment, db string, snap *Snapshot) error {
	if snap == nil {
		return nil
	}
	if err := e.Exec(ctx, mysqlcmd.UpdateIdentity(db, g.table(), snap.Home, snap.SiteURL)); err != nil {
		return fmt.Errorf("restoring identity of %s: %w", e.Name(), err)
	}
	return nil
}

// parse reads "name<TAB>value" rows.
func parse(rows []string) (*Snapshot, error) {
	var snap Snapshot
	var home, site bool
	for _, row := range rows {
		name, value, ok := strings.Cut(row, "\t")
		if !ok {
			continue
		}
		switch name {
		case mysqlcmd.OptionHome:
			snap.Home, home = value, true
		case mysqlcmd.OptionSiteURL:
			snap.SiteURL, site = value, true
		}
	}
	switch {
	case !home:
		return nil, fmt.Errorf("%w: no %s", ErrIncomplete, mysqlcmd.OptionHome)
	case !site:
		return nil, fmt.Errorf("%w: no %s", ErrIncomplete, mysqlcmd.OptionSiteURL)
	}
	return &snap, nil
}
