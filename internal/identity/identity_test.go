package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yankadevlab/ydl/internal/env"
)

// optionsEnv serves a single options table. Methods the guard does not
// use panic through the nil embedded interface.
type optionsEnv struct {
	env.Environment
	rows     []string
	queryErr error
	execErr  error
	queries  []string
	execs    []string
}

func (o *optionsEnv) Name() string { return "site" }

func (o *optionsEnv) Query(_ context.Context, sql string) ([]string, error) {
	o.queries = append(o.queries, sql)
	return o.rows, o.queryErr
}

func (o *optionsEnv) Exec(_ context.Context, sql string) error {
	o.execs = append(o.execs, sql)
	return o.execErr
}

func TestCapture(t *testing.T) {
	tests := []struct {
		name     string
		rows     []string
		queryErr error
		want     *Snapshot
	}{
		{
			name: "both rows",
			rows: []string{"home\thttps://site.test", "siteurl\thttps://site.test/wp"},
			want: &Snapshot{Home: "https://site.test", SiteURL: "https://site.test/wp"},
		},
		{
			name: "order independent",
			rows: []string{"siteurl\thttps://b", "home\thttps://a"},
			want: &Snapshot{Home: "https://a", SiteURL: "https://b"},
		},
		{name: "missing siteurl", rows: []string{"home\thttps://a"}},
		{name: "empty table", rows: nil},
		{name: "unknown database", queryErr: errors.New("ERROR 1049: Unknown database")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &optionsEnv{rows: tt.rows, queryErr: tt.queryErr}
			got := NewGuard("", nil).Capture(context.Background(), e, "wp_site")
			assert.Equal(t, tt.want, got)
			require.Len(t, e.queries, 1)
			assert.Contains(t, e.queries[0], "FROM `wp_site`.`wp_options`")
		})
	}
}

func TestCapture_CustomTable(t *testing.T) {
	e := &optionsEnv{}
	NewGuard("blog_options", nil).Capture(context.Background(), e, "wp")
	require.Len(t, e.queries, 1)
	assert.Contains(t, e.queries[0], "`wp`.`blog_options`")
}

func TestRestore_WritesBothValues(t *testing.T) {
	e := &optionsEnv{}
	snap := &Snapshot{Home: "https://dest.test", SiteURL: "https://dest.test"}

	require.NoError(t, NewGuard("", nil).Restore(context.Background(), e, "wp_dest", snap))
	require.Len(t, e.execs, 1)
	assert.Contains(t, e.execs[0], "UPDATE `wp_dest`.`wp_options` SET option_value = 'https://dest.test' WHERE option_name = 'home';")
	assert.Contains(t, e.execs[0], "WHERE option_name = 'siteurl';")
}

func TestRestore_NilSnapshotWritesNothing(t *testing.T) {
	e := &optionsEnv{}
	require.NoError(t, NewGuard("", nil).Restore(context.Background(), e, "wp_dest", nil))
	assert.Empty(t, e.execs)
}

func TestRestore_Failure(t *testing.T) {
	boom := errors.New("boom")
	e := &optionsEnv{execErr: boom}
	err := NewGuard("", nil).Restore(context.Background(), e, "wp_dest", &Snapshot{Home: "a", SiteURL: "b"})
	assert.ErrorIs(t, err, boom)
}

func TestRoundTrip(t *testing.T) {
	// Values captured before replacement are the ones written back.
	e := &optionsEnv{rows: []string{"home\thttps://h.test", "siteurl\thttps://s.test"}}
	g := NewGuard("", nil)
	snap := g.Capture(context.Background(), e, "wp")
	require.NotNil(t, snap)
	require.NoError(t, g.Restore(context.Background(), e, "wp", snap))
	assert.Contains(t, e.execs[0], "'https://h.test' WHERE option_name = 'home'")
	assert.Contains(t, e.execs[0], "'https://s.test' WHERE option_name = 'siteurl'")
}
