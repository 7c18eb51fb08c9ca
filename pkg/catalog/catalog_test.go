package catalog

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/mcp-pica/pkg/pica"
)

// fakeSource is an in-memory Source.
type fakeSource struct {
	mu sync.Mutex

	connections []pica.Connection
	definitions []pica.ConnectionDefinition
	actions     []pica.Action

	connErr   error
	defErr    error
	actionErr error

	// gate, when non-nil, blocks ListConnections until closed.
	gate chan struct{}

	// rendezvous, when set, makes each list call wait until the other has
	// started, so they only complete when issued concurrently.
	rendezvous  bool
	connStarted chan struct{}
	defsStarted chan struct{}
	connOnce    sync.Once
	defsOnce    sync.Once

	connQueries   []pica.ConnectionQuery
	actionQueries []pica.ActionQuery
}

// meet signals started and waits for other, giving up when ctx ends or
// after a second.
func meet(ctx context.Context, once *sync.Once, started, other chan struct{}) error {
	once.Do(func() { close(started) })
	select {
	case <-other:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second):
		return errors.New("list calls were not issued concurrently")
	}
}

func (f *fakeSource) ListConnections(ctx context.Context, q pica.ConnectionQuery, skip, limit int) (pica.Page[pica.Connection], error) {
	if f.gate != nil {
		<-f.gate
	}
	if f.rendezvous {
		if err := meet(ctx, &f.connOnce, f.connStarted, f.defsStarted); err != nil {
			return pica.Page[pica.Connection]{}, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connQueries = append(f.connQueries, q)
	if f.connErr != nil {
		return pica.Page[pica.Connection]{}, f.connErr
	}
	var rows []pica.Connection
	for _, c := range f.connections {
		if q.Platform == "" || c.Platform == q.Platform {
			rows = append(rows, c)
		}
	}
	return slicePage(rows, skip, limit), nil
}

func (f *fakeSource) ListConnectionDefinitions(ctx context.Context, _ bool, skip, limit int) (pica.Page[pica.ConnectionDefinition], error) {
	if f.rendezvous {
		if err := meet(ctx, &f.defsOnce, f.defsStarted, f.connStarted); err != nil {
			return pica.Page[pica.ConnectionDefinition]{}, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.defErr != nil {
		return pica.Page[pica.ConnectionDefinition]{}, f.defErr
	}
	return slicePage(f.definitions, skip, limit), nil
}

func (f *fakeSource) ListActions(_ context.Context, q pica.ActionQuery, skip, limit int) (pica.Page[pica.Action], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actionQueries = append(f.actionQueries, q)
	if f.actionErr != nil {
		return pica.Page[pica.Action]{}, f.actionErr
	}
	var rows []pica.Action
	for _, a := range f.actions {
		if q.ID != "" && a.ID != q.ID {
			continue
		}
		if q.Platform != "" && a.ConnectionPlatform != q.Platform {
			continue
		}
		rows = append(rows, a)
	}
	return slicePage(rows, skip, limit), nil
}

func slicePage[T any](all []T, skip, limit int) pica.Page[T] {
	end := min(skip+limit, len(all))
	rows := []T{}
	if skip < len(all) {
		rows = all[skip:end]
	}
	return pica.Page[T]{Rows: rows, Total: len(all), Skip: skip, Limit: limit}
}

func methodActions() []pica.Action {
	var out []pica.Action
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		out = append(out, pica.Action{ID: m, Method: m, ConnectionPlatform: "gmail", Path: "/" + m})
	}
	return out
}

func newCatalog(t *testing.T, src *fakeSource, opts Options) *Catalog {
	t.Helper()
	c, err := New(src, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(&fakeSource{}, Options{Permissions: "superuser"})
	assert.ErrorIs(t, err, ErrInvalidPermissions)

	_, err = New(&fakeSource{}, Options{IdentityType: "tenant"})
	assert.ErrorIs(t, err, ErrInvalidIdentityType)
}

func TestCatalog_WaitsForInitialization(t *testing.T) {
	src := &fakeSource{
		gate:        make(chan struct{}),
		connections: []pica.Connection{{Key: "conn_1", Platform: "gmail", Active: true}},
	}
	c := newCatalog(t, src, Options{Connectors: []string{Wildcard}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Connections(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded, "reads block until initialization finishes")

	close(src.gate)
	conns, err := c.Connections(context.Background())
	require.NoError(t, err)
	assert.Len(t, conns, 1)
}

func TestCatalog_InitialLoadsRunConcurrently(t *testing.T) {
	src := &fakeSource{
		rendezvous:  true,
		connStarted: make(chan struct{}),
		defsStarted: make(chan struct{}),
		connections: []pica.Connection{{Key: "conn_1", Platform: "gmail", Active: true}},
		definitions: []pica.ConnectionDefinition{{Platform: "gmail", Name: "Gmail"}},
	}
	c := newCatalog(t, src, Options{Connectors: []string{Wildcard}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Ready(ctx))

	conns, err := c.Connections(ctx)
	require.NoError(t, err)
	assert.Len(t, conns, 1, "connections load waited on the definitions load")

	defs, err := c.ConnectionDefinitions(ctx)
	require.NoError(t, err)
	assert.Len(t, defs, 1, "definitions load waited on the connections load")
}

func TestCatalog_ConnectorAllowList(t *testing.T) {
	conns := []pica.Connection{
		{Key: "conn_1", Platform: "gmail", Active: true},
		{Key: "conn_2", Platform: "slack", Active: true},
	}

	t.Run("empty admits nothing", func(t *testing.T) {
		c := newCatalog(t, &fakeSource{connections: conns}, Options{})
		got, err := c.ListConnections(context.Background(), "")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("wildcard admits all", func(t *testing.T) {
		c := newCatalog(t, &fakeSource{connections: conns}, Options{Connectors: []string{"*"}})
		got, err := c.ListConnections(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, conns, got)
	})

	t.Run("explicit keys", func(t *testing.T) {
		c := newCatalog(t, &fakeSource{connections: conns}, Options{Connectors: []string{"conn_2"}})
		got, err := c.ListConnections(context.Background(), "")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "conn_2", got[0].Key)
	})
}

func TestCatalog_ListConnectionsPassesIdentity(t *testing.T) {
	src := &fakeSource{}
	c := newCatalog(t, src, Options{Identity: "user_9", IdentityType: "user"})

	_, err := c.ListConnections(context.Background(), "gmail")
	require.NoError(t, err)

	src.mu.Lock()
	defer src.mu.Unlock()
	last := src.connQueries[len(src.connQueries)-1]
	assert.Equal(t, pica.ConnectionQuery{Platform: "gmail", Identity: "user_9", IdentityType: "user"}, last)
}

func TestCatalog_PlatformRefreshKeepsOtherPlatforms(t *testing.T) {
	src := &fakeSource{connections: []pica.Connection{
		{Key: "conn_1", Platform: "gmail", Active: true},
		{Key: "conn_2", Platform: "slack", Active: true},
	}}
	c := newCatalog(t, src, Options{Connectors: []string{"*"}})
	require.NoError(t, c.Ready(context.Background()))

	src.mu.Lock()
	src.connections = []pica.Connection{
		{Key: "conn_1", Platform: "gmail", Active: false},
		{Key: "conn_2", Platform: "slack", Active: true},
	}
	src.mu.Unlock()

	require.NoError(t, c.RefreshConnections(context.Background(), "gmail"))

	_, ok, err := c.ActiveConnection(context.Background(), "gmail", "conn_1")
	require.NoError(t, err)
	assert.False(t, ok, "refreshed gmail connection is now inactive")

	_, ok, err = c.ActiveConnection(context.Background(), "slack", "conn_2")
	require.NoError(t, err)
	assert.True(t, ok, "slack connection survives a gmail-scoped refresh")
}

func TestCatalog_InitFailureIsolated(t *testing.T) {
	src := &fakeSource{
		connections: []pica.Connection{{Key: "conn_1", Platform: "gmail", Active: true}},
		defErr:      errors.New("connectors down"),
	}
	c := newCatalog(t, src, Options{Connectors: []string{"*"}})

	conns, err := c.Connections(context.Background())
	require.NoError(t, err)
	assert.Len(t, conns, 1, "connections load despite definitions failing")

	defs, err := c.ConnectionDefinitions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestCatalog_PermissionFiltering(t *testing.T) {
	tests := []struct {
		permission string
		want       []string
	}{
		{permission: "read", want: []string{"GET"}},
		{permission: "write", want: []string{"POST", "PUT", "PATCH"}},
		{permission: "admin", want: []string{"GET", "POST", "PUT", "PATCH", "DELETE"}},
		{permission: "", want: []string{"GET", "POST", "PUT", "PATCH", "DELETE"}},
	}
	for _, tt := range tests {
		t.Run("permission="+tt.permission, func(t *testing.T) {
			c := newCatalog(t, &fakeSource{actions: methodActions()}, Options{Permissions: tt.permission})
			list, err := c.ListActionsForPlatform(context.Background(), "gmail")
			require.NoError(t, err)

			var methods []string
			for _, a := range list.Actions {
				methods = append(methods, a.Method)
			}
			assert.Equal(t, tt.want, methods)
			assert.Equal(t, len(tt.want), list.Total)
		})
	}
}

func TestCatalog_ActionAllowListAndNormalization(t *testing.T) {
	src := &fakeSource{actions: []pica.Action{
		{ID: "send_email", Method: "POST", ConnectionPlatform: "gmail"},
		{ID: "conn_mod_def::list_labels", Method: "GET", ConnectionPlatform: "gmail"},
		{ID: "conn_mod_def::delete_label", Method: "DELETE", ConnectionPlatform: "gmail"},
	}}
	c := newCatalog(t, src, Options{Actions: []string{"send_email", "conn_mod_def::list_labels"}})

	list, err := c.ListActionsForPlatform(context.Background(), "gmail")
	require.NoError(t, err)
	require.Len(t, list.Actions, 2)
	assert.Equal(t, "conn_mod_def::send_email", list.Actions[0].ID)
	assert.Equal(t, "conn_mod_def::list_labels", list.Actions[1].ID)
}

func TestCatalog_ListActionsFailure(t *testing.T) {
	c := newCatalog(t, &fakeSource{actionErr: errors.New("boom: secret details")}, Options{})

	_, err := c.ListActionsForPlatform(context.Background(), "gmail")
	require.ErrorIs(t, err, ErrFetchActions)
	assert.NotContains(t, err.Error(), "secret details")
}

func TestCatalog_GetAction(t *testing.T) {
	src := &fakeSource{actions: []pica.Action{
		{ID: "conn_mod_def::send_email", Method: "POST", Path: "/messages/{{id}}", ConnectionPlatform: "gmail"},
	}}
	c := newCatalog(t, src, Options{})

	a, err := c.GetAction(context.Background(), "send_email")
	require.NoError(t, err)
	assert.Equal(t, "conn_mod_def::send_email", a.ID)
	assert.Equal(t, "/messages/{{id}}", a.Path)

	src.mu.Lock()
	assert.Equal(t, "conn_mod_def::send_email", src.actionQueries[len(src.actionQueries)-1].ID)
	src.mu.Unlock()

	_, err = c.GetAction(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrActionNotFound)
}

func TestCatalog_Permits(t *testing.T) {
	c := newCatalog(t, &fakeSource{}, Options{Permissions: "read", Actions: []string{"a"}})

	assert.True(t, c.Permits(pica.Action{ID: "conn_mod_def::a", Method: "GET"}))
	assert.False(t, c.Permits(pica.Action{ID: "a", Method: "POST"}))
	assert.False(t, c.Permits(pica.Action{ID: "b", Method: "GET"}))
}

func TestCatalog_Summary(t *testing.T) {
	src := &fakeSource{
		connections: []pica.Connection{
			{Key: "conn_1", Platform: "gmail", Active: true},
			{Key: "conn_2", Platform: "slack", Active: false},
		},
		definitions: []pica.ConnectionDefinition{
			{Platform: "slack", Name: "Slack"},
			{Platform: "gmail", Name: "Gmail", Category: "Email"},
			{Platform: "gmail", Name: "Gmail duplicate"},
		},
	}
	c := newCatalog(t, src, Options{Connectors: []string{"*"}})

	s, err := c.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ConnectedPlatform{{Platform: "gmail", Key: "conn_1"}}, s.Connected)
	assert.Equal(t, []AvailablePlatform{
		{Platform: "gmail", Name: "Gmail", Category: "Email"},
		{Platform: "slack", Name: "Slack"},
	}, s.Available)
}
