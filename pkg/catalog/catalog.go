// Package catalog tracks the connections and actions available to a Pica
// secret.
//
// A Catalog starts loading connections and connection definitions as soon as
// it is created. Every read waits for that first load to finish, so callers
// never observe a half-initialized catalog. Later refreshes replace the
// in-memory lists atomically.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/txn2/mcp-pica/pkg/actionid"
	"github.com/txn2/mcp-pica/pkg/paginate"
	"github.com/txn2/mcp-pica/pkg/pica"
)

// Source is the subset of the Pica API the catalog reads from.
type Source interface {
	ListConnections(ctx context.Context, q pica.ConnectionQuery, skip, limit int) (pica.Page[pica.Connection], error)
	ListConnectionDefinitions(ctx context.Context, authkit bool, skip, limit int) (pica.Page[pica.ConnectionDefinition], error)
	ListActions(ctx context.Context, q pica.ActionQuery, skip, limit int) (pica.Page[pica.Action], error)
}

// Options configures a Catalog.
type Options struct {
	// Connectors is the allow-list of connection keys. "*" admits all
	// connections; an empty list admits none.
	Connectors []string

	// Actions is the allow-list of action identifiers. Empty applies no
	// filter.
	Actions []string

	// Permissions is one of read, write, admin, or empty.
	Permissions string

	// Identity and IdentityType scope connection listings to one tenant.
	Identity     string
	IdentityType string

	// AuthKit requests the AuthKit-enabled connector list.
	AuthKit bool

	// PageSize overrides the pagination limit.
	PageSize int
}

// ActionList is the result of ListActionsForPlatform.
type ActionList struct {
	Total   int           `json:"total"`
	Actions []pica.Action `json:"actions"`
}

// Catalog holds the connection and action state for one secret.
type Catalog struct {
	source     Source
	opts       Options
	permission Permission
	connectors connectorFilter
	actionIDs  map[string]bool

	// writeMu serializes snapshot writers; readers only Load.
	writeMu     sync.Mutex
	connections atomic.Pointer[[]pica.Connection]
	definitions atomic.Pointer[[]pica.ConnectionDefinition]

	ready     chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New validates opts and starts loading the catalog in the background.
func New(source Source, opts Options) (*Catalog, error) {
	permission, err := ParsePermission(opts.Permissions)
	if err != nil {
		return nil, err
	}
	if !pica.ValidIdentityType(opts.IdentityType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentityType, opts.IdentityType)
	}

	c := &Catalog{
		source:     source,
		opts:       opts,
		permission: permission,
		connectors: newConnectorFilter(opts.Connectors),
		ready:      make(chan struct{}),
	}
	if len(opts.Actions) > 0 {
		c.actionIDs = make(map[string]bool, len(opts.Actions))
		for _, id := range actionid.NormalizeAll(opts.Actions) {
			c.actionIDs[id] = true
		}
	}
	c.connections.Store(&[]pica.Connection{})
	c.definitions.Store(&[]pica.ConnectionDefinition{})

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.initialize(ctx)

	return c, nil
}

// initialize loads connections and connection definitions concurrently. A
// failure in one does not prevent the other from loading.
func (c *Catalog) initialize(ctx context.Context) {
	defer close(c.ready)

	var g errgroup.Group
	g.Go(func() error {
		if _, err := c.loadConnections(ctx, ""); err != nil {
			slog.Error("catalog: failed to load connections", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if _, err := c.loadDefinitions(ctx); err != nil {
			slog.Error("catalog: failed to load connection definitions", "error", err)
		}
		return nil
	})
	_ = g.Wait()

	slog.Debug("catalog: initialized",
		"connections", len(*c.connections.Load()),
		"definitions", len(*c.definitions.Load()))
}

// Ready blocks until the initial load has finished or ctx is done.
func (c *Catalog) Ready(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for catalog: %w", ctx.Err())
	}
}

// Close stops any in-flight initialization.
func (c *Catalog) Close() error {
	c.closeOnce.Do(c.cancel)
	return nil
}

// Permission returns the configured permission level.
func (c *Catalog) Permission() Permission {
	return c.permission
}

// ListConnections fetches connections from the API, optionally scoped to a
// platform, and refreshes the in-memory state with the result. Only
// connections admitted by the connector allow-list are returned.
func (c *Catalog) ListConnections(ctx context.Context, platform string) ([]pica.Connection, error) {
	if err := c.Ready(ctx); err != nil {
		return nil, err
	}
	return c.loadConnections(ctx, platform)
}

// RefreshConnections re-fetches connections for platform (all platforms when
// empty).
func (c *Catalog) RefreshConnections(ctx context.Context, platform string) error {
	_, err := c.ListConnections(ctx, platform)
	return err
}

// ListConnectionDefinitions fetches every available platform definition.
func (c *Catalog) ListConnectionDefinitions(ctx context.Context) ([]pica.ConnectionDefinition, error) {
	if err := c.Ready(ctx); err != nil {
		return nil, err
	}
	return c.loadDefinitions(ctx)
}

// Connections returns the current connection snapshot.
func (c *Catalog) Connections(ctx context.Context) ([]pica.Connection, error) {
	if err := c.Ready(ctx); err != nil {
		return nil, err
	}
	return *c.connections.Load(), nil
}

// ConnectionDefinitions returns the current connection definition snapshot.
func (c *Catalog) ConnectionDefinitions(ctx context.Context) ([]pica.ConnectionDefinition, error) {
	if err := c.Ready(ctx); err != nil {
		return nil, err
	}
	return *c.definitions.Load(), nil
}

// ActiveConnection looks up an active connection by platform and key.
func (c *Catalog) ActiveConnection(ctx context.Context, platform, key string) (pica.Connection, bool, error) {
	conns, err := c.Connections(ctx)
	if err != nil {
		return pica.Connection{}, false, err
	}
	for _, conn := range conns {
		if conn.Active && conn.Key == key && conn.Platform == platform {
			return conn, true, nil
		}
	}
	return pica.Connection{}, false, nil
}

// ListActionsForPlatform fetches the actions for platform with normalized
// identifiers, filtered by permission level and the action allow-list.
func (c *Catalog) ListActionsForPlatform(ctx context.Context, platform string) (ActionList, error) {
	if err := c.Ready(ctx); err != nil {
		return ActionList{}, err
	}

	actions, err := paginate.All(ctx, func(ctx context.Context, skip, limit int) (paginate.Page[pica.Action], error) {
		page, err := c.source.ListActions(ctx, pica.ActionQuery{Platform: platform}, skip, limit)
		return toPage(page), err
	}, c.opts.PageSize)
	if err != nil {
		slog.Error("catalog: failed to fetch actions", "platform", platform, "error", err)
		return ActionList{}, ErrFetchActions
	}

	actions = normalizeActions(actions)
	actions = filterByPermission(actions, c.permission)
	actions = filterByActionIDs(actions, c.actionIDs)

	return ActionList{Total: len(actions), Actions: actions}, nil
}

// GetAction fetches a single action by identifier.
func (c *Catalog) GetAction(ctx context.Context, id string) (pica.Action, error) {
	if err := c.Ready(ctx); err != nil {
		return pica.Action{}, err
	}

	normalized := actionid.Normalize(id)
	page, err := c.source.ListActions(ctx, pica.ActionQuery{ID: normalized}, 0, 1)
	if err != nil {
		return pica.Action{}, fmt.Errorf("fetching action %s: %w", normalized, err)
	}
	if len(page.Rows) == 0 {
		return pica.Action{}, fmt.Errorf("%w: %s", ErrActionNotFound, normalized)
	}

	action := page.Rows[0]
	action.ID = actionid.Normalize(action.ID)
	return action, nil
}

// Permits reports whether action passes the permission level and the action
// allow-list.
func (c *Catalog) Permits(action pica.Action) bool {
	if !c.permission.Allows(action.Method) {
		return false
	}
	return c.actionIDs == nil || c.actionIDs[actionid.Normalize(action.ID)]
}

// loadConnections fetches connections and stores the admitted ones. A
// platform-scoped load replaces only that platform's entries.
func (c *Catalog) loadConnections(ctx context.Context, platform string) ([]pica.Connection, error) {
	q := pica.ConnectionQuery{
		Platform:     platform,
		Identity:     c.opts.Identity,
		IdentityType: c.opts.IdentityType,
	}
	conns, err := paginate.All(ctx, func(ctx context.Context, skip, limit int) (paginate.Page[pica.Connection], error) {
		page, err := c.source.ListConnections(ctx, q, skip, limit)
		return toPage(page), err
	}, c.opts.PageSize)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}

	conns = c.connectors.apply(conns)
	c.storeConnections(platform, conns)
	return conns, nil
}

// storeConnections swaps in a new connection snapshot.
func (c *Catalog) storeConnections(platform string, conns []pica.Connection) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if platform == "" {
		c.connections.Store(&conns)
		return
	}

	prev := *c.connections.Load()
	next := make([]pica.Connection, 0, len(prev)+len(conns))
	for _, conn := range prev {
		if conn.Platform != platform {
			next = append(next, conn)
		}
	}
	next = append(next, conns...)
	c.connections.Store(&next)
}

// loadDefinitions fetches and stores all connection definitions.
func (c *Catalog) loadDefinitions(ctx context.Context) ([]pica.ConnectionDefinition, error) {
	defs, err := paginate.All(ctx, func(ctx context.Context, skip, limit int) (paginate.Page[pica.ConnectionDefinition], error) {
		page, err := c.source.ListConnectionDefinitions(ctx, c.opts.AuthKit, skip, limit)
		return toPage(page), err
	}, c.opts.PageSize)
	if err != nil {
		return nil, fmt.Errorf("listing connection definitions: %w", err)
	}

	c.definitions.Store(&defs)
	return defs, nil
}

// toPage adapts an API page to the paginator's page.
func toPage[T any](p pica.Page[T]) paginate.Page[T] {
	return paginate.Page[T]{Rows: p.Rows, Total: p.Total}
}
