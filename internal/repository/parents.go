package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rpattn/slicereports/internal/db"
	"github.com/rpattn/slicereports/internal/domain"
	"github.com/rpattn/slicereports/internal/entityloader"
)

var (
	projectColumns = []string{"id", "project_uuid", "project_name", "project_type", "active",
		"created_date", "expires_on", "retired_date", "last_updated"}
	userColumns = []string{"id", "user_uuid", "user_email", "active", "name", "affiliation",
		"registered_on", "last_updated", "google_scholar", "scopus", "bastion_login"}
	sliceColumns = []string{"id", "slice_guid", "project_id", "user_id", "slice_name", "state",
		"lease_start", "lease_end"}
	sliverColumns = []string{"id", "sliver_guid", "slice_id", "project_id", "user_id", "host_id",
		"site_id", "node_id", "state", "sliver_type", "ip_subnet", "ip_v4", "ip_v6", "image",
		"core", "ram", "disk", "bandwidth", "error", "lease_start", "lease_end"}
	hostColumns      = []string{"id", "name", "site_id"}
	siteColumns      = []string{"id", "name"}
	componentColumns = []string{"sliver_id", "component_guid", "type", "model", "bdfs", "node_id",
		"component_node_id"}
	interfaceColumns = []string{"sliver_id", "interface_guid", "vlan", "bdf", "local_name",
		"device_name", "name", "site_id"}
)

// columnList qualifies cols with a table alias.
func columnList(a string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = a + "." + c
	}
	return strings.Join(out, ", ")
}

// fetchByIDs builds the one-query-per-kind lookup behind a parent loader.
func fetchByIDs[T any](exec db.DBTX, tbl table, cols []string, id func(T) int64) entityloader.FetchFunc[T] {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ANY($1)", strings.Join(cols, ", "), tbl)
	return func(ctx context.Context, ids []int64) (map[int64]T, error) {
		rows, err := exec.Query(ctx, query, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", tbl, err)
		}
		items, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", tbl, err)
		}
		out := make(map[int64]T, len(items))
		for _, item := range items {
			out[id(item)] = item
		}
		return out, nil
	}
}

// parentLoaders batches the parent lookups of one assemble pass.
type parentLoaders struct {
	users    *entityloader.Loader[domain.User]
	projects *entityloader.Loader[domain.Project]
	slices   *entityloader.Loader[domain.Slice]
	hosts    *entityloader.Loader[domain.Host]
	sites    *entityloader.Loader[domain.Site]
}

func newParentLoaders(exec db.DBTX) *parentLoaders {
	return &parentLoaders{
		users:    entityloader.New("users", fetchByIDs(exec, tableUsers, userColumns, func(u domain.User) int64 { return u.ID })),
		projects: entityloader.New("projects", fetchByIDs(exec, tableProjects, projectColumns, func(p domain.Project) int64 { return p.ID })),
		slices:   entityloader.New("slices", fetchByIDs(exec, tableSlices, sliceColumns, func(s domain.Slice) int64 { return s.ID })),
		hosts:    entityloader.New("hosts", fetchByIDs(exec, tableHosts, hostColumns, func(h domain.Host) int64 { return h.ID })),
		sites:    entityloader.New("sites", fetchByIDs(exec, tableSites, siteColumns, func(s domain.Site) int64 { return s.ID })),
	}
}

const (
	usersPerProjectSQL = "SELECT project_id, COUNT(DISTINCT user_id) FROM slices WHERE project_id = ANY($1) GROUP BY project_id"
	slicesPerUserSQL   = "SELECT user_id, COUNT(*) FROM slices WHERE user_id = ANY($1) GROUP BY user_id"
	sliversPerSliceSQL = "SELECT slice_id, COUNT(*) FROM slivers WHERE slice_id = ANY($1) GROUP BY slice_id"
	sliversPerHostSQL  = "SELECT host_id, COUNT(*) FROM slivers WHERE host_id = ANY($1) GROUP BY host_id"
)

// countGrouped runs one of the GROUP BY count statements for a page of ids.
func countGrouped(ctx context.Context, exec db.DBTX, query string, ids []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := exec.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count children: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan child count: %w", err)
		}
		out[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate child counts: %w", err)
	}
	return out, nil
}

// childrenBySliver loads components or interfaces for a page of slivers.
func childrenBySliver[T any](ctx context.Context, exec db.DBTX, tbl table, cols []string, orderBy string, sliverIDs []int64, sliverID func(T) int64) (map[int64][]T, error) {
	out := make(map[int64][]T, len(sliverIDs))
	if len(sliverIDs) == 0 {
		return out, nil
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE sliver_id = ANY($1) ORDER BY sliver_id, %s",
		strings.Join(cols, ", "), tbl, orderBy)
	rows, err := exec.Query(ctx, query, sliverIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", tbl, err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", tbl, err)
	}
	for _, item := range items {
		id := sliverID(item)
		out[id] = append(out[id], item)
	}
	return out, nil
}
