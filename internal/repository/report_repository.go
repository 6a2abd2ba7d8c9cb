package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rpattn/slicereports/internal/db"
	"github.com/rpattn/slicereports/internal/domain"
	"github.com/rpattn/slicereports/internal/logger"
	"github.com/rpattn/slicereports/internal/metrics"
	"github.com/sirupsen/logrus"
)

type reportRepository struct {
	db     db.DBTX
	window time.Duration
	clock  func() time.Time
	obs    PhaseObserver
}

// ReportOption configures a report repository.
type ReportOption func(*reportRepository)

// WithWindow sets the default lease window width.
func WithWindow(d time.Duration) ReportOption {
	return func(r *reportRepository) {
		if d > 0 {
			r.window = d
		}
	}
}

// WithClock replaces time.Now for window normalization.
func WithClock(clock func() time.Time) ReportOption {
	return func(r *reportRepository) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithObserver reports phase timings and forced windows to obs.
func WithObserver(obs PhaseObserver) ReportOption {
	return func(r *reportRepository) {
		if obs != nil {
			r.obs = obs
		}
	}
}

// NewReportRepository creates the report query engine over exec, usually a
// read-only transaction owned by the caller.
func NewReportRepository(exec db.DBTX, opts ...ReportOption) ReportRepository {
	r := &reportRepository{
		db:     exec,
		window: DefaultWindow,
		clock:  time.Now,
		obs:    noopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// prepare normalizes the time window for target and compiles f.
func (r *reportRepository) prepare(ctx context.Context, target Target, f domain.Filter) (domain.Filter, compiledQuery) {
	plan := planJoins(target, f)
	start, end, adj := NormalizeWindow(f.StartTime, f.EndTime, plan.RequiresBoundedScan(), r.clock().UTC(), r.window)

	switch adj {
	case WindowForced:
		logger.FromContext(ctx).WithFields(logrus.Fields{
			"entity": target,
			"start":  start.Format(time.RFC3339),
			"end":    end.Format(time.RFC3339),
		}).Warn("forcing default time window because sliver data is scanned without a time filter")
		r.obs.WindowForced(string(target))
	case WindowCompleted:
		logger.FromContext(ctx).WithFields(logrus.Fields{
			"entity": target,
			"start":  start.Format(time.RFC3339),
			"end":    end.Format(time.RFC3339),
		}).Info("completed one-sided time window")
	}

	f.StartTime, f.EndTime = start, end
	return f, compileFilter(target, f)
}

func (r *reportRepository) observe(ctx context.Context, target Target, phase string, start time.Time) {
	r.obs.Observe(string(target), phase, start)
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"entity":   target,
		"phase":    phase,
		"duration": time.Since(start),
	}).Debug("report query phase")
}

func (r *reportRepository) Projects(ctx context.Context, filter domain.Filter) (domain.Page[domain.ProjectRecord], error) {
	f, q := r.prepare(ctx, TargetProjects, filter)
	page, perPage := f.Paging()

	total, rows, err := executePage[domain.Project](ctx, r.db, r.obs, q, columnList("p", projectColumns), page, perPage)
	if err != nil {
		return domain.Page[domain.ProjectRecord]{}, err
	}

	start := time.Now()
	records := make([]domain.ProjectRecord, len(rows))
	for i, p := range rows {
		records[i] = projectRecord(p)
	}

	if expandProjectUsers(f) {
		for i, p := range rows {
			users, err := r.Users(ctx, narrowToProject(f, p.ProjectUUID, perPage))
			if err != nil {
				return domain.Page[domain.ProjectRecord]{}, err
			}
			records[i].Users = domain.Expanded(users.Total, users.Items)
		}
	} else {
		ids := make([]int64, len(rows))
		for i, p := range rows {
			ids[i] = p.ID
		}
		counts, err := countGrouped(ctx, r.db, usersPerProjectSQL, ids)
		if err != nil {
			return domain.Page[domain.ProjectRecord]{}, err
		}
		for i, p := range rows {
			records[i].Users = domain.Counted[domain.UserRecord](counts[p.ID])
		}
	}
	r.observe(ctx, TargetProjects, metrics.PhaseAssemble, start)

	return domain.Page[domain.ProjectRecord]{Total: total, Items: records, Name: string(TargetProjects)}, nil
}

func (r *reportRepository) Project(ctx context.Context, projectUUID string) (domain.ProjectRecord, error) {
	page, err := r.Projects(ctx, domain.Filter{ProjectID: []string{projectUUID}})
	if err != nil {
		return domain.ProjectRecord{}, err
	}
	if len(page.Items) == 0 {
		return domain.ProjectRecord{}, fmt.Errorf("project %s: %w", projectUUID, ErrNotFound)
	}
	return page.Items[0], nil
}

func (r *reportRepository) Users(ctx context.Context, filter domain.Filter) (domain.Page[domain.UserRecord], error) {
	f, q := r.prepare(ctx, TargetUsers, filter)
	page, perPage := f.Paging()

	total, rows, err := executePage[domain.User](ctx, r.db, r.obs, q, columnList("u", userColumns), page, perPage)
	if err != nil {
		return domain.Page[domain.UserRecord]{}, err
	}

	start := time.Now()
	records := make([]domain.UserRecord, len(rows))
	for i, u := range rows {
		records[i] = userRecord(u)
	}

	if expandUserSlices(f) {
		for i, u := range rows {
			slices, err := r.Slices(ctx, narrowToUser(f, u.UserUUID, perPage))
			if err != nil {
				return domain.Page[domain.UserRecord]{}, err
			}
			records[i].Slices = domain.Expanded(slices.Total, slices.Items)
		}
	} else {
		ids := make([]int64, len(rows))
		for i, u := range rows {
			ids[i] = u.ID
		}
		counts, err := countGrouped(ctx, r.db, slicesPerUserSQL, ids)
		if err != nil {
			return domain.Page[domain.UserRecord]{}, err
		}
		for i, u := range rows {
			records[i].Slices = domain.Counted[domain.SliceRecord](counts[u.ID])
		}
	}
	r.observe(ctx, TargetUsers, metrics.PhaseAssemble, start)

	return domain.Page[domain.UserRecord]{Total: total, Items: records, Name: string(TargetUsers)}, nil
}

func (r *reportRepository) Slices(ctx context.Context, filter domain.Filter) (domain.Page[domain.SliceRecord], error) {
	f, q := r.prepare(ctx, TargetSlices, filter)
	page, perPage := f.Paging()

	total, rows, err := executePage[domain.Slice](ctx, r.db, r.obs, q, columnList("s", sliceColumns), page, perPage)
	if err != nil {
		return domain.Page[domain.SliceRecord]{}, err
	}

	start := time.Now()
	loaders := newParentLoaders(r.db)
	userIDs := make([]int64, len(rows))
	projectIDs := make([]int64, len(rows))
	sliceIDs := make([]int64, len(rows))
	for i, s := range rows {
		userIDs[i], projectIDs[i], sliceIDs[i] = s.UserID, s.ProjectID, s.ID
	}
	users, err := loaders.users.LoadAll(ctx, userIDs)
	if err != nil {
		return domain.Page[domain.SliceRecord]{}, err
	}
	projects, err := loaders.projects.LoadAll(ctx, projectIDs)
	if err != nil {
		return domain.Page[domain.SliceRecord]{}, err
	}

	records := make([]domain.SliceRecord, len(rows))
	for i, s := range rows {
		records[i] = sliceRecord(s, ownerOf(users, projects, s.UserID, s.ProjectID))
	}

	if expandSliceSlivers(f) {
		for i, s := range rows {
			slivers, err := r.Slivers(ctx, narrowToSlice(f, s, perPage))
			if err != nil {
				return domain.Page[domain.SliceRecord]{}, err
			}
			records[i].Slivers = domain.Expanded(slivers.Total, slivers.Items)
		}
	} else {
		counts, err := countGrouped(ctx, r.db, sliversPerSliceSQL, sliceIDs)
		if err != nil {
			return domain.Page[domain.SliceRecord]{}, err
		}
		for i, s := range rows {
			records[i].Slivers = domain.Counted[domain.SliverRecord](counts[s.ID])
		}
	}
	r.observe(ctx, TargetSlices, metrics.PhaseAssemble, start)

	return domain.Page[domain.SliceRecord]{Total: total, Items: records, Name: string(TargetSlices)}, nil
}

func (r *reportRepository) Slivers(ctx context.Context, filter domain.Filter) (domain.Page[domain.SliverRecord], error) {
	f, q := r.prepare(ctx, TargetSlivers, filter)
	page, perPage := f.Paging()

	total, rows, err := executePage[domain.Sliver](ctx, r.db, r.obs, q, columnList("sl", sliverColumns), page, perPage)
	if err != nil {
		return domain.Page[domain.SliverRecord]{}, err
	}

	start := time.Now()
	var (
		loaders    = newParentLoaders(r.db)
		userIDs    = make([]int64, len(rows))
		projectIDs = make([]int64, len(rows))
		sliceIDs   = make([]int64, len(rows))
		sliverIDs  = make([]int64, len(rows))
		siteIDs    = make([]*int64, len(rows))
		hostIDs    = make([]*int64, len(rows))
	)
	for i, sl := range rows {
		userIDs[i], projectIDs[i], sliceIDs[i], sliverIDs[i] = sl.UserID, sl.ProjectID, sl.SliceID, sl.ID
		siteIDs[i], hostIDs[i] = sl.SiteID, sl.HostID
	}

	users, err := loaders.users.LoadAll(ctx, userIDs)
	if err != nil {
		return domain.Page[domain.SliverRecord]{}, err
	}
	projects, err := loaders.projects.LoadAll(ctx, projectIDs)
	if err != nil {
		return domain.Page[domain.SliverRecord]{}, err
	}
	sites, err := loaders.sites.LoadAll(ctx, derefIDs(siteIDs))
	if err != nil {
		return domain.Page[domain.SliverRecord]{}, err
	}
	hosts, err := loaders.hosts.LoadAll(ctx, derefIDs(hostIDs))
	if err != nil {
		return domain.Page[domain.SliverRecord]{}, err
	}
	slices, err := loaders.slices.LoadAll(ctx, sliceIDs)
	if err != nil {
		return domain.Page[domain.SliverRecord]{}, err
	}

	components, err := childrenBySliver(ctx, r.db, tableComponents, componentColumns, "component_guid", sliverIDs,
		func(c domain.Component) int64 { return c.SliverID })
	if err != nil {
		return domain.Page[domain.SliverRecord]{}, err
	}
	interfaces, err := childrenBySliver(ctx, r.db, tableInterfaces, interfaceColumns, "interface_guid", sliverIDs,
		func(i domain.Interface) int64 { return i.SliverID })
	if err != nil {
		return domain.Page[domain.SliverRecord]{}, err
	}

	records := make([]domain.SliverRecord, len(rows))
	for i, sl := range rows {
		var sliceGUID *string
		if s, ok := slices[sl.SliceID]; ok {
			sliceGUID = strPtr(s.SliceGUID)
		}
		rec := sliverRecord(sl, ownerOf(users, projects, sl.UserID, sl.ProjectID),
			sliceGUID, siteName(sites, sl.SiteID), hostName(hosts, sl.HostID))

		comps := componentRecords(components[sl.ID])
		ifaces := interfaceRecords(interfaces[sl.ID])
		rec.Components = domain.Expanded(int64(len(comps)), comps)
		rec.Interfaces = domain.Expanded(int64(len(ifaces)), ifaces)
		records[i] = rec
	}
	r.observe(ctx, TargetSlivers, metrics.PhaseAssemble, start)

	return domain.Page[domain.SliverRecord]{Total: total, Items: records, Name: string(TargetSlivers)}, nil
}

func (r *reportRepository) Hosts(ctx context.Context, filter domain.Filter) (domain.Page[domain.HostRecord], error) {
	f, q := r.prepare(ctx, TargetHosts, filter)
	page, perPage := f.Paging()

	total, rows, err := executePage[domain.Host](ctx, r.db, r.obs, q, columnList("h", hostColumns), page, perPage)
	if err != nil {
		return domain.Page[domain.HostRecord]{}, err
	}

	start := time.Now()
	loaders := newParentLoaders(r.db)
	siteIDs := make([]*int64, len(rows))
	hostIDs := make([]int64, len(rows))
	for i, h := range rows {
		siteIDs[i], hostIDs[i] = h.SiteID, h.ID
	}
	sites, err := loaders.sites.LoadAll(ctx, derefIDs(siteIDs))
	if err != nil {
		return domain.Page[domain.HostRecord]{}, err
	}

	records := make([]domain.HostRecord, len(rows))
	for i, h := range rows {
		records[i] = domain.HostRecord{Name: h.Name, Site: siteName(sites, h.SiteID)}
	}

	if expandHostSlivers(f) {
		for i, h := range rows {
			slivers, err := r.Slivers(ctx, narrowToHost(f, h.Name, perPage))
			if err != nil {
				return domain.Page[domain.HostRecord]{}, err
			}
			records[i].Slivers = domain.Expanded(slivers.Total, slivers.Items)
		}
	} else {
		counts, err := countGrouped(ctx, r.db, sliversPerHostSQL, hostIDs)
		if err != nil {
			return domain.Page[domain.HostRecord]{}, err
		}
		for i, h := range rows {
			records[i].Slivers = domain.Counted[domain.SliverRecord](counts[h.ID])
		}
	}
	r.observe(ctx, TargetHosts, metrics.PhaseAssemble, start)

	return domain.Page[domain.HostRecord]{Total: total, Items: records, Name: string(TargetHosts)}, nil
}

func (r *reportRepository) Sites(ctx context.Context) ([]domain.Site, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf("SELECT %s FROM sites ORDER BY name", strings.Join(siteColumns, ", ")))
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	sites, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.Site])
	if err != nil {
		return nil, fmt.Errorf("failed to scan sites: %w", err)
	}
	return sites, nil
}
