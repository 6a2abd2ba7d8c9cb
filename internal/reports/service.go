// Package reports is the entry point for report callers. Each call runs in
// its own read-only database scope with request-scoped logging and metrics.
package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rpattn/slicereports/internal/db"
	"github.com/rpattn/slicereports/internal/domain"
	"github.com/rpattn/slicereports/internal/logger"
	"github.com/rpattn/slicereports/internal/metrics"
	"github.com/rpattn/slicereports/internal/middleware"
	"github.com/rpattn/slicereports/internal/repository"
)

// ErrQueryFailed wraps every storage failure returned by Service.
var ErrQueryFailed = errors.New("report query failed")

// Scope opens a read-only transaction for the duration of fn.
// db.Connection satisfies it.
type Scope interface {
	ReadScope(ctx context.Context, fn func(pgx.Tx) error) error
}

// RepositoryFactory builds the report repository for one scope.
type RepositoryFactory func(exec db.DBTX, opts ...repository.ReportOption) repository.ReportRepository

// Service runs report queries.
type Service struct {
	scope     Scope
	newRepo   RepositoryFactory
	metrics   *metrics.Collectors
	intercept middleware.Interceptor

	window               time.Duration
	maxPerPage           int
	maxMembershipPerPage int
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records phase timings and failures on c.
func WithMetrics(c *metrics.Collectors) Option {
	return func(s *Service) { s.metrics = c }
}

// WithDefaultWindow sets the lease window width forced on unbounded sliver scans.
func WithDefaultWindow(d time.Duration) Option {
	return func(s *Service) { s.window = d }
}

// WithPageLimits caps per_page for bulk listings and for memberships.
func WithPageLimits(maxPerPage, maxMembershipPerPage int) Option {
	return func(s *Service) {
		if maxPerPage > 0 {
			s.maxPerPage = maxPerPage
		}
		if maxMembershipPerPage > 0 {
			s.maxMembershipPerPage = maxMembershipPerPage
		}
	}
}

// WithRepositoryFactory replaces repository.NewReportRepository.
func WithRepositoryFactory(f RepositoryFactory) Option {
	return func(s *Service) { s.newRepo = f }
}

// New creates a Service over scope.
func New(scope Scope, opts ...Option) *Service {
	s := &Service{
		scope:                scope,
		newRepo:              repository.NewReportRepository,
		window:               repository.DefaultWindow,
		maxPerPage:           domain.MaxPerPage,
		maxMembershipPerPage: domain.MaxMembershipPerPage,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.intercept = middleware.Chain(middleware.Logging(), middleware.Metrics(s.metrics))
	return s
}

func (s *Service) Projects(ctx context.Context, f domain.Filter) (domain.Page[domain.ProjectRecord], error) {
	f = s.capFilter(ctx, f)
	return run(ctx, s, repository.TargetProjects, f.Page, f.PerPage, func(r repository.ReportRepository, ctx context.Context) (domain.Page[domain.ProjectRecord], error) {
		return r.Projects(ctx, f)
	})
}

func (s *Service) Project(ctx context.Context, projectUUID string) (domain.ProjectRecord, error) {
	return run(ctx, s, repository.TargetProjects, 0, domain.DefaultPerPage, func(r repository.ReportRepository, ctx context.Context) (domain.ProjectRecord, error) {
		return r.Project(ctx, projectUUID)
	})
}

func (s *Service) Users(ctx context.Context, f domain.Filter) (domain.Page[domain.UserRecord], error) {
	f = s.capFilter(ctx, f)
	return run(ctx, s, repository.TargetUsers, f.Page, f.PerPage, func(r repository.ReportRepository, ctx context.Context) (domain.Page[domain.UserRecord], error) {
		return r.Users(ctx, f)
	})
}

func (s *Service) Slices(ctx context.Context, f domain.Filter) (domain.Page[domain.SliceRecord], error) {
	f = s.capFilter(ctx, f)
	return run(ctx, s, repository.TargetSlices, f.Page, f.PerPage, func(r repository.ReportRepository, ctx context.Context) (domain.Page[domain.SliceRecord], error) {
		return r.Slices(ctx, f)
	})
}

func (s *Service) Slivers(ctx context.Context, f domain.Filter) (domain.Page[domain.SliverRecord], error) {
	f = s.capFilter(ctx, f)
	return run(ctx, s, repository.TargetSlivers, f.Page, f.PerPage, func(r repository.ReportRepository, ctx context.Context) (domain.Page[domain.SliverRecord], error) {
		return r.Slivers(ctx, f)
	})
}

func (s *Service) Hosts(ctx context.Context, f domain.Filter) (domain.Page[domain.HostRecord], error) {
	f = s.capFilter(ctx, f)
	return run(ctx, s, repository.TargetHosts, f.Page, f.PerPage, func(r repository.ReportRepository, ctx context.Context) (domain.Page[domain.HostRecord], error) {
		return r.Hosts(ctx, f)
	})
}

func (s *Service) Sites(ctx context.Context) ([]domain.Site, error) {
	return run(ctx, s, "sites", 0, 0, func(r repository.ReportRepository, ctx context.Context) ([]domain.Site, error) {
		return r.Sites(ctx)
	})
}

func (s *Service) Memberships(ctx context.Context, f domain.MembershipFilter) (domain.Page[domain.MembershipRecord], error) {
	page, perPage := f.Paging()
	if perPage > s.maxMembershipPerPage {
		logger.FromContext(ctx).Infof("per_page %d capped to %d", perPage, s.maxMembershipPerPage)
		perPage = s.maxMembershipPerPage
	}
	f.Page, f.PerPage = page, perPage
	return run(ctx, s, "memberships", page, perPage, func(r repository.ReportRepository, ctx context.Context) (domain.Page[domain.MembershipRecord], error) {
		return r.Memberships(ctx, f)
	})
}

// capFilter normalizes paging and clamps per_page to the bulk limit.
func (s *Service) capFilter(ctx context.Context, f domain.Filter) domain.Filter {
	page, perPage := f.Paging()
	if perPage > s.maxPerPage {
		logger.FromContext(ctx).Infof("per_page %d capped to %d", perPage, s.maxPerPage)
		perPage = s.maxPerPage
	}
	f.Page, f.PerPage = page, perPage
	return f
}

// run executes fn on a fresh repository inside one read scope, through the
// interceptor chain. Failures come back wrapped in ErrQueryFailed.
func run[T any](ctx context.Context, s *Service, entity repository.Target, page, perPage int, fn func(repository.ReportRepository, context.Context) (T, error)) (T, error) {
	var out T
	q := middleware.Query{Entity: string(entity), Page: page, PerPage: perPage}

	err := s.intercept(ctx, q, func(ctx context.Context) error {
		return s.scope.ReadScope(ctx, func(tx pgx.Tx) error {
			opts := []repository.ReportOption{repository.WithWindow(s.window)}
			if s.metrics != nil {
				opts = append(opts, repository.WithObserver(s.metrics))
			}
			repo := s.newRepo(tx, opts...)
			var err error
			out, err = fn(repo, ctx)
			return err
		})
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %s: %w", ErrQueryFailed, entity, err)
	}
	return out, nil
}
