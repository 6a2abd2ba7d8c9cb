package reports

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/slicereports/internal/db"
	"github.com/rpattn/slicereports/internal/domain"
	"github.com/rpattn/slicereports/internal/metrics"
	"github.com/rpattn/slicereports/internal/repository"
)

type fakeScope struct {
	opened int
}

func (s *fakeScope) ReadScope(ctx context.Context, fn func(pgx.Tx) error) error {
	s.opened++
	return fn(nil)
}

// fakeRepo records the filters it receives.
type fakeRepo struct {
	repository.ReportRepository
	filter     domain.Filter
	membership domain.MembershipFilter
	err        error
}

func (r *fakeRepo) Slivers(ctx context.Context, f domain.Filter) (domain.Page[domain.SliverRecord], error) {
	r.filter = f
	return domain.Page[domain.SliverRecord]{Total: 1, Name: "slivers"}, r.err
}

func (r *fakeRepo) Memberships(ctx context.Context, f domain.MembershipFilter) (domain.Page[domain.MembershipRecord], error) {
	r.membership = f
	return domain.Page[domain.MembershipRecord]{Name: "memberships"}, r.err
}

func (r *fakeRepo) Project(ctx context.Context, projectUUID string) (domain.ProjectRecord, error) {
	r.filter = domain.Filter{ProjectID: []string{projectUUID}}
	return domain.ProjectRecord{ProjectID: projectUUID}, r.err
}

func newTestService(repo *fakeRepo, opts ...Option) (*Service, *fakeScope) {
	scope := &fakeScope{}
	factory := func(db.DBTX, ...repository.ReportOption) repository.ReportRepository { return repo }
	return New(scope, append(opts, WithRepositoryFactory(factory))...), scope
}

func TestServiceCapsPerPage(t *testing.T) {
	repo := &fakeRepo{}
	svc, scope := newTestService(repo)

	page, err := svc.Slivers(context.Background(), domain.Filter{PerPage: 5000, Page: -3})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, domain.MaxPerPage, repo.filter.PerPage)
	assert.Equal(t, 0, repo.filter.Page)
	assert.Equal(t, 1, scope.opened)

	_, err = svc.Memberships(context.Background(), domain.MembershipFilter{PerPage: 900})
	require.NoError(t, err)
	assert.Equal(t, domain.MaxMembershipPerPage, repo.membership.PerPage)
}

func TestServiceDefaultsPerPage(t *testing.T) {
	repo := &fakeRepo{}
	svc, _ := newTestService(repo, WithPageLimits(50, 20))

	_, err := svc.Slivers(context.Background(), domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 50, repo.filter.PerPage, "default page size is clamped to the configured limit")
}

func TestServiceWrapsFailures(t *testing.T) {
	cause := errors.New("connection reset")
	repo := &fakeRepo{err: cause}
	collectors := metrics.New(prometheus.NewRegistry())
	svc, _ := newTestService(repo, WithMetrics(collectors))

	_, err := svc.Slivers(context.Background(), domain.Filter{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueryFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.QueryFailures.WithLabelValues("slivers")))
}

func TestServiceProjectNotFound(t *testing.T) {
	repo := &fakeRepo{err: repository.ErrNotFound}
	svc, scope := newTestService(repo)

	_, err := svc.Project(context.Background(), "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, []string{"missing"}, repo.filter.ProjectID)
	assert.Equal(t, 1, scope.opened)
}
