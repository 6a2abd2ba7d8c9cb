package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/slicereports/internal/domain"
)

// ErrNotFound is returned by identity lookups that match no row.
var ErrNotFound = errors.New("not found")

// ReportRepository answers the read-only report queries. Every call runs on
// the executor the repository was built with and never writes.
type ReportRepository interface {
	Projects(ctx context.Context, filter domain.Filter) (domain.Page[domain.ProjectRecord], error)
	// Project returns one project with its users expanded, or ErrNotFound.
	Project(ctx context.Context, projectUUID string) (domain.ProjectRecord, error)
	Users(ctx context.Context, filter domain.Filter) (domain.Page[domain.UserRecord], error)
	Slices(ctx context.Context, filter domain.Filter) (domain.Page[domain.SliceRecord], error)
	Slivers(ctx context.Context, filter domain.Filter) (domain.Page[domain.SliverRecord], error)
	Hosts(ctx context.Context, filter domain.Filter) (domain.Page[domain.HostRecord], error)
	Sites(ctx context.Context) ([]domain.Site, error)
	Memberships(ctx context.Context, filter domain.MembershipFilter) (domain.Page[domain.MembershipRecord], error)
}

// IngestionRepository is the write side used by sync and import jobs.
// Upserts are idempotent on the entity's identity key and only overwrite
// stored values with provided (non-nil, non-zero) ones.
type IngestionRepository interface {
	AddOrUpdateProject(ctx context.Context, project domain.Project) (int64, error)
	AddOrUpdateUser(ctx context.Context, user domain.User) (int64, error)
	AddOrUpdateMembership(ctx context.Context, membership domain.Membership) (int64, error)
	AddOrUpdateSlice(ctx context.Context, slice domain.Slice) (int64, error)
	AddOrUpdateSliver(ctx context.Context, sliver domain.Sliver) (int64, error)
	AddOrUpdateComponent(ctx context.Context, component domain.Component) (string, error)
	AddOrUpdateInterface(ctx context.Context, iface domain.Interface) (string, error)
	AddOrUpdateHost(ctx context.Context, name string, siteID int64) (int64, error)
	AddOrUpdateSite(ctx context.Context, name string) (int64, error)

	DeleteProject(ctx context.Context, id int64) (bool, error)
	DeleteUser(ctx context.Context, id int64) (bool, error)
	DeleteSlice(ctx context.Context, id int64) (bool, error)

	ProjectIDByUUID(ctx context.Context, projectUUID string) (int64, error)
	UserIDByUUID(ctx context.Context, userUUID string) (int64, error)
	ActiveMembership(ctx context.Context, userID, projectID int64) (domain.Membership, error)
	EndMembership(ctx context.Context, id int64, endTime time.Time) error
}

// ImportLogRepository stores file level problems from import runs.
type ImportLogRepository interface {
	Record(ctx context.Context, entry domain.ImportLogEntry) error
	List(ctx context.Context, runID uuid.UUID, limit int, offset int) ([]domain.ImportLogEntry, error)
}

// PhaseObserver receives query phase timings. metrics.Collectors satisfies it.
type PhaseObserver interface {
	Observe(entity, phase string, start time.Time)
	WindowForced(entity string)
}

type noopObserver struct{}

func (noopObserver) Observe(string, string, time.Time) {}
func (noopObserver) WindowForced(string)               {}
