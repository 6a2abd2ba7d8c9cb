package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rpattn/slicereports/internal/domain"
	"github.com/rpattn/slicereports/internal/metrics"
)

const targetMemberships = "memberships"

// membershipRow is one deduplicated membership joined with its user and project.
type membershipRow struct {
	ID             int64      `db:"id"`
	UserUUID       string     `db:"user_uuid"`
	UserEmail      *string    `db:"user_email"`
	ProjectUUID    string     `db:"project_uuid"`
	ProjectName    *string    `db:"project_name"`
	ProjectType    *string    `db:"project_type"`
	MembershipType string     `db:"membership_type"`
	StartTime      *time.Time `db:"start_time"`
	EndTime        *time.Time `db:"end_time"`
	Active         bool       `db:"active"`
}

// Rows sharing (user, project, start_time) collapse to the highest priority
// membership type.
const membershipSelect = `SELECT DISTINCT ON (m.user_id, m.project_id, m.start_time)
	m.id, u.user_uuid, u.user_email, p.project_uuid, p.project_name, p.project_type,
	m.membership_type, m.start_time, m.end_time, m.active
FROM memberships m
JOIN users u ON u.id = m.user_id
JOIN projects p ON p.id = m.project_id`

const membershipPriority = `CASE m.membership_type
	WHEN 'owner' THEN 0
	WHEN 'creator' THEN 1
	WHEN 'member' THEN 2
	ELSE 3 END`

func compileMembershipFilter(f domain.MembershipFilter, now time.Time) (string, *sqlBuilder) {
	b := newSQLBuilder()
	var where []string

	include := func(col string, values []string) {
		if len(values) > 0 {
			where = append(where, fmt.Sprintf("%s = ANY(%s)", col, b.bind(values)))
		}
	}
	exclude := func(col string, values []string) {
		if len(values) > 0 {
			where = append(where, fmt.Sprintf("(%[1]s IS NULL OR %[1]s <> ALL(%[2]s))", col, b.bind(values)))
		}
	}
	flag := func(col string, value *bool) {
		if value != nil {
			where = append(where, fmt.Sprintf("%s = %s", col, b.bind(*value)))
		}
	}

	if clause := intervalOverlapClause("m.start_time", "m.end_time", f.StartTime, f.EndTime, b); clause != "" {
		where = append(where, clause)
	}

	include("u.user_uuid", f.UserID)
	include("u.user_email", f.UserEmail)
	include("p.project_uuid", f.ProjectID)
	include("p.project_type", f.ProjectType)
	include("m.membership_type", lowerAll(f.MembershipType))
	exclude("p.project_uuid", f.ExcludeProjectID)
	exclude("p.project_type", f.ExcludeProjectType)

	flag("p.active", f.ProjectActive)
	flag("u.active", f.UserActive)
	flag("m.active", f.Active)

	if f.ProjectExpired != nil {
		cmp := fmt.Sprintf("p.expires_on < %s", b.bind(now))
		if *f.ProjectExpired {
			where = append(where, cmp)
		} else {
			where = append(where, fmt.Sprintf("(p.expires_on IS NULL OR NOT (%s))", cmp))
		}
	}
	if f.ProjectRetired != nil {
		if *f.ProjectRetired {
			where = append(where, "p.retired_date IS NOT NULL")
		} else {
			where = append(where, "p.retired_date IS NULL")
		}
	}

	inner := membershipSelect
	if len(where) > 0 {
		inner += "\nWHERE " + strings.Join(where, " AND ")
	}
	inner += "\nORDER BY m.user_id, m.project_id, m.start_time, " + membershipPriority + ", m.id"
	return inner, b
}

func (r *reportRepository) Memberships(ctx context.Context, f domain.MembershipFilter) (domain.Page[domain.MembershipRecord], error) {
	page, perPage := f.Paging()
	inner, b := compileMembershipFilter(f, r.clock().UTC())

	start := time.Now()
	var total int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM (%s) pm", inner)
	if err := r.db.QueryRow(ctx, countSQL, b.args...).Scan(&total); err != nil {
		return domain.Page[domain.MembershipRecord]{}, fmt.Errorf("failed to count memberships: %w", err)
	}
	r.obs.Observe(targetMemberships, metrics.PhaseCount, start)

	start = time.Now()
	pageArgs := &sqlBuilder{args: append([]any{}, b.args...)}
	limit := pageArgs.bind(perPage)
	offset := pageArgs.bind(page * perPage)
	pageSQL := fmt.Sprintf("SELECT * FROM (%s) pm ORDER BY pm.id LIMIT %s OFFSET %s", inner, limit, offset)

	rows, err := r.db.Query(ctx, pageSQL, pageArgs.args...)
	if err != nil {
		return domain.Page[domain.MembershipRecord]{}, fmt.Errorf("failed to fetch memberships: %w", err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[membershipRow])
	if err != nil {
		return domain.Page[domain.MembershipRecord]{}, fmt.Errorf("failed to scan memberships: %w", err)
	}
	r.obs.Observe(targetMemberships, metrics.PhaseFetch, start)

	records := make([]domain.MembershipRecord, len(items))
	for i, m := range items {
		records[i] = domain.MembershipRecord{
			UserID:         m.UserUUID,
			UserEmail:      m.UserEmail,
			ProjectID:      m.ProjectUUID,
			ProjectName:    m.ProjectName,
			ProjectType:    m.ProjectType,
			MembershipType: m.MembershipType,
			StartTime:      domain.FormatTime(m.StartTime),
			EndTime:        domain.FormatTime(m.EndTime),
			Active:         m.Active,
		}
	}

	return domain.Page[domain.MembershipRecord]{Total: total, Items: records, Name: targetMemberships}, nil
}
