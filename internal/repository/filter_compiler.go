package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/rpattn/slicereports/internal/domain"
)

type sqlBuilder struct {
	args []any
}

func newSQLBuilder() *sqlBuilder {
	return &sqlBuilder{args: make([]any, 0)}
}

func (b *sqlBuilder) addArg(value any) int {
	b.args = append(b.args, value)
	return len(b.args)
}

func (b *sqlBuilder) placeholder(idx int) string {
	return fmt.Sprintf("$%d", idx)
}

// bind adds value and returns its placeholder.
func (b *sqlBuilder) bind(value any) string {
	return b.placeholder(b.addArg(value))
}

// compiledQuery is a join plan plus its WHERE conjunction. The count and
// page queries are both rendered from it so they cannot disagree.
type compiledQuery struct {
	plan    joinPlan
	where   []string
	builder *sqlBuilder
}

func (q compiledQuery) fromWhere() string {
	from := q.plan.fromClause()
	if len(q.where) == 0 {
		return from
	}
	return from + " WHERE " + strings.Join(q.where, " AND ")
}

// compileFilter plans the joins for target and appends one clause per
// non-empty filter value. f must already carry the normalized window.
func compileFilter(target Target, f domain.Filter) compiledQuery {
	plan := planJoins(target, f)
	b := newSQLBuilder()
	var where []string

	include := func(col string, values []string) {
		if len(values) > 0 {
			where = append(where, fmt.Sprintf("%s = ANY(%s)", col, b.bind(values)))
		}
	}
	includeLower := func(col string, values []string) {
		if len(values) > 0 {
			where = append(where, fmt.Sprintf("%s = ANY(%s)", col, b.bind(lowerAll(values))))
		}
	}
	exclude := func(col string, values []string) {
		if len(values) > 0 {
			where = append(where, fmt.Sprintf("(%s IS NULL OR %s <> ALL(%s))", col, col, b.bind(values)))
		}
	}
	includeCodes := func(col string, codes []int) {
		if len(codes) > 0 {
			where = append(where, fmt.Sprintf("%s = ANY(%s)", col, b.bind(codes)))
		}
	}
	excludeCodes := func(col string, codes []int) {
		if len(codes) > 0 {
			where = append(where, fmt.Sprintf("%s <> ALL(%s)", col, b.bind(codes)))
		}
	}
	flag := func(col string, v *bool) {
		if v != nil {
			where = append(where, fmt.Sprintf("%s = %s", col, b.bind(*v)))
		}
	}

	if clause := leaseOverlapClause(plan.leaseAlias(), f.StartTime, f.EndTime, b); clause != "" {
		where = append(where, clause)
	}

	include("p.project_uuid", f.ProjectID)
	include("p.project_type", f.ProjectType)
	flag("p.active", f.ProjectActive)

	include("u.user_uuid", f.UserID)
	include("u.user_email", f.UserEmail)
	flag("u.active", f.UserActive)

	include("s.slice_guid", f.SliceID)
	includeCodes("s.state", f.SliceState)

	include("sl.sliver_guid", f.SliverID)
	includeLower("sl.sliver_type", f.SliverType)
	includeCodes("sl.state", f.SliverState)
	include("sl.ip_subnet", f.IPSubnet)
	include("sl.ip_v4", f.IPv4)
	include("sl.ip_v6", f.IPv6)

	includeLower("c.type", f.ComponentType)
	includeLower("c.model", f.ComponentModel)

	include("i.bdf", f.BDF)
	include("i.vlan", f.VLAN)
	if len(f.Facility) > 0 {
		var parts []string
		for _, facility := range f.Facility {
			parts = append(parts, fmt.Sprintf("i.name LIKE %s", b.bind("%"+escapeLike(facility)+"%")))
		}
		where = append(where, "("+strings.Join(parts, " OR ")+")")
	}

	include("st.name", f.Site)
	include("h.name", f.Host)

	exclude("p.project_uuid", f.ExcludeProjectID)
	exclude("p.project_type", f.ExcludeProjectType)
	exclude("u.user_uuid", f.ExcludeUserID)
	exclude("u.user_email", f.ExcludeUserEmail)
	exclude("st.name", f.ExcludeSite)
	exclude("h.name", f.ExcludeHost)
	excludeCodes("s.state", f.ExcludeSliceState)
	excludeCodes("sl.state", f.ExcludeSliverState)

	if target == TargetProjects || target == TargetUsers {
		flag(plan.rootAlias()+".active", f.Active)
	}

	return compiledQuery{plan: plan, where: where, builder: b}
}

// leaseOverlapClause matches records whose [lease_start, lease_end] overlaps
// [start, end]. A missing lease bound is unbounded on that side. With only
// one window bound the test is made against lease_end alone.
func leaseOverlapClause(a string, start, end *time.Time, b *sqlBuilder) string {
	switch {
	case start != nil && end != nil:
		s, e := b.bind(*start), b.bind(*end)
		return fmt.Sprintf("((%[1]s.lease_end BETWEEN %[2]s AND %[3]s) OR "+
			"(%[1]s.lease_start BETWEEN %[2]s AND %[3]s) OR "+
			"(COALESCE(%[1]s.lease_start, '-infinity'::timestamptz) <= %[2]s AND "+
			"COALESCE(%[1]s.lease_end, 'infinity'::timestamptz) >= %[3]s))", a, s, e)
	case start != nil:
		return fmt.Sprintf("COALESCE(%s.lease_end, 'infinity'::timestamptz) >= %s", a, b.bind(*start))
	case end != nil:
		return fmt.Sprintf("%s.lease_end <= %s", a, b.bind(*end))
	default:
		return ""
	}
}

// intervalOverlapClause is the membership variant: a NULL bound is open on
// its side for both single-sided and two-sided windows.
func intervalOverlapClause(startCol, endCol string, start, end *time.Time, b *sqlBuilder) string {
	var parts []string
	if start != nil {
		parts = append(parts, fmt.Sprintf("COALESCE(%s, 'infinity'::timestamptz) >= %s", endCol, b.bind(*start)))
	}
	if end != nil {
		parts = append(parts, fmt.Sprintf("COALESCE(%s, '-infinity'::timestamptz) <= %s", startCol, b.bind(*end)))
	}
	return strings.Join(parts, " AND ")
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
