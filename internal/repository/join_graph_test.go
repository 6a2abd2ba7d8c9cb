package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/slicereports/internal/domain"
)

func joinedTables(p joinPlan) []table {
	out := make([]table, 0, len(p.joins))
	for _, j := range p.joins {
		out = append(out, j.table)
	}
	return out
}

func TestPlanJoins_EmptyFilterUsesOnlyOwners(t *testing.T) {
	cases := []struct {
		target Target
		want   []table
	}{
		{TargetProjects, []table{}},
		{TargetUsers, []table{}},
		{TargetSlices, []table{tableUsers, tableProjects}},
		{TargetSlivers, []table{tableSlices, tableUsers, tableProjects}},
		{TargetHosts, []table{tableSites}},
	}
	for _, tc := range cases {
		t.Run(string(tc.target), func(t *testing.T) {
			plan := planJoins(tc.target, domain.Filter{})
			assert.Equal(t, tc.want, joinedTables(plan))
			assert.False(t, plan.Distinct())
		})
	}
}

func TestPlanJoins_ClosesOverPrerequisites(t *testing.T) {
	plan := planJoins(TargetProjects, domain.Filter{ComponentType: []string{"GPU"}})

	assert.Equal(t, []table{tableSlices, tableSlivers, tableComponents}, joinedTables(plan))
	assert.True(t, plan.RequiresSlice())
	assert.True(t, plan.RequiresSliver())
	assert.False(t, plan.Requires(tableUsers))
	assert.True(t, plan.Distinct())
}

func TestPlanJoins_SiteOnProjectsGoesThroughSlivers(t *testing.T) {
	plan := planJoins(TargetProjects, domain.Filter{Site: []string{"RENC"}})

	assert.Equal(t, []table{tableSlices, tableSlivers, tableSites}, joinedTables(plan))
	assert.Equal(t,
		"FROM projects p JOIN slices s ON s.project_id = p.id JOIN slivers sl ON sl.slice_id = s.id LEFT JOIN sites st ON st.id = sl.site_id",
		plan.fromClause())
}

func TestPlanJoins_WindowAddsLeaseTable(t *testing.T) {
	now := time.Now()
	f := domain.Filter{StartTime: &now}

	users := planJoins(TargetUsers, f)
	assert.Equal(t, []table{tableSlices}, joinedTables(users))
	assert.Equal(t, "s", users.leaseAlias())
	assert.False(t, users.RequiresBoundedScan())

	hosts := planJoins(TargetHosts, f)
	assert.True(t, hosts.RequiresSliver())
	assert.True(t, hosts.RequiresBoundedScan())
	assert.Equal(t, "sl", hosts.leaseAlias())
}

func TestPlanJoins_HostTargetFiltersOnRoot(t *testing.T) {
	plan := planJoins(TargetHosts, domain.Filter{Host: []string{"renc-w1"}, Site: []string{"RENC"}})

	assert.Equal(t, []table{tableSites}, joinedTables(plan))
	assert.False(t, plan.RequiresBoundedScan())
	assert.Equal(t, "h", plan.rootAlias())
}

func TestPlanJoins_BoundedScan(t *testing.T) {
	cases := []struct {
		name   string
		target Target
		filter domain.Filter
		want   bool
	}{
		{"slivers always", TargetSlivers, domain.Filter{}, true},
		{"projects plain", TargetProjects, domain.Filter{ProjectType: []string{"research"}}, false},
		{"projects by sliver type", TargetProjects, domain.Filter{SliverType: []string{"VM"}}, true},
		{"slices by state", TargetSlices, domain.Filter{SliceState: []int{int(domain.SliceStableOK)}}, false},
		{"slices by bdf", TargetSlices, domain.Filter{BDF: []string{"0000:e2:00.0"}}, true},
		{"users by facility", TargetUsers, domain.Filter{Facility: []string{"StarLight"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, planJoins(tc.target, tc.filter).RequiresBoundedScan())
		})
	}
}

func TestJoinGraphs_PrerequisitesPrecedeDependents(t *testing.T) {
	for target, graph := range joinGraphs {
		seen := map[table]bool{graph.root: true}
		for _, j := range graph.joins {
			for _, dep := range j.requires {
				require.Truef(t, seen[dep], "%s: %s joined before its prerequisite %s", target, j.table, dep)
			}
			seen[j.table] = true
		}
		for _, owner := range graph.owners {
			assert.Truef(t, seen[owner], "%s: owner %s missing from graph", target, owner)
		}
		assert.Truef(t, seen[graph.leaseTable], "%s: lease table %s unreachable", target, graph.leaseTable)
	}
}
