package repository

import (
	"strings"

	"github.com/rpattn/slicereports/internal/domain"
)

// Target is the entity kind a report query lists.
type Target string

const (
	TargetProjects Target = "projects"
	TargetUsers    Target = "users"
	TargetSlices   Target = "slices"
	TargetSlivers  Target = "slivers"
	TargetHosts    Target = "hosts"
)

type table string

const (
	tableProjects   table = "projects"
	tableUsers      table = "users"
	tableSlices     table = "slices"
	tableSlivers    table = "slivers"
	tableHosts      table = "hosts"
	tableSites      table = "sites"
	tableComponents table = "components"
	tableInterfaces table = "interfaces"
)

var tableAliases = map[table]string{
	tableProjects:   "p",
	tableUsers:      "u",
	tableSlices:     "s",
	tableSlivers:    "sl",
	tableHosts:      "h",
	tableSites:      "st",
	tableComponents: "c",
	tableInterfaces: "i",
}

func alias(t table) string { return tableAliases[t] }

// joinSpec is one edge of a target's join graph.
type joinSpec struct {
	table    table
	clause   string
	requires []table
	// fansOut is set when one root row can match several rows of table.
	fansOut bool
}

type targetGraph struct {
	root table
	// owners are joined on every query for the target.
	owners []table
	// joins lists every reachable table in emission order.
	joins []joinSpec
	// leaseTable carries the lease window the time filter applies to.
	leaseTable table
}

// sliverChildren hangs the sliver-level detail tables off sl.
var sliverChildren = []joinSpec{
	{table: tableHosts, clause: "LEFT JOIN hosts h ON h.id = sl.host_id", requires: []table{tableSlivers}},
	{table: tableSites, clause: "LEFT JOIN sites st ON st.id = sl.site_id", requires: []table{tableSlivers}},
	{table: tableComponents, clause: "LEFT JOIN components c ON c.sliver_id = sl.id", requires: []table{tableSlivers}, fansOut: true},
	{table: tableInterfaces, clause: "LEFT JOIN interfaces i ON i.sliver_id = sl.id", requires: []table{tableSlivers}, fansOut: true},
}

func withSliverChildren(specs ...joinSpec) []joinSpec {
	return append(specs, sliverChildren...)
}

var joinGraphs = map[Target]targetGraph{
	TargetProjects: {
		root:       tableProjects,
		leaseTable: tableSlices,
		joins: withSliverChildren(
			joinSpec{table: tableSlices, clause: "JOIN slices s ON s.project_id = p.id", fansOut: true},
			joinSpec{table: tableUsers, clause: "JOIN users u ON u.id = s.user_id", requires: []table{tableSlices}},
			joinSpec{table: tableSlivers, clause: "JOIN slivers sl ON sl.slice_id = s.id", requires: []table{tableSlices}, fansOut: true},
		),
	},
	TargetUsers: {
		root:       tableUsers,
		leaseTable: tableSlices,
		joins: withSliverChildren(
			joinSpec{table: tableSlices, clause: "JOIN slices s ON s.user_id = u.id", fansOut: true},
			joinSpec{table: tableProjects, clause: "JOIN projects p ON p.id = s.project_id", requires: []table{tableSlices}},
			joinSpec{table: tableSlivers, clause: "JOIN slivers sl ON sl.slice_id = s.id", requires: []table{tableSlices}, fansOut: true},
		),
	},
	TargetSlices: {
		root:       tableSlices,
		owners:     []table{tableUsers, tableProjects},
		leaseTable: tableSlices,
		joins: withSliverChildren(
			joinSpec{table: tableUsers, clause: "JOIN users u ON u.id = s.user_id"},
			joinSpec{table: tableProjects, clause: "JOIN projects p ON p.id = s.project_id"},
			joinSpec{table: tableSlivers, clause: "JOIN slivers sl ON sl.slice_id = s.id", fansOut: true},
		),
	},
	TargetSlivers: {
		root:       tableSlivers,
		owners:     []table{tableSlices, tableUsers, tableProjects},
		leaseTable: tableSlivers,
		joins: []joinSpec{
			{table: tableSlices, clause: "JOIN slices s ON s.id = sl.slice_id"},
			{table: tableUsers, clause: "JOIN users u ON u.id = sl.user_id"},
			{table: tableProjects, clause: "JOIN projects p ON p.id = sl.project_id"},
			sliverChildren[0],
			sliverChildren[1],
			sliverChildren[2],
			sliverChildren[3],
		},
	},
	TargetHosts: {
		root:       tableHosts,
		owners:     []table{tableSites},
		leaseTable: tableSlivers,
		joins: []joinSpec{
			{table: tableSites, clause: "LEFT JOIN sites st ON st.id = h.site_id"},
			{table: tableSlivers, clause: "JOIN slivers sl ON sl.host_id = h.id", fansOut: true},
			{table: tableSlices, clause: "JOIN slices s ON s.id = sl.slice_id", requires: []table{tableSlivers}},
			{table: tableUsers, clause: "JOIN users u ON u.id = sl.user_id", requires: []table{tableSlivers}},
			{table: tableProjects, clause: "JOIN projects p ON p.id = sl.project_id", requires: []table{tableSlivers}},
			{table: tableComponents, clause: "LEFT JOIN components c ON c.sliver_id = sl.id", requires: []table{tableSlivers}, fansOut: true},
			{table: tableInterfaces, clause: "LEFT JOIN interfaces i ON i.sliver_id = sl.id", requires: []table{tableSlivers}, fansOut: true},
		},
	},
}

// filterRoutes maps each filter category to the table its columns live on.
// Time and the root-level active flag are routed separately.
var filterRoutes = []struct {
	table table
	set   func(f domain.Filter) bool
}{
	{tableProjects, func(f domain.Filter) bool {
		return len(f.ProjectID) > 0 || len(f.ExcludeProjectID) > 0 ||
			len(f.ProjectType) > 0 || len(f.ExcludeProjectType) > 0 || f.ProjectActive != nil
	}},
	{tableUsers, func(f domain.Filter) bool {
		return len(f.UserID) > 0 || len(f.UserEmail) > 0 ||
			len(f.ExcludeUserID) > 0 || len(f.ExcludeUserEmail) > 0 || f.UserActive != nil
	}},
	{tableSlices, func(f domain.Filter) bool {
		return len(f.SliceID) > 0 || len(f.SliceState) > 0 || len(f.ExcludeSliceState) > 0
	}},
	{tableSlivers, func(f domain.Filter) bool {
		return len(f.SliverID) > 0 || len(f.SliverType) > 0 || len(f.SliverState) > 0 ||
			len(f.ExcludeSliverState) > 0 || len(f.IPSubnet) > 0 || len(f.IPv4) > 0 || len(f.IPv6) > 0
	}},
	{tableHosts, func(f domain.Filter) bool {
		return len(f.Host) > 0 || len(f.ExcludeHost) > 0
	}},
	{tableSites, func(f domain.Filter) bool {
		return len(f.Site) > 0 || len(f.ExcludeSite) > 0
	}},
	{tableComponents, func(f domain.Filter) bool {
		return len(f.ComponentType) > 0 || len(f.ComponentModel) > 0
	}},
	{tableInterfaces, func(f domain.Filter) bool {
		return len(f.BDF) > 0 || len(f.VLAN) > 0 || len(f.Facility) > 0
	}},
}

// joinPlan is the resolved set of joins for one query.
type joinPlan struct {
	target Target
	graph  targetGraph
	tables map[table]bool
	joins  []joinSpec
}

func hasWindow(f domain.Filter) bool {
	return f.StartTime != nil || f.EndTime != nil
}

// planJoins resolves which joins f needs for target. Tables are closed over
// their prerequisites and emitted in the target's canonical order.
func planJoins(target Target, f domain.Filter) joinPlan {
	graph := joinGraphs[target]
	plan := joinPlan{
		target: target,
		graph:  graph,
		tables: map[table]bool{graph.root: true},
	}

	specs := make(map[table]joinSpec, len(graph.joins))
	for _, j := range graph.joins {
		specs[j.table] = j
	}

	var need func(t table)
	need = func(t table) {
		if plan.tables[t] {
			return
		}
		spec, ok := specs[t]
		if !ok {
			return
		}
		plan.tables[t] = true
		for _, dep := range spec.requires {
			need(dep)
		}
	}

	for _, owner := range graph.owners {
		need(owner)
	}
	for _, route := range filterRoutes {
		if route.set(f) {
			need(route.table)
		}
	}
	if hasWindow(f) {
		need(graph.leaseTable)
	}

	for _, j := range graph.joins {
		if plan.tables[j.table] {
			plan.joins = append(plan.joins, j)
		}
	}
	return plan
}

// Requires reports whether t takes part in the query.
func (p joinPlan) Requires(t table) bool {
	return p.tables[t]
}

func (p joinPlan) RequiresSlice() bool  { return p.Requires(tableSlices) }
func (p joinPlan) RequiresSliver() bool { return p.Requires(tableSlivers) }

// RequiresBoundedScan is true when the query touches the sliver table.
func (p joinPlan) RequiresBoundedScan() bool {
	return p.target == TargetSlivers || p.RequiresSliver()
}

// Distinct reports whether a root row can repeat in the joined result.
func (p joinPlan) Distinct() bool {
	for _, j := range p.joins {
		if j.fansOut {
			return true
		}
	}
	return false
}

func (p joinPlan) rootAlias() string {
	return alias(p.graph.root)
}

func (p joinPlan) leaseAlias() string {
	return alias(p.graph.leaseTable)
}

// fromClause renders FROM and every planned join.
func (p joinPlan) fromClause() string {
	var b strings.Builder
	b.WriteString("FROM ")
	b.WriteString(string(p.graph.root))
	b.WriteString(" ")
	b.WriteString(p.rootAlias())
	for _, j := range p.joins {
		b.WriteString(" ")
		b.WriteString(j.clause)
	}
	return b.String()
}
