package main

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/rpattn/slicereports/internal/domain"
)

// queryFlags holds the report query options parsed from the command line.
type queryFlags struct {
	fs *pflag.FlagSet

	start, end string
	lists      map[string]*[]string
	states     map[string]*[]string
	flags      map[string]*bool

	page, perPage int
	xlsx          string
	bySite        bool
}

var listFlags = []string{
	"user-id", "user-email", "project-id", "slice-id", "sliver-id", "sliver-type", "site", "host",
	"ip-subnet", "ip-v4", "ip-v6", "bdf", "vlan", "facility", "component-type", "component-model",
	"project-type", "exclude-user-id", "exclude-user-email", "exclude-project-id", "exclude-site",
	"exclude-host", "exclude-project-type", "membership-type",
}

var stateFlags = []string{"slice-state", "sliver-state", "exclude-slice-state", "exclude-sliver-state"}

var boolFlags = []string{"active", "project-active", "user-active", "project-expired", "project-retired"}

func registerQueryFlags(fs *pflag.FlagSet) *queryFlags {
	q := &queryFlags{
		fs:     fs,
		lists:  map[string]*[]string{},
		states: map[string]*[]string{},
		flags:  map[string]*bool{},
	}
	fs.StringVar(&q.start, "start", "", "window start (RFC 3339)")
	fs.StringVar(&q.end, "end", "", "window end (RFC 3339)")
	for _, name := range listFlags {
		q.lists[name] = fs.StringSlice(name, nil, name+" values (repeatable or comma separated)")
	}
	for _, name := range stateFlags {
		q.states[name] = fs.StringSlice(name, nil, name+" names")
	}
	for _, name := range boolFlags {
		q.flags[name] = fs.Bool(name, false, "require "+name+" (only applied when given)")
	}
	fs.IntVar(&q.page, "page", 0, "page number, starting at 0")
	fs.IntVar(&q.perPage, "per-page", domain.DefaultPerPage, "rows per page")
	fs.StringVar(&q.xlsx, "xlsx", "", "write the result to this xlsx file instead of stdout")
	fs.BoolVar(&q.bySite, "by-site", false, "group host results by site")
	return q
}

func (q *queryFlags) window() (*time.Time, *time.Time, error) {
	start, err := parseTime("start", q.start)
	if err != nil {
		return nil, nil, err
	}
	end, err := parseTime("end", q.end)
	if err != nil {
		return nil, nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, fmt.Errorf("--end %s is before --start %s", q.end, q.start)
	}
	return start, end, nil
}

func parseTime(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	t = t.UTC()
	return &t, nil
}

// tri returns the flag value only when it was set on the command line.
func (q *queryFlags) tri(name string) *bool {
	if !q.fs.Changed(name) {
		return nil
	}
	v := *q.flags[name]
	return &v
}

func (q *queryFlags) list(name string) []string {
	return *q.lists[name]
}

// filter builds the report filter. State names are translated to codes.
func (q *queryFlags) filter() (domain.Filter, error) {
	start, end, err := q.window()
	if err != nil {
		return domain.Filter{}, err
	}
	return domain.Filter{
		StartTime: start,
		EndTime:   end,

		UserID:         q.list("user-id"),
		UserEmail:      q.list("user-email"),
		ProjectID:      q.list("project-id"),
		SliceID:        q.list("slice-id"),
		SliverID:       q.list("sliver-id"),
		SliverType:     q.list("sliver-type"),
		Site:           q.list("site"),
		Host:           q.list("host"),
		IPSubnet:       q.list("ip-subnet"),
		IPv4:           q.list("ip-v4"),
		IPv6:           q.list("ip-v6"),
		BDF:            q.list("bdf"),
		VLAN:           q.list("vlan"),
		Facility:       q.list("facility"),
		ComponentType:  q.list("component-type"),
		ComponentModel: q.list("component-model"),
		ProjectType:    q.list("project-type"),

		ExcludeUserID:      q.list("exclude-user-id"),
		ExcludeUserEmail:   q.list("exclude-user-email"),
		ExcludeProjectID:   q.list("exclude-project-id"),
		ExcludeSite:        q.list("exclude-site"),
		ExcludeHost:        q.list("exclude-host"),
		ExcludeProjectType: q.list("exclude-project-type"),

		SliceState:         domain.TranslateSliceStateList(*q.states["slice-state"]),
		SliverState:        domain.TranslateSliverStates(*q.states["sliver-state"]),
		ExcludeSliceState:  domain.TranslateSliceStateList(*q.states["exclude-slice-state"]),
		ExcludeSliverState: domain.TranslateSliverStates(*q.states["exclude-sliver-state"]),

		Active:        q.tri("active"),
		ProjectActive: q.tri("project-active"),
		UserActive:    q.tri("user-active"),

		Page:    q.page,
		PerPage: q.perPage,
	}, nil
}

func (q *queryFlags) membershipFilter() (domain.MembershipFilter, error) {
	start, end, err := q.window()
	if err != nil {
		return domain.MembershipFilter{}, err
	}
	return domain.MembershipFilter{
		StartTime:          start,
		EndTime:            end,
		UserID:             q.list("user-id"),
		UserEmail:          q.list("user-email"),
		ProjectID:          q.list("project-id"),
		ExcludeProjectID:   q.list("exclude-project-id"),
		ProjectType:        q.list("project-type"),
		ExcludeProjectType: q.list("exclude-project-type"),
		MembershipType:     q.list("membership-type"),
		ProjectActive:      q.tri("project-active"),
		ProjectExpired:     q.tri("project-expired"),
		ProjectRetired:     q.tri("project-retired"),
		UserActive:         q.tri("user-active"),
		Active:             q.tri("active"),
		Page:               q.page,
		PerPage:            q.perPage,
	}, nil
}
