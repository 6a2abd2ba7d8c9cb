package domain

import (
	"math"
	"time"
)

const (
	// DefaultPerPage is used when a caller leaves per_page unset.
	DefaultPerPage = 100
	// MaxPerPage caps bulk entity listings.
	MaxPerPage = 1000
	// MaxMembershipPerPage caps membership listings.
	MaxMembershipPerPage = 500
)

// Filter holds every optional narrowing a report query accepts. Empty lists
// and nil pointers mean "no constraint". State lists carry already
// translated codes.
type Filter struct {
	StartTime *time.Time
	EndTime   *time.Time

	UserID         []string
	UserEmail      []string
	ProjectID      []string
	SliceID        []string
	SliverID       []string
	SliverType     []string
	Site           []string
	Host           []string
	IPSubnet       []string
	IPv4           []string
	IPv6           []string
	BDF            []string
	VLAN           []string
	Facility       []string
	ComponentType  []string
	ComponentModel []string
	ProjectType    []string

	ExcludeUserID      []string
	ExcludeUserEmail   []string
	ExcludeProjectID   []string
	ExcludeSite        []string
	ExcludeHost        []string
	ExcludeProjectType []string

	SliceState         []int
	SliverState        []int
	ExcludeSliceState  []int
	ExcludeSliverState []int

	// Active applies to the listed entity itself when it carries an active flag.
	Active        *bool
	ProjectActive *bool
	UserActive    *bool

	Page    int
	PerPage int
}

// Paging returns the normalized page and per_page values.
func (f Filter) Paging() (page, perPage int) {
	return normalizePaging(f.Page, f.PerPage)
}

// MembershipFilter narrows the membership report.
type MembershipFilter struct {
	StartTime *time.Time
	EndTime   *time.Time

	UserID             []string
	UserEmail          []string
	ProjectID          []string
	ExcludeProjectID   []string
	ProjectType        []string
	ExcludeProjectType []string
	MembershipType     []string

	ProjectActive  *bool
	ProjectExpired *bool
	ProjectRetired *bool
	UserActive     *bool
	Active         *bool

	Page    int
	PerPage int
}

// Paging returns the normalized page and per_page values.
func (f MembershipFilter) Paging() (page, perPage int) {
	return normalizePaging(f.Page, f.PerPage)
}

// normalizePaging clamps page so that page*perPage stays a valid OFFSET.
func normalizePaging(page, perPage int) (int, int) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page < 0 {
		page = 0
	}
	if last := math.MaxInt32 / perPage; page > last {
		page = last
	}
	return page, perPage
}
