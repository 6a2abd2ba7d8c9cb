package domain

import "time"

// Site is a physical testbed location.
type Site struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Host is a worker node at a site.
type Host struct {
	ID     int64  `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	SiteID *int64 `db:"site_id" json:"site_id,omitempty"`
}

// Project groups users and the slices they create. ProjectUUID is the
// external identity used for upserts.
type Project struct {
	ID          int64      `db:"id"`
	ProjectUUID string     `db:"project_uuid"`
	ProjectName *string    `db:"project_name"`
	ProjectType *string    `db:"project_type"`
	Active      *bool      `db:"active"`
	CreatedDate *time.Time `db:"created_date"`
	ExpiresOn   *time.Time `db:"expires_on"`
	RetiredDate *time.Time `db:"retired_date"`
	LastUpdated *time.Time `db:"last_updated"`
}

// User is a testbed account. UserUUID is the external identity used for upserts.
type User struct {
	ID            int64      `db:"id"`
	UserUUID      string     `db:"user_uuid"`
	UserEmail     *string    `db:"user_email"`
	Active        *bool      `db:"active"`
	Name          *string    `db:"name"`
	Affiliation   *string    `db:"affiliation"`
	RegisteredOn  *time.Time `db:"registered_on"`
	LastUpdated   *time.Time `db:"last_updated"`
	GoogleScholar *string    `db:"google_scholar"`
	Scopus        *string    `db:"scopus"`
	BastionLogin  *string    `db:"bastion_login"`
}

// Membership types, ordered by reporting priority.
const (
	MembershipOwner   = "owner"
	MembershipCreator = "creator"
	MembershipMember  = "member"
)

// Membership links a user to a project for a period of time. A nil EndTime
// means the membership is ongoing.
type Membership struct {
	ID             int64      `db:"id"`
	UserID         int64      `db:"user_id"`
	ProjectID      int64      `db:"project_id"`
	StartTime      *time.Time `db:"start_time"`
	EndTime        *time.Time `db:"end_time"`
	MembershipType string     `db:"membership_type"`
	Active         bool       `db:"active"`
}

// Slice is a user's reservation container inside a project.
type Slice struct {
	ID         int64      `db:"id"`
	SliceGUID  string     `db:"slice_guid"`
	ProjectID  int64      `db:"project_id"`
	UserID     int64      `db:"user_id"`
	SliceName  *string    `db:"slice_name"`
	State      SliceState `db:"state"`
	LeaseStart *time.Time `db:"lease_start"`
	LeaseEnd   *time.Time `db:"lease_end"`
}

// Sliver is one concrete resource allocated within a slice. ProjectID and
// UserID always mirror the parent slice.
type Sliver struct {
	ID         int64       `db:"id"`
	SliverGUID string      `db:"sliver_guid"`
	SliceID    int64       `db:"slice_id"`
	ProjectID  int64       `db:"project_id"`
	UserID     int64       `db:"user_id"`
	HostID     *int64      `db:"host_id"`
	SiteID     *int64      `db:"site_id"`
	NodeID     *string     `db:"node_id"`
	State      SliverState `db:"state"`
	SliverType *string     `db:"sliver_type"`
	IPSubnet   *string     `db:"ip_subnet"`
	IPv4       *string     `db:"ip_v4"`
	IPv6       *string     `db:"ip_v6"`
	Image      *string     `db:"image"`
	Core       *int32      `db:"core"`
	RAM        *int32      `db:"ram"`
	Disk       *int32      `db:"disk"`
	Bandwidth  *int32      `db:"bandwidth"`
	Error      *string     `db:"error"`
	LeaseStart *time.Time  `db:"lease_start"`
	LeaseEnd   *time.Time  `db:"lease_end"`
}

// Component is a hardware accessory attached to a sliver.
type Component struct {
	SliverID        int64    `db:"sliver_id"`
	ComponentGUID   string   `db:"component_guid"`
	Type            *string  `db:"type"`
	Model           *string  `db:"model"`
	BDFs            []string `db:"bdfs"`
	NodeID          *string  `db:"node_id"`
	ComponentNodeID *string  `db:"component_node_id"`
}

// Interface is a network attachment of a sliver.
type Interface struct {
	SliverID      int64   `db:"sliver_id"`
	InterfaceGUID string  `db:"interface_guid"`
	VLAN          *string `db:"vlan"`
	BDF           *string `db:"bdf"`
	LocalName     *string `db:"local_name"`
	DeviceName    *string `db:"device_name"`
	Name          *string `db:"name"`
	SiteID        *int64  `db:"site_id"`
}
