package domain

import (
	"encoding/json"
	"time"
)

// Collection is a nested child listing. When Expanded is false only Total is
// reported; callers asked for a count, not the rows.
type Collection[T any] struct {
	Total    int64
	Data     []T
	Expanded bool
}

// Counted returns an unexpanded collection.
func Counted[T any](total int64) Collection[T] {
	return Collection[T]{Total: total}
}

// Expanded returns a collection carrying its rows.
func Expanded[T any](total int64, data []T) Collection[T] {
	if data == nil {
		data = []T{}
	}
	return Collection[T]{Total: total, Data: data, Expanded: true}
}

// Count returns Total whether or not the rows were expanded.
func (c Collection[T]) Count() int64 { return c.Total }

func (c Collection[T]) MarshalJSON() ([]byte, error) {
	if !c.Expanded {
		return json.Marshal(struct {
			Total int64 `json:"total"`
		}{c.Total})
	}
	return json.Marshal(struct {
		Total int64 `json:"total"`
		Data  []T   `json:"data"`
	}{c.Total, c.Data})
}

// Page is one page of a top-level report.
type Page[T any] struct {
	Total int64
	Items []T
	// Name keys the items in the JSON envelope, e.g. "slivers".
	Name string
}

func (p Page[T]) MarshalJSON() ([]byte, error) {
	items := p.Items
	if items == nil {
		items = []T{}
	}
	name := p.Name
	if name == "" {
		name = "data"
	}
	return json.Marshal(map[string]any{
		"total": p.Total,
		name:    items,
	})
}

type ProjectRecord struct {
	ProjectID   string                 `json:"project_id"`
	ProjectName *string                `json:"project_name"`
	ProjectType *string                `json:"project_type,omitempty"`
	Active      *bool                  `json:"active,omitempty"`
	CreatedDate *string                `json:"created_date"`
	ExpiresOn   *string                `json:"expires_on"`
	RetiredDate *string                `json:"retired_date"`
	LastUpdated *string                `json:"last_updated"`
	Users       Collection[UserRecord] `json:"users"`
}

type UserRecord struct {
	UserID        string                  `json:"user_id"`
	UserEmail     *string                 `json:"user_email"`
	Active        *bool                   `json:"active,omitempty"`
	Name          *string                 `json:"name"`
	Affiliation   *string                 `json:"affiliation"`
	RegisteredOn  *string                 `json:"registered_on"`
	LastUpdated   *string                 `json:"last_updated"`
	GoogleScholar *string                 `json:"google_scholar"`
	Scopus        *string                 `json:"scopus"`
	BastionLogin  *string                 `json:"bastion_login"`
	Slices        Collection[SliceRecord] `json:"slices"`
}

type SliceRecord struct {
	SliceID     string                   `json:"slice_id"`
	SliceName   *string                  `json:"slice_name"`
	State       string                   `json:"state"`
	LeaseStart  *string                  `json:"lease_start"`
	LeaseEnd    *string                  `json:"lease_end"`
	UserID      *string                  `json:"user_id"`
	UserEmail   *string                  `json:"user_email"`
	ProjectID   *string                  `json:"project_id"`
	ProjectName *string                  `json:"project_name"`
	Slivers     Collection[SliverRecord] `json:"slivers"`
}

type SliverRecord struct {
	SliceID     *string                     `json:"slice_id"`
	SliverID    string                      `json:"sliver_id"`
	NodeID      *string                     `json:"node_id"`
	State       string                      `json:"state"`
	SliverType  *string                     `json:"sliver_type"`
	IPSubnet    *string                     `json:"ip_subnet"`
	IPv4        *string                     `json:"ip_v4,omitempty"`
	IPv6        *string                     `json:"ip_v6,omitempty"`
	Image       *string                     `json:"image"`
	Core        *int32                      `json:"core"`
	RAM         *int32                      `json:"ram"`
	Disk        *int32                      `json:"disk"`
	Bandwidth   *int32                      `json:"bandwidth"`
	Error       *string                     `json:"error,omitempty"`
	Site        *string                     `json:"site"`
	Host        *string                     `json:"host"`
	LeaseStart  *string                     `json:"lease_start"`
	LeaseEnd    *string                     `json:"lease_end"`
	UserID      *string                     `json:"user_id"`
	UserEmail   *string                     `json:"user_email"`
	ProjectID   *string                     `json:"project_id"`
	ProjectName *string                     `json:"project_name"`
	Components  Collection[ComponentRecord] `json:"components"`
	Interfaces  Collection[InterfaceRecord] `json:"interfaces"`
}

type ComponentRecord struct {
	ComponentGUID   string   `json:"component_guid"`
	NodeID          *string  `json:"node_id"`
	ComponentNodeID *string  `json:"component_node_id"`
	Type            *string  `json:"type"`
	Model           *string  `json:"model"`
	BDFs            []string `json:"bdfs"`
}

type InterfaceRecord struct {
	InterfaceGUID string  `json:"interface_guid"`
	BDF           *string `json:"bdf"`
	VLAN          *string `json:"vlan"`
	LocalName     *string `json:"local_name"`
	DeviceName    *string `json:"device_name"`
	Name          *string `json:"name"`
}

type HostRecord struct {
	Name    string                   `json:"name"`
	Site    *string                  `json:"site"`
	Slivers Collection[SliverRecord] `json:"slivers"`
}

// SiteHosts groups host records under their site name.
type SiteHosts struct {
	Name  string       `json:"name"`
	Hosts []HostRecord `json:"hosts"`
}

type MembershipRecord struct {
	UserID         string  `json:"user_id"`
	UserEmail      *string `json:"user_email"`
	ProjectID      string  `json:"project_id"`
	ProjectName    *string `json:"project_name"`
	ProjectType    *string `json:"project_type"`
	MembershipType string  `json:"membership_type"`
	StartTime      *string `json:"start_time"`
	EndTime        *string `json:"end_time"`
	Active         bool    `json:"active"`
}

// FormatTime renders t as RFC 3339 or nil.
func FormatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// GroupHostsBySite folds host records into per-site groups, keeping the
// order in which sites first appear.
func GroupHostsBySite(hosts []HostRecord) []SiteHosts {
	var out []SiteHosts
	index := make(map[string]int)
	for _, h := range hosts {
		site := ""
		if h.Site != nil {
			site = *h.Site
		}
		i, ok := index[site]
		if !ok {
			i = len(out)
			index[site] = i
			out = append(out, SiteHosts{Name: site})
		}
		out[i].Hosts = append(out[i].Hosts, h)
	}
	return out
}
