package repository

import (
	"github.com/rpattn/slicereports/internal/domain"
)

func projectRecord(p domain.Project) domain.ProjectRecord {
	return domain.ProjectRecord{
		ProjectID:   p.ProjectUUID,
		ProjectName: p.ProjectName,
		ProjectType: p.ProjectType,
		Active:      p.Active,
		CreatedDate: domain.FormatTime(p.CreatedDate),
		ExpiresOn:   domain.FormatTime(p.ExpiresOn),
		RetiredDate: domain.FormatTime(p.RetiredDate),
		LastUpdated: domain.FormatTime(p.LastUpdated),
	}
}

func userRecord(u domain.User) domain.UserRecord {
	return domain.UserRecord{
		UserID:        u.UserUUID,
		UserEmail:     u.UserEmail,
		Active:        u.Active,
		Name:          u.Name,
		Affiliation:   u.Affiliation,
		RegisteredOn:  domain.FormatTime(u.RegisteredOn),
		LastUpdated:   domain.FormatTime(u.LastUpdated),
		GoogleScholar: u.GoogleScholar,
		Scopus:        u.Scopus,
		BastionLogin:  u.BastionLogin,
	}
}

// owner carries the display fields a slice or sliver copies from its user
// and project.
type owner struct {
	userID, userEmail, projectID, projectName *string
}

func ownerOf(users map[int64]domain.User, projects map[int64]domain.Project, userID, projectID int64) owner {
	var o owner
	if u, ok := users[userID]; ok {
		o.userID = strPtr(u.UserUUID)
		o.userEmail = u.UserEmail
	}
	if p, ok := projects[projectID]; ok {
		o.projectID = strPtr(p.ProjectUUID)
		o.projectName = p.ProjectName
	}
	return o
}

func sliceRecord(s domain.Slice, o owner) domain.SliceRecord {
	return domain.SliceRecord{
		SliceID:     s.SliceGUID,
		SliceName:   s.SliceName,
		State:       s.State.String(),
		LeaseStart:  domain.FormatTime(s.LeaseStart),
		LeaseEnd:    domain.FormatTime(s.LeaseEnd),
		UserID:      o.userID,
		UserEmail:   o.userEmail,
		ProjectID:   o.projectID,
		ProjectName: o.projectName,
	}
}

func sliverRecord(sl domain.Sliver, o owner, sliceGUID, site, host *string) domain.SliverRecord {
	return domain.SliverRecord{
		SliceID:     sliceGUID,
		SliverID:    sl.SliverGUID,
		NodeID:      sl.NodeID,
		State:       sl.State.String(),
		SliverType:  sl.SliverType,
		IPSubnet:    sl.IPSubnet,
		IPv4:        sl.IPv4,
		IPv6:        sl.IPv6,
		Image:       sl.Image,
		Core:        sl.Core,
		RAM:         sl.RAM,
		Disk:        sl.Disk,
		Bandwidth:   sl.Bandwidth,
		Error:       sl.Error,
		Site:        site,
		Host:        host,
		LeaseStart:  domain.FormatTime(sl.LeaseStart),
		LeaseEnd:    domain.FormatTime(sl.LeaseEnd),
		UserID:      o.userID,
		UserEmail:   o.userEmail,
		ProjectID:   o.projectID,
		ProjectName: o.projectName,
	}
}

func componentRecords(items []domain.Component) []domain.ComponentRecord {
	out := make([]domain.ComponentRecord, len(items))
	for i, c := range items {
		out[i] = domain.ComponentRecord{
			ComponentGUID:   c.ComponentGUID,
			NodeID:          c.NodeID,
			ComponentNodeID: c.ComponentNodeID,
			Type:            c.Type,
			Model:           c.Model,
			BDFs:            c.BDFs,
		}
	}
	return out
}

func interfaceRecords(items []domain.Interface) []domain.InterfaceRecord {
	out := make([]domain.InterfaceRecord, len(items))
	for i, x := range items {
		out[i] = domain.InterfaceRecord{
			InterfaceGUID: x.InterfaceGUID,
			BDF:           x.BDF,
			VLAN:          x.VLAN,
			LocalName:     x.LocalName,
			DeviceName:    x.DeviceName,
			Name:          x.Name,
		}
	}
	return out
}

func siteName(sites map[int64]domain.Site, id *int64) *string {
	if id == nil {
		return nil
	}
	if s, ok := sites[*id]; ok {
		return strPtr(s.Name)
	}
	return nil
}

func hostName(hosts map[int64]domain.Host, id *int64) *string {
	if id == nil {
		return nil
	}
	if h, ok := hosts[*id]; ok {
		return strPtr(h.Name)
	}
	return nil
}

func strPtr(s string) *string { return &s }

func derefIDs(ids []*int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != nil {
			out = append(out, *id)
		}
	}
	return out
}
