package repository

import "github.com/rpattn/slicereports/internal/domain"

// Child collections are expanded only when the caller's filter narrows to a
// parent identity. Otherwise a grouped count is reported. Sliver components
// and interfaces are small and always expanded.

func expandProjectUsers(f domain.Filter) bool {
	return len(f.ProjectID) > 0
}

func expandUserSlices(f domain.Filter) bool {
	return len(f.ProjectID) > 0 || len(f.UserID) > 0 || len(f.UserEmail) > 0
}

func expandSliceSlivers(f domain.Filter) bool {
	return len(f.SliceID) > 0
}

func expandHostSlivers(f domain.Filter) bool {
	return len(f.Host) > 0
}

// childFilter is the parent's filter re-targeted at one parent record: first
// page, the parent's page size, and no root-level active flag.
func childFilter(f domain.Filter, perPage int) domain.Filter {
	f.Page = 0
	f.PerPage = perPage
	f.Active = nil
	return f
}

func narrowToProject(f domain.Filter, projectUUID string, perPage int) domain.Filter {
	c := childFilter(f, perPage)
	c.ProjectID = []string{projectUUID}
	return c
}

func narrowToUser(f domain.Filter, userUUID string, perPage int) domain.Filter {
	c := childFilter(f, perPage)
	c.UserID = []string{userUUID}
	c.UserEmail = nil
	return c
}

// narrowToSlice falls back to the slice's own lease when the caller gave no
// window, so slivers of an old slice are not cut off by the default window.
func narrowToSlice(f domain.Filter, slice domain.Slice, perPage int) domain.Filter {
	c := childFilter(f, perPage)
	c.SliceID = []string{slice.SliceGUID}
	if c.StartTime == nil && c.EndTime == nil {
		c.StartTime, c.EndTime = slice.LeaseStart, slice.LeaseEnd
	}
	return c
}

func narrowToHost(f domain.Filter, hostName string, perPage int) domain.Filter {
	c := childFilter(f, perPage)
	c.Host = []string{hostName}
	return c
}
