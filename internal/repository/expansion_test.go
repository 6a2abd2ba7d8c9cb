package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rpattn/slicereports/internal/domain"
)

func TestExpansionPredicates(t *testing.T) {
	assert.False(t, expandProjectUsers(domain.Filter{}))
	assert.True(t, expandProjectUsers(domain.Filter{ProjectID: []string{"p"}}))
	assert.False(t, expandProjectUsers(domain.Filter{UserID: []string{"u"}}))

	assert.False(t, expandUserSlices(domain.Filter{}))
	assert.True(t, expandUserSlices(domain.Filter{UserEmail: []string{"a@b.org"}}))
	assert.True(t, expandUserSlices(domain.Filter{ProjectID: []string{"p"}}))

	assert.False(t, expandSliceSlivers(domain.Filter{ProjectID: []string{"p"}}))
	assert.True(t, expandSliceSlivers(domain.Filter{SliceID: []string{"s"}}))

	assert.False(t, expandHostSlivers(domain.Filter{Site: []string{"RENC"}}))
	assert.True(t, expandHostSlivers(domain.Filter{Host: []string{"renc-w1"}}))
}

func TestNarrowing(t *testing.T) {
	active := true
	parent := domain.Filter{
		ProjectID: []string{"p-1", "p-2"},
		UserEmail: []string{"a@b.org"},
		Site:      []string{"RENC"},
		Active:    &active,
		Page:      3,
		PerPage:   7,
	}

	project := narrowToProject(parent, "p-2", 7)
	assert.Equal(t, []string{"p-2"}, project.ProjectID)
	assert.Equal(t, 0, project.Page)
	assert.Equal(t, 7, project.PerPage)
	assert.Nil(t, project.Active)
	assert.Equal(t, []string{"RENC"}, project.Site)

	user := narrowToUser(parent, "u-9", 7)
	assert.Equal(t, []string{"u-9"}, user.UserID)
	assert.Nil(t, user.UserEmail)

	leaseStart := time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)
	leaseEnd := leaseStart.Add(14 * 24 * time.Hour)
	old := domain.Slice{SliceGUID: "s-1", LeaseStart: &leaseStart, LeaseEnd: &leaseEnd}

	slice := narrowToSlice(parent, old, 7)
	assert.Equal(t, []string{"s-1"}, slice.SliceID)
	assert.Equal(t, &leaseStart, slice.StartTime, "unbounded caller falls back to the slice lease")
	assert.Equal(t, &leaseEnd, slice.EndTime)

	windowed := parent
	windowed.StartTime = &leaseEnd
	slice = narrowToSlice(windowed, old, 7)
	assert.Equal(t, &leaseEnd, slice.StartTime, "caller window wins")
	assert.Nil(t, slice.EndTime)

	host := narrowToHost(parent, "renc-w1", 7)
	assert.Equal(t, []string{"renc-w1"}, host.Host)

	assert.Equal(t, []string{"p-1", "p-2"}, parent.ProjectID, "parent filter must be left untouched")
	assert.Equal(t, 3, parent.Page)
}
