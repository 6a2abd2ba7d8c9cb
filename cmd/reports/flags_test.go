package main

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/slicereports/internal/domain"
)

func parse(t *testing.T, args ...string) *queryFlags {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	q := registerQueryFlags(fs)
	require.NoError(t, fs.Parse(args))
	return q
}

func TestFilterFromFlags(t *testing.T) {
	q := parse(t,
		"--start", "2024-01-01T00:00:00Z",
		"--site", "RENC,UKY",
		"--exclude-host", "renc-w1",
		"--slice-state", "StableOK",
		"--sliver-state", "Active,Closed",
		"--active=false",
		"--per-page", "20",
	)

	f, err := q.filter()
	require.NoError(t, err)

	require.NotNil(t, f.StartTime)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *f.StartTime)
	assert.Nil(t, f.EndTime)
	assert.Equal(t, []string{"RENC", "UKY"}, f.Site)
	assert.Equal(t, []string{"renc-w1"}, f.ExcludeHost)
	assert.Equal(t, []int{int(domain.SliceStableOK)}, f.SliceState)
	assert.Equal(t, []int{int(domain.SliverActive), int(domain.SliverClosed)}, f.SliverState)
	require.NotNil(t, f.Active)
	assert.False(t, *f.Active)
	assert.Nil(t, f.ProjectActive, "unset boolean flags stay unconstrained")
	assert.Equal(t, 20, f.PerPage)
}

func TestFilterRejectsInvertedWindow(t *testing.T) {
	q := parse(t, "--start", "2024-02-01T00:00:00Z", "--end", "2024-01-01T00:00:00Z")

	_, err := q.filter()
	assert.Error(t, err)
}

func TestMembershipFilterFromFlags(t *testing.T) {
	q := parse(t, "--project-id", "p-1", "--membership-type", "owner", "--project-retired")

	f, err := q.membershipFilter()
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1"}, f.ProjectID)
	assert.Equal(t, []string{"owner"}, f.MembershipType)
	require.NotNil(t, f.ProjectRetired)
	assert.True(t, *f.ProjectRetired)
	assert.Nil(t, f.ProjectExpired)
	assert.Equal(t, domain.DefaultPerPage, f.PerPage)
}
