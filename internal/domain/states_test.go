package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliverStateRoundTrip(t *testing.T) {
	for _, s := range AllSliverStates() {
		assert.Equal(t, s, TranslateSliverState(s.String()), "state %s", s)
		assert.Equal(t, s.String(), TranslateSliverState(s.String()).String())
	}
}

func TestSliverStateCodes(t *testing.T) {
	assert.Equal(t, 1, int(TranslateSliverState("Nascent")))
	assert.Equal(t, 4, int(TranslateSliverState("active")))
	assert.Equal(t, 10, int(TranslateSliverState("CLOSEFAIL")))
	assert.Equal(t, SliverUnknown, TranslateSliverState("Exploded"))
	assert.Equal(t, "Unknown", SliverState(3).String())
}

func TestTranslateSliverStates(t *testing.T) {
	assert.Nil(t, TranslateSliverStates(nil))
	assert.Equal(t, []int{4, 8, 9}, TranslateSliverStates([]string{"Active", "failed", "bogus"}))
}

func TestSliceStateRoundTrip(t *testing.T) {
	for _, s := range AllSliceStates() {
		if s.IsAllocated() {
			continue
		}
		assert.Equal(t, s, TranslateSliceState(s.String()), "state %s", s)
	}
	assert.Equal(t, 12, int(SliceAll))
	assert.Equal(t, SliceAll, TranslateSliceState("nope"))
}

func TestSliceStateAllocatedMapping(t *testing.T) {
	assert.Equal(t, SliceClosing, TranslateSliceState("AllocatedOK"))
	assert.Equal(t, SliceDead, TranslateSliceState("allocatederror"))
	// Codes themselves still render their own names.
	assert.Equal(t, "AllocatedOK", SliceAllocatedOK.String())
	assert.Equal(t, "AllocatedError", SliceAllocatedError.String())
}

func TestTranslateSliceStateList(t *testing.T) {
	assert.Nil(t, TranslateSliceStateList(nil))

	all := TranslateSliceStateList([]string{"all"})
	require.Len(t, all, 11)
	assert.Equal(t, 1, all[0])
	assert.Equal(t, 11, all[10])

	assert.Equal(t, []int{4, 5}, TranslateSliceStateList([]string{"closing", "StableOK"}))
	assert.Equal(t, []int{10, 11}, TranslateSliceStateList([]string{"AllocatedOK", "AllocatedError"}))
	assert.Empty(t, TranslateSliceStateList([]string{"misspelled"}))
}

func TestSliceStateHelpers(t *testing.T) {
	assert.NotContains(t, SliceStateValuesExClosingDead(), int(SliceClosing))
	assert.NotContains(t, SliceStateValuesExClosingDead(), int(SliceDead))
	assert.Len(t, SliceStateValuesExClosingDead(), 9)
	assert.True(t, SliceStableError.IsStable())
	assert.True(t, SliceModifyOK.IsModified())
	assert.False(t, SliceNascent.IsDeadOrClosing())
}

func TestCollectionJSON(t *testing.T) {
	counted, err := json.Marshal(Counted[UserRecord](3))
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":3}`, string(counted))

	empty, err := json.Marshal(Expanded[UserRecord](0, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":0,"data":[]}`, string(empty))
}

func TestPageJSON(t *testing.T) {
	email := "a@b.com"
	page := Page[UserRecord]{
		Total: 1,
		Name:  "users",
		Items: []UserRecord{{UserID: "u1", UserEmail: &email, Slices: Counted[SliceRecord](2)}},
	}
	out, err := json.Marshal(page)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":1,"users":[{"user_id":"u1","user_email":"a@b.com","slices":{"total":2}}]}`, string(out))
}

func TestGroupHostsBySite(t *testing.T) {
	renc, uky := "RENC", "UKY"
	groups := GroupHostsBySite([]HostRecord{
		{Name: "renc-w1", Site: &renc},
		{Name: "uky-w1", Site: &uky},
		{Name: "renc-w2", Site: &renc},
	})
	require.Len(t, groups, 2)
	assert.Equal(t, "RENC", groups[0].Name)
	assert.Len(t, groups[0].Hosts, 2)
	assert.Equal(t, "uky-w1", groups[1].Hosts[0].Name)
}
