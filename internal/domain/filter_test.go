package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagingDefaults(t *testing.T) {
	page, perPage := Filter{Page: -4}.Paging()
	assert.Equal(t, 0, page)
	assert.Equal(t, DefaultPerPage, perPage)

	page, perPage = MembershipFilter{Page: 2, PerPage: 50}.Paging()
	assert.Equal(t, 2, page)
	assert.Equal(t, 50, perPage)
}

func TestPagingKeepsOffsetInRange(t *testing.T) {
	page, perPage := Filter{Page: math.MaxInt, PerPage: 1000}.Paging()
	assert.Equal(t, 1000, perPage)
	assert.LessOrEqual(t, page*perPage, math.MaxInt32)
	assert.Positive(t, page*perPage)

	page, perPage = MembershipFilter{Page: math.MaxInt64 / 3, PerPage: 7}.Paging()
	assert.LessOrEqual(t, page*perPage, math.MaxInt32)
	assert.Positive(t, page)
}
