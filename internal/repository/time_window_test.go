package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWindow(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	start := now.Add(-48 * time.Hour)
	end := now.Add(-24 * time.Hour)

	t.Run("unbounded scan passes through", func(t *testing.T) {
		s, e, adj := NormalizeWindow(nil, nil, false, now, DefaultWindow)
		assert.Nil(t, s)
		assert.Nil(t, e)
		assert.Equal(t, WindowUnchanged, adj)
	})

	t.Run("forced when both missing", func(t *testing.T) {
		s, e, adj := NormalizeWindow(nil, nil, true, now, DefaultWindow)
		require.NotNil(t, s)
		require.NotNil(t, e)
		assert.Equal(t, WindowForced, adj)
		assert.Equal(t, now, *e)
		assert.Equal(t, now.Add(-DefaultWindow), *s)
	})

	t.Run("end derived from start", func(t *testing.T) {
		s, e, adj := NormalizeWindow(&start, nil, true, now, 24*time.Hour)
		assert.Equal(t, WindowCompleted, adj)
		assert.Equal(t, start, *s)
		assert.Equal(t, start.Add(24*time.Hour), *e)
	})

	t.Run("start derived from end", func(t *testing.T) {
		s, e, adj := NormalizeWindow(nil, &end, true, now, 24*time.Hour)
		assert.Equal(t, WindowCompleted, adj)
		assert.Equal(t, end.Add(-24*time.Hour), *s)
		assert.Equal(t, end, *e)
	})

	t.Run("complete window unchanged", func(t *testing.T) {
		s, e, adj := NormalizeWindow(&start, &end, true, now, DefaultWindow)
		assert.Equal(t, WindowUnchanged, adj)
		assert.Same(t, &start, s)
		assert.Same(t, &end, e)
	})

	t.Run("non-positive width falls back to default", func(t *testing.T) {
		s, _, _ := NormalizeWindow(nil, nil, true, now, 0)
		assert.Equal(t, now.Add(-DefaultWindow), *s)
	})
}
