package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAdd_KeepsLastThree(t *testing.T) {
	s := openTestStore(t, ":memory:")
	ctx := context.Background()

	for _, v := range []string{"May 11, 2001", "June 1, 2002", "July 4, 1994", "Dec 25, 1987"} {
		require.NoError(t, s.Add(ctx, KindDate, v))
	}

	got, err := s.List(ctx, KindDate)
	require.NoError(t, err)
	assert.Equal(t, []string{"June 1, 2002", "July 4, 1994", "Dec 25, 1987"}, got)
}

func TestAdd_ReaddMovesToEnd(t *testing.T) {
	s := openTestStore(t, ":memory:")
	ctx := context.Background()

	for _, v := range []string{"Paris", "Rome", "Oslo", "Paris"} {
		require.NoError(t, s.Add(ctx, KindLocation, v))
	}

	got, err := s.List(ctx, KindLocation)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rome", "Oslo", "Paris"}, got)
}

func TestAdd_KindsAreSeparateAndBlankIgnored(t *testing.T) {
	s := openTestStore(t, ":memory:")
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, KindDate, "2001"))
	require.NoError(t, s.Add(ctx, KindLocation, "  Oslo "))
	require.NoError(t, s.Add(ctx, KindLocation, "   "))

	dates, err := s.List(ctx, KindDate)
	require.NoError(t, err)
	assert.Equal(t, []string{"2001"}, dates)

	locs, err := s.List(ctx, KindLocation)
	require.NoError(t, err)
	assert.Equal(t, []string{"Oslo"}, locs)
}

func TestList_Empty(t *testing.T) {
	s := openTestStore(t, ":memory:")

	got, err := s.List(context.Background(), KindDate)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, KindDate, "May 11, 2001"))
	require.NoError(t, s.Close())

	s = openTestStore(t, path)
	got, err := s.List(ctx, KindDate)
	require.NoError(t, err)
	assert.Equal(t, []string{"May 11, 2001"}, got)
}
