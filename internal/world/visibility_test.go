package world

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateReportsEnteredAndLeft(t *testing.T) {
	v := NewVisibilityTracker()

	diff := v.Update(1, []uint64{2, 3})
	require.ElementsMatch(t, []uint64{2, 3}, diff.Entered)
	require.Empty(t, diff.Left)

	diff = v.Update(1, []uint64{3, 4})
	require.ElementsMatch(t, []uint64{4}, diff.Entered)
	require.ElementsMatch(t, []uint64{2}, diff.Left)
}

func TestKnownAndKnownByAreInverse(t *testing.T) {
	v := NewVisibilityTracker()
	v.Update(1, []uint64{2})

	require.True(t, v.Knows(1, 2))
	require.Contains(t, v.KnownBy(2), uint64(1))
}

func TestRemovePlayerClearsBothDirections(t *testing.T) {
	v := NewVisibilityTracker()
	v.Update(1, []uint64{2, 3})
	v.Update(4, []uint64{2})

	v.RemovePlayer(2)

	require.False(t, v.Knows(1, 2))
	require.False(t, v.Knows(4, 2))
	require.Empty(t, v.KnownBy(2))
}

func TestRemovePlayerAsViewerClearsKnownBy(t *testing.T) {
	v := NewVisibilityTracker()
	v.Update(1, []uint64{2})

	v.RemovePlayer(1)

	require.Empty(t, v.KnownBy(2))
}

func TestInitializeSeedsWithoutDiff(t *testing.T) {
	v := NewVisibilityTracker()
	v.Initialize(1, []uint64{2, 3})

	diff := v.Update(1, []uint64{2, 3})
	require.Empty(t, diff.Entered)
	require.Empty(t, diff.Left)
}

func TestForgetRemovesSinglePair(t *testing.T) {
	v := NewVisibilityTracker()
	v.Update(1, []uint64{2, 3})

	v.Forget(1, 2)

	require.False(t, v.Knows(1, 2))
	require.True(t, v.Knows(1, 3))
	require.Empty(t, v.KnownBy(2))
}
