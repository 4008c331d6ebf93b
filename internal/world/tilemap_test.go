package world

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTileMapHasBorder(t *testing.T) {
	m := NewTileMap(10, 10)
	require.True(t, m.IsBlocking(0, 0))
	require.True(t, m.IsBlocking(9, 9))
	require.False(t, m.IsBlocking(5, 5))
}

func TestOutOfBoundsIsVoidAndBlocking(t *testing.T) {
	m := NewTileMap(10, 10)
	require.Equal(t, TileVoid, m.Get(-1, 0))
	require.Equal(t, TileVoid, m.Get(10, 10))
	require.True(t, m.IsBlocking(-1, 0))
}

func TestSetRecomputesBlocking(t *testing.T) {
	m := NewTileMap(10, 10)
	m.Set(5, 5, TileWater)
	require.True(t, m.IsBlocking(5, 5))
	m.Set(5, 5, TileGround)
	require.False(t, m.IsBlocking(5, 5))
}

func TestSetBlockingOverrideIndependentOfKind(t *testing.T) {
	m := NewTileMap(10, 10)
	m.SetBlockingOverride(5, 5, true)
	require.Equal(t, TileGround, m.Get(5, 5))
	require.True(t, m.IsBlocking(5, 5))
}

func TestFillRegionClampsToBounds(t *testing.T) {
	m := NewTileMap(10, 10)
	m.FillRegion(-5, -5, 3, 3, TileWall)
	require.True(t, m.IsBlocking(3, 3))
	require.True(t, m.IsBlocking(0, 0))
}

func TestRecalculateBlockingDropsOverrides(t *testing.T) {
	m := NewTileMap(10, 10)
	m.SetBlockingOverride(5, 5, true)
	m.RecalculateBlocking()
	require.False(t, m.IsBlocking(5, 5))
}

func TestDumpViewClippedOutsideIsVoid(t *testing.T) {
	m := NewTileMap(10, 10)
	view := m.DumpView(0, 0, 1)
	require.Len(t, view, 9)
	require.Equal(t, TileVoid, view[0]) // (-1,-1) corner
}
