package arbor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelBuiltinsNameRoundTrip(t *testing.T) {
	cases := []struct {
		lvl  Level
		name string
	}{
		{NotSet, "NOTSET"},
		{Debug, "DEBUG"},
		{Info, "INFO"},
		{Warning, "WARNING"},
		{Error, "ERROR"},
		{Critical, "CRITICAL"},
		{None, "NONE"},
	}
	for _, c := range cases {
		assert.Equal(t, c.name, NameOf(c.lvl))
		got, err := LevelOf(c.name)
		require.NoError(t, err)
		assert.Equal(t, c.lvl, got)
	}
}

func TestNameOfUnregisteredLevel(t *testing.T) {
	assert.Equal(t, "Level77", NameOf(77))
}

func TestLevelOfUnknownName(t *testing.T) {
	_, err := LevelOf("DOES_NOT_EXIST")
	require.Error(t, err)
	var herr *HierarchyError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, InvalidName, herr.Kind)
}

func TestRegisterLevelIdempotentSameValue(t *testing.T) {
	t.Cleanup(resetLevelRegistry)
	require.NoError(t, RegisterLevel("TRACE", 5))
	require.NoError(t, RegisterLevel("TRACE", 5))

	lvl, err := LevelOf("TRACE")
	require.NoError(t, err)
	assert.Equal(t, Level(5), lvl)
}

func TestRegisterLevelConflictingValueFails(t *testing.T) {
	t.Cleanup(resetLevelRegistry)
	require.NoError(t, RegisterLevel("TRACE", 5))
	err := RegisterLevel("TRACE", 6)
	require.Error(t, err)
	var herr *HierarchyError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, LevelCollision, herr.Kind)
}

func TestRegisterLevelCollidesWithBuiltin(t *testing.T) {
	t.Cleanup(resetLevelRegistry)
	err := RegisterLevel("CUSTOM", int32ToLevel(20))
	require.Error(t, err)
	var herr *HierarchyError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, LevelCollision, herr.Kind)
}

func int32ToLevel(n int32) Level { return Level(n) }

func TestRegisterLevelOutOfRange(t *testing.T) {
	t.Cleanup(resetLevelRegistry)
	for _, v := range []Level{0, -1, 100, 127} {
		err := RegisterLevel("X", v)
		require.Error(t, err)
		var herr *HierarchyError
		require.ErrorAs(t, err, &herr)
		assert.Equal(t, LevelOutOfRange, herr.Kind)
	}
}

func TestRegisterLevelInvalidName(t *testing.T) {
	t.Cleanup(resetLevelRegistry)
	for _, name := range []string{"", "lower", "has space", "has-dash"} {
		err := RegisterLevel(name, 15)
		require.Error(t, err)
		var herr *HierarchyError
		require.ErrorAs(t, err, &herr)
		assert.Equal(t, InvalidName, herr.Kind)
	}
}

func TestIsEnabled(t *testing.T) {
	assert.True(t, IsEnabled(Info, Info))
	assert.True(t, IsEnabled(Warning, Info))
	assert.False(t, IsEnabled(Debug, Info))
	assert.False(t, IsEnabled(Critical, None))
}
