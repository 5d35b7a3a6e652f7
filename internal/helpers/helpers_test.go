package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitAndTrim(" a, ,b ,", ","))
	assert.Empty(t, SplitAndTrim("", ","))
}

func TestParseDefaults(t *testing.T) {
	b, err := ParseBoolDefault("", true)
	require.NoError(t, err)
	assert.True(t, b)
	b, err = ParseBoolDefault("false", true)
	require.NoError(t, err)
	assert.False(t, b)
	_, err = ParseBoolDefault("maybe", true)
	assert.Error(t, err)

	f, err := ParseFloatDefault(" 0.5 ", 0.8)
	require.NoError(t, err)
	assert.Equal(t, 0.5, f)
	_, err = ParseFloatDefault("high", 0.8)
	assert.Error(t, err)

	i, err := ParseIntDefault("", 400)
	require.NoError(t, err)
	assert.Equal(t, 400, i)
	_, err = ParseIntDefault("4.5", 400)
	assert.Error(t, err)
}
