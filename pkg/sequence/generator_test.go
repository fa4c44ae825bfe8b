package sequence

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	day := time.Date(2026, 1, 18, 23, 0, 0, 0, time.UTC)

	require.Equal(t, "RB-260118-001XY", format(OrderPrefix, day, 1, "XY"))
	require.Equal(t, "RB-260118-00ZAB", format(OrderPrefix, day, 35, "AB"))
	require.Equal(t, "RB-260118-2FIAB", format(OrderPrefix, day, 3150, "AB"))
}

func TestRandomSuffix(t *testing.T) {
	s, err := randomSuffix(16)
	require.NoError(t, err)
	require.Len(t, s, 16)
	for _, r := range s {
		require.True(t, strings.ContainsRune(suffixChars, r))
	}
}
