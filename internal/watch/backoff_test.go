package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	b := NewBackoff(250*time.Millisecond, 15*time.Second)
	require.Equal(t, 250*time.Millisecond, b.Next())
	require.Equal(t, 500*time.Millisecond, b.Next())
	require.Equal(t, time.Second, b.Next())
	for i := 0; i < 20; i++ {
		b.Next()
	}
	require.Equal(t, 15*time.Second, b.Next())
}

func TestBackoffResetReturnsToBase(t *testing.T) {
	b := NewBackoff(250*time.Millisecond, 15*time.Second)
	b.Next()
	b.Next()
	b.Reset()
	require.Equal(t, 250*time.Millisecond, b.Next())
}
