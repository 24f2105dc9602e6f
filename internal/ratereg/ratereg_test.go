package ratereg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreLoadRoundTrip(t *testing.T) {
	require.Equal(t, 0, Load())
	Store(192000)
	require.Equal(t, 192000, Load())
	Store(48000)
	require.Equal(t, 48000, Load())
}
