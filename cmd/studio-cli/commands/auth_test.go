package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCookieExpiry(t *testing.T) {
	require.Equal(t, "session", cookieExpiry(-1))
	require.Contains(t, cookieExpiry(1), "(expired)")

	future := time.Now().Add(24 * time.Hour)
	require.Equal(t, time.Unix(future.Unix(), 0).Format(time.DateTime), cookieExpiry(float64(future.Unix())))
}
