package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitSentry(t *testing.T) {
	on, err := InitSentry("", "test", "")
	require.NoError(t, err)
	assert.False(t, on)

	_, err = InitSentry("not a dsn", "test", "")
	assert.Error(t, err)

	on, err = InitSentry("https://public@o0.ingest.sentry.io/1", "test", "auth-service@dev")
	require.NoError(t, err)
	assert.True(t, on)
	FlushSentry()
}
