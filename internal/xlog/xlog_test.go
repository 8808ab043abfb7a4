package xlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureValidLevel(t *testing.T) {
	require.NoError(t, Configure("debug"))
	assert.NotNil(t, Logger)
}

func TestConfigureUnknownLevelFallsBackToInfo(t *testing.T) {
	require.NoError(t, Configure("not-a-level"))
	assert.NotNil(t, Logger)
}
