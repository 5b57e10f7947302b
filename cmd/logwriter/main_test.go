package main

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLogEntry(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := int64(1); i <= 200; i++ {
		entry := buildLogEntry(rng, "demo-script", "run-123", i)

		assert.Equal(t, "demo-script", entry.ScriptName)
		assert.Contains(t, logLevels, entry.Level)
		assert.Contains(t, logMessages, entry.Message)
		assert.False(t, entry.CreatedAt.IsZero())

		require.NotNil(t, entry.Metadata)
		assert.Equal(t, "run-123", entry.Metadata["run_id"])
		assert.Equal(t, i, entry.Metadata["sequence"])

		executionMs, ok := entry.Metadata["execution_ms"].(int)
		require.True(t, ok, "execution_ms must be an int")
		assert.GreaterOrEqual(t, executionMs, 45)
		assert.LessOrEqual(t, executionMs, 1400)
	}
}
