package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_UnreachableDatabaseReturnsError(t *testing.T) {
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", "1")
	t.Setenv("DB_NAME", "catering")
	t.Setenv("DB_USER", "catering")
	t.Setenv("LOG_PATH", t.TempDir())
	t.Setenv("RABBITMQ_URL", "")

	err := run()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect database")
}
