package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_schema.sql", names[0])

	schema, err := migrationsFS.ReadFile("migrations/001_schema.sql")
	require.NoError(t, err)
	for _, want := range []string{
		"uq_registrations_partition_email ON registrations (partition, email)",
		"uq_registrations_partition_hash ON registrations (partition, attendance_hash)",
		"CREATE TABLE IF NOT EXISTS attendance_scans",
	} {
		assert.Contains(t, string(schema), want)
	}
}
