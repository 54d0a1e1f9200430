package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations_Embedded(t *testing.T) {
	migrations, err := LoadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Contains(t, migrations[0].SQL, "appointments_active_slot_key")
	assert.Contains(t, migrations[0].SQL, "patients_dni_key")
}

func TestLoadMigrations_CreatedByIsNotAForeignKey(t *testing.T) {
	migrations, err := LoadMigrations()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(migrations), 2)

	assert.Equal(t, 2, migrations[1].Version)
	assert.Contains(t, migrations[1].SQL, "DROP CONSTRAINT IF EXISTS patients_created_by_fkey")
}

func TestLoadMigrations_SortsAndSkips(t *testing.T) {
	fsys := fstest.MapFS{
		"m/010_late.sql":  {Data: []byte("SELECT 10")},
		"m/002_mid.sql":   {Data: []byte("SELECT 2")},
		"m/README.md":     {Data: []byte("docs")},
		"m/seed.sql":      {Data: []byte("SELECT 0")},
		"m/abc_bogus.sql": {Data: []byte("SELECT -1")},
	}

	migrations, err := loadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 2, migrations[0].Version)
	assert.Equal(t, "002_mid.sql", migrations[0].Name)
	assert.Equal(t, 10, migrations[1].Version)
}
