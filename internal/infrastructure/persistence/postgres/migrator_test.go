package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMigrationFilename(t *testing.T) {
	id, name, err := parseMigrationFilename("001_create_refresh_cycles.sql")
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.Equal(t, "create refresh cycles", name)

	for _, bad := range []string{"create.sql", "abc_name.sql", "000_zero.sql", "002_.sql"} {
		_, _, err := parseMigrationFilename(bad)
		assert.Error(t, err, bad)
	}
}

func TestExtractDescriptionAndRollback(t *testing.T) {
	content := "-- Migration: x\n-- Description: журнал циклов\nCREATE TABLE t (id INT);\n\n-- DOWN Migration\n-- DROP TABLE IF EXISTS t;\n"

	assert.Equal(t, "журнал циклов", extractDescription(content))
	assert.Equal(t, "DROP TABLE IF EXISTS t;", extractRollbackSQL(content))
	assert.Equal(t, "No description", extractDescription("SELECT 1;"))
	assert.Empty(t, extractRollbackSQL("SELECT 1;"))
}

func TestChecksumDetectsEditsOfSameLength(t *testing.T) {
	a := calculateChecksum("ALTER TABLE a ADD b INT;")
	b := calculateChecksum("ALTER TABLE a ADD c INT;")
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, calculateChecksum("ALTER TABLE a ADD b INT;"))
}

func TestLoadMigrationsOrdersByID(t *testing.T) {
	src := fstest.MapFS{
		"002_second.sql": {Data: []byte("-- Description: second\nSELECT 2;")},
		"001_first.sql":  {Data: []byte("-- Description: first\nSELECT 1;")},
		"README.md":      {Data: []byte("skip")},
	}

	m := NewMigrator(nil)
	require.NoError(t, m.LoadMigrations(src))

	list := m.Migrations()
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Name)
	assert.Equal(t, "second", list[1].Description)
}

func TestLoadMigrationsRejectsDuplicateIDs(t *testing.T) {
	src := fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"1_b.sql":   {Data: []byte("SELECT 1;")},
	}
	assert.Error(t, NewMigrator(nil).LoadMigrations(src))
}

func TestEmbeddedMigrationsAreLoadable(t *testing.T) {
	m := NewMigrator(nil)
	require.NoError(t, m.LoadMigrations(EmbeddedMigrations()))

	list := m.Migrations()
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].ID)
	assert.Contains(t, list[0].SQL, "CREATE TABLE IF NOT EXISTS refresh_cycles")
	assert.NotEmpty(t, extractRollbackSQL(list[1].SQL))
}
