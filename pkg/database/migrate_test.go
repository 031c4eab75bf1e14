package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aliagaaaaaa/horarios-api/pkg/config"
)

func TestMigrationNamesArePaired(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Len(t, names, 8)
	assert.Equal(t, "000001_catalog.down.sql", names[0])
	assert.Equal(t, "000001_catalog.up.sql", names[1])
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "horarios", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=horarios sslmode=disable", dsn)
}
