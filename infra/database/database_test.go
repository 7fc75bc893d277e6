package database

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig(t *testing.T) {
	cfg := DefaultPostgresConfig()
	got, err := poolConfig("postgres://u:p@db:5432/app?sslmode=disable", cfg)
	require.NoError(t, err)

	assert.Equal(t, int32(25), got.MaxConns)
	assert.Equal(t, int32(2), got.MinConns)
	assert.Equal(t, time.Hour, got.MaxConnLifetime)
	assert.Equal(t, time.Minute, got.HealthCheckPeriod)
	assert.Equal(t, pgx.QueryExecModeSimpleProtocol, got.ConnConfig.DefaultQueryExecMode)
	assert.Equal(t, "app", got.ConnConfig.Database)
}

func TestPoolConfigBadURL(t *testing.T) {
	_, err := poolConfig("postgres://db:notaport/app", DefaultPostgresConfig())
	assert.Error(t, err)
}
