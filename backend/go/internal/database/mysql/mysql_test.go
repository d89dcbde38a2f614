package mysql

import (
	"context"
	"testing"

	"Aethena/backend/go/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	dsn := DSN(&config.MySQLConfig{Username: "u", Password: "p", Address: "db:3306", Database: "aethena"})
	assert.Equal(t, "u:p@tcp(db:3306)/aethena?charset=utf8mb4&parseTime=True&loc=UTC", dsn)
}

func TestHealthCheckWithoutConnection(t *testing.T) {
	assert.Error(t, HealthCheck(context.Background()))
	assert.NoError(t, Close())
}
